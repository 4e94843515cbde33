package generator

import (
	"strings"
	"testing"

	"github.com/koba/db-migrate/internal/diff"
	"github.com/koba/db-migrate/internal/schema"
)

func TestUpgradeDowngradeTablePairing(t *testing.T) {
	report := &diff.Report{
		TablesMissingInDatabase: []schema.Table{
			{Name: "t", Columns: []schema.Column{
				{Name: "id", Type: schema.Type{Kind: schema.Integer}, PrimaryKey: true},
				{Name: "name", Type: schema.Type{Kind: schema.Text}, Nullable: true},
			}},
		},
	}

	gen := NewModelGenerator(false)
	decls, upgrade, downgrade := gen.UpgradeDowngrade(report)

	if !strings.Contains(decls, "meta = MetaData(migrate_engine)") {
		t.Errorf("declarations missing metadata binding:\n%s", decls)
	}
	if !strings.Contains(decls, "t = Table('t', meta,") {
		t.Errorf("declarations missing table definition:\n%s", decls)
	}
	if !strings.Contains(upgrade, "t.create()") {
		t.Errorf("upgrade missing create for t:\n%s", upgrade)
	}
	if !strings.Contains(downgrade, "t.drop()") {
		t.Errorf("downgrade missing drop for t:\n%s", downgrade)
	}
}

func TestUpgradeDowngradeMirror(t *testing.T) {
	report := &diff.Report{
		TablesMissingInModel: []schema.Table{
			{Name: "legacy", Columns: []schema.Column{
				{Name: "id", Type: schema.Type{Kind: schema.Integer}, PrimaryKey: true},
			}},
		},
		TablesWithDiff: []diff.TableDiff{{
			TableName: "users",
			MissingInDatabase: []schema.Column{
				{Name: "created_at", Type: schema.Type{Kind: schema.DateTime}, Nullable: true},
			},
			MissingInModel: []schema.Column{
				{Name: "legacy_flag", Type: schema.Type{Kind: schema.Boolean}, Nullable: true},
			},
		}},
	}

	gen := NewModelGenerator(false)
	_, upgrade, downgrade := gen.UpgradeDowngrade(report)

	pairs := []struct{ up, down string }{
		{"legacy.drop()", "legacy.create()"},
		{"users.columns['created_at'].create()", "users.columns['created_at'].drop()"},
		{"users.columns['legacy_flag'].drop()", "users.columns['legacy_flag'].create()"},
	}
	for _, pair := range pairs {
		if !strings.Contains(upgrade, pair.up) {
			t.Errorf("upgrade missing %q:\n%s", pair.up, upgrade)
		}
		if !strings.Contains(downgrade, pair.down) {
			t.Errorf("downgrade missing %q:\n%s", pair.down, downgrade)
		}
	}
}

func TestUpgradeDowngradeAlteredColumnsFail(t *testing.T) {
	report := &diff.Report{
		TablesWithDiff: []diff.TableDiff{{
			TableName: "accounts",
			Altered: []diff.AlteredColumn{{
				Model:    schema.Column{Name: "login", Type: schema.Type{Kind: schema.String, Length: 50}},
				Database: schema.Column{Name: "login_name", Type: schema.Type{Kind: schema.Text}},
			}},
		}},
	}

	gen := NewModelGenerator(false)
	_, upgrade, downgrade := gen.UpgradeDowngrade(report)

	for _, direction := range []struct {
		label string
		text  string
	}{{"upgrade", upgrade}, {"downgrade", downgrade}} {
		if !strings.Contains(direction.text, "assert False") {
			t.Errorf("%s does not fail explicitly:\n%s", direction.label, direction.text)
		}
		for _, token := range []string{"accounts", "login", "login_name"} {
			if !strings.Contains(direction.text, token) {
				t.Errorf("%s failure does not name %q:\n%s", direction.label, token, direction.text)
			}
		}
	}
}

func TestUpgradeDowngradeBindPrefix(t *testing.T) {
	gen := NewModelGenerator(false)
	_, upgrade, downgrade := gen.UpgradeDowngrade(&diff.Report{})

	for _, text := range []string{upgrade, downgrade} {
		if !strings.HasPrefix(text, "    meta.bind = migrate_engine") {
			t.Errorf("command block does not start with the connection binding:\n%s", text)
		}
	}
}
