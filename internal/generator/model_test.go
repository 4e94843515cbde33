package generator

import (
	"strings"
	"testing"

	"github.com/koba/db-migrate/internal/diff"
	"github.com/koba/db-migrate/internal/schema"
)

func strPtr(s string) *string { return &s }

func TestColumnDecl(t *testing.T) {
	tests := []struct {
		name string
		col  schema.Column
		want string
	}{
		{
			"plain nullable column",
			schema.Column{Name: "email", Type: schema.Type{Kind: schema.String, Length: 255}, Nullable: true},
			"Column('email', String(255))",
		},
		{
			"primary key renders boolean literal",
			schema.Column{Name: "id", Type: schema.Type{Kind: schema.Integer}, PrimaryKey: true},
			"Column('id', Integer, primary_key=True, nullable=False)",
		},
		{
			"not nullable",
			schema.Column{Name: "name", Type: schema.Type{Kind: schema.Text}},
			"Column('name', Text, nullable=False)",
		},
		{
			"key alias",
			schema.Column{Name: "user_name", Key: "username", Type: schema.Type{Kind: schema.Text}, Nullable: true},
			"Column('user_name', Text, key='username')",
		},
		{
			"onupdate and default order",
			schema.Column{
				Name:     "updated_at",
				Type:     schema.Type{Kind: schema.DateTime},
				Nullable: true,
				OnUpdate: strPtr("now()"),
				Default:  strPtr("now()"),
			},
			"Column('updated_at', DateTime, onupdate='now()', default='now()')",
		},
		{
			"primary key suppresses default",
			schema.Column{
				Name:       "id",
				Type:       schema.Type{Kind: schema.Integer},
				PrimaryKey: true,
				Default:    strPtr("nextval('users_id_seq')"),
			},
			"Column('id', Integer, primary_key=True, nullable=False)",
		},
		{
			"constraints before keyword arguments",
			schema.Column{
				Name:     "owner_id",
				Type:     schema.Type{Kind: schema.Integer},
				Nullable: true,
				Constraints: []schema.Constraint{
					{Kind: schema.ForeignKey, ReferencedTable: "users", ReferencedColumn: "id"},
				},
				Default: strPtr("0"),
			},
			"Column('owner_id', Integer, ForeignKey('users.id'), default='0')",
		},
	}

	gen := NewModelGenerator(false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gen.ColumnDecl(&tt.col); got != tt.want {
				t.Errorf("ColumnDecl() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestColumnDeclDeterminism(t *testing.T) {
	col := schema.Column{
		Name:     "x",
		Key:      "y",
		Type:     schema.Type{Kind: schema.Numeric},
		OnUpdate: strPtr("now()"),
		Default:  strPtr("1"),
	}
	gen := NewModelGenerator(false)

	first := gen.ColumnDecl(&col)
	for i := 0; i < 10; i++ {
		if got := gen.ColumnDecl(&col); got != first {
			t.Fatalf("rendering not deterministic: %q vs %q", got, first)
		}
	}

	// fixed keyword order: key, primary_key, nullable, onupdate, default
	keyIdx := strings.Index(first, "key=")
	nullableIdx := strings.Index(first, "nullable=")
	onupdateIdx := strings.Index(first, "onupdate=")
	defaultIdx := strings.Index(first, "default=")
	if !(keyIdx < nullableIdx && nullableIdx < onupdateIdx && onupdateIdx < defaultIdx) {
		t.Errorf("keyword arguments out of order: %q", first)
	}
}

func TestColumnDeclDeclarativeStyle(t *testing.T) {
	col := schema.Column{Name: "email", Type: schema.Type{Kind: schema.Text}, Nullable: true}
	gen := NewModelGenerator(true)

	want := "email = Column(Text)"
	if got := gen.ColumnDecl(&col); got != want {
		t.Errorf("ColumnDecl() = %q, want %q", got, want)
	}
}

func TestTableDefn(t *testing.T) {
	table := schema.Table{
		Name: "users",
		Columns: []schema.Column{
			{Name: "id", Type: schema.Type{Kind: schema.Integer}, PrimaryKey: true},
			{Name: "email", Type: schema.Type{Kind: schema.String, Length: 100}, Nullable: true},
		},
	}

	t.Run("table style", func(t *testing.T) {
		gen := NewModelGenerator(false)
		got := strings.Join(gen.TableDefn(&table), "\n")
		want := "users = Table('users', meta,\n" +
			"  Column('id', Integer, primary_key=True, nullable=False),\n" +
			"  Column('email', String(100)),\n" +
			")"
		if got != want {
			t.Errorf("TableDefn() =\n%s\nwant\n%s", got, want)
		}
	})

	t.Run("declarative style", func(t *testing.T) {
		gen := NewModelGenerator(true)
		got := strings.Join(gen.TableDefn(&table), "\n")
		want := "class users(Base):\n" +
			"  __tablename__ = 'users'\n" +
			"  id = Column(Integer, primary_key=True, nullable=False)\n" +
			"  email = Column(String(100))"
		if got != want {
			t.Errorf("TableDefn() =\n%s\nwant\n%s", got, want)
		}
	})
}

func TestModelFromDatabase(t *testing.T) {
	report := &diff.Report{
		TablesMissingInModel: []schema.Table{
			{Name: "users", Columns: []schema.Column{
				{Name: "id", Type: schema.Type{Kind: schema.Integer}, PrimaryKey: true},
			}},
		},
		// missing-in-database tables are not part of a bootstrapped model
		TablesMissingInDatabase: []schema.Table{
			{Name: "pending", Columns: []schema.Column{
				{Name: "id", Type: schema.Type{Kind: schema.Integer}, PrimaryKey: true},
			}},
		},
	}

	gen := NewModelGenerator(false)
	out := gen.Model(report)

	if !strings.HasPrefix(out, header) {
		t.Errorf("model output missing preamble:\n%s", out)
	}
	if !strings.Contains(out, "users = Table('users', meta,") {
		t.Errorf("model output missing users table:\n%s", out)
	}
	if strings.Contains(out, "pending") {
		t.Errorf("model output should only contain database-only tables:\n%s", out)
	}
}
