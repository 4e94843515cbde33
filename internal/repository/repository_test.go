package repository

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func TestCreateAssignsDenseVersions(t *testing.T) {
	fs := afero.NewMemMapFs()
	repo, err := New(fs, "migrations")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	first, err := repo.Create("add users", "decls", "up", "down")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if first.Version != 1 {
		t.Errorf("first version = %d, want 1", first.Version)
	}
	if first.Path != "migrations/001_add_users.script" {
		t.Errorf("first path = %q", first.Path)
	}

	second, err := repo.Create("drop legacy", "decls", "up", "down")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if second.Version != 2 {
		t.Errorf("second version = %d, want 2", second.Version)
	}

	latest, err := repo.LatestVersion()
	if err != nil {
		t.Fatalf("LatestVersion failed: %v", err)
	}
	if latest != 2 {
		t.Errorf("latest = %d, want 2", latest)
	}
}

func TestScriptsSortedAndFiltered(t *testing.T) {
	fs := afero.NewMemMapFs()
	repo, err := New(fs, "migrations")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for _, name := range []string{"003_third.script", "001_first.script", "002_second.script", "README.md", "junk.txt"} {
		if err := afero.WriteFile(fs, "migrations/"+name, []byte("x"), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	scripts, err := repo.Scripts()
	if err != nil {
		t.Fatalf("Scripts failed: %v", err)
	}
	if len(scripts) != 3 {
		t.Fatalf("got %d scripts, want 3", len(scripts))
	}
	for i, want := range []string{"first", "second", "third"} {
		if scripts[i].Version != i+1 || scripts[i].Name != want {
			t.Errorf("scripts[%d] = %d %q, want %d %q", i, scripts[i].Version, scripts[i].Name, i+1, want)
		}
	}
}

func TestRenderEntryPoints(t *testing.T) {
	content := Render("meta = MetaData(migrate_engine)", "    pass", "    pass")

	if !strings.HasPrefix(content, "meta = MetaData(migrate_engine)") {
		t.Errorf("declarations not at top:\n%s", content)
	}
	upIdx := strings.Index(content, "def upgrade(migrate_engine):")
	downIdx := strings.Index(content, "def downgrade(migrate_engine):")
	if upIdx == -1 || downIdx == -1 {
		t.Fatalf("missing entry point:\n%s", content)
	}
	if upIdx > downIdx {
		t.Error("upgrade must come before downgrade")
	}
}

func TestReadReturnsStoredContent(t *testing.T) {
	fs := afero.NewMemMapFs()
	repo, err := New(fs, "migrations")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	script, err := repo.Create("initial", "decls", "    up_body", "    down_body")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	content, err := repo.Read(script)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !strings.Contains(content, "up_body") || !strings.Contains(content, "down_body") {
		t.Errorf("stored content incomplete:\n%s", content)
	}
}
