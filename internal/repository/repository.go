// Package repository manages the versioned on-disk migration scripts.
package repository

import (
	"fmt"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

var scriptPattern = regexp.MustCompile(`^(\d{3})_(.+)\.script$`)

// Script is one stored migration script
type Script struct {
	Version int
	Name    string
	Path    string
}

// Repository is a directory of numbered migration scripts. Versions are
// dense and ascending; the next script always gets max+1.
type Repository struct {
	fs  afero.Fs
	dir string
}

// New creates a repository rooted at dir, creating it if needed
func New(fs afero.Fs, dir string) (*Repository, error) {
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create repository directory: %w", err)
	}
	return &Repository{fs: fs, dir: dir}, nil
}

// Scripts lists the stored scripts in version order
func (r *Repository) Scripts() ([]Script, error) {
	entries, err := afero.ReadDir(r.fs, r.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read repository directory: %w", err)
	}

	var scripts []Script
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := scriptPattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		version, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		scripts = append(scripts, Script{
			Version: version,
			Name:    m[2],
			Path:    path.Join(r.dir, entry.Name()),
		})
	}

	sort.Slice(scripts, func(i, j int) bool { return scripts[i].Version < scripts[j].Version })
	return scripts, nil
}

// LatestVersion returns the highest stored version, 0 when empty
func (r *Repository) LatestVersion() (int, error) {
	scripts, err := r.Scripts()
	if err != nil {
		return 0, err
	}
	if len(scripts) == 0 {
		return 0, nil
	}
	return scripts[len(scripts)-1].Version, nil
}

// Create stores a new script under the next version number and returns it.
// The script embeds the shared declarations and the two entry points the
// update machinery invokes with a live connection binding.
func (r *Repository) Create(name, decls, upgrade, downgrade string) (*Script, error) {
	latest, err := r.LatestVersion()
	if err != nil {
		return nil, err
	}
	version := latest + 1

	script := &Script{
		Version: version,
		Name:    sanitize(name),
		Path:    path.Join(r.dir, fmt.Sprintf("%03d_%s.script", version, sanitize(name))),
	}

	content := Render(decls, upgrade, downgrade)
	if err := afero.WriteFile(r.fs, script.Path, []byte(content), 0644); err != nil {
		return nil, fmt.Errorf("failed to write script: %w", err)
	}
	return script, nil
}

// Read returns the stored content of a script
func (r *Repository) Read(script *Script) (string, error) {
	data, err := afero.ReadFile(r.fs, script.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read script %s: %w", script.Path, err)
	}
	return string(data), nil
}

// Render assembles a self-contained script from the generated parts
func Render(decls, upgrade, downgrade string) string {
	var b strings.Builder
	b.WriteString(decls)
	b.WriteString("\n\ndef upgrade(migrate_engine):\n")
	b.WriteString(upgrade)
	b.WriteString("\n\ndef downgrade(migrate_engine):\n")
	b.WriteString(downgrade)
	b.WriteString("\n")
	return b.String()
}

func sanitize(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	name = strings.ReplaceAll(name, " ", "_")
	return name
}
