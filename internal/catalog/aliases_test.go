package catalog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MrWong99/vocalstock/internal/catalog"
)

func TestAliases_Normalize(t *testing.T) {
	t.Parallel()

	a := catalog.NewAliases(catalog.DefaultAliasGroups)

	tests := []struct {
		in   string
		want string
	}{
		{"gloves", "Disposable Gloves"},
		{"  Glove ", "Disposable Gloves"},
		{"Mănuși", "Disposable Gloves"},
		{"manusi", "Disposable Gloves"},
		{"seringa", "Syringes (10ml)"},
		{"măști", "Surgical Masks"},
		{"surgical masks", "Surgical Masks"},
		{"saline solution", "Antiseptic Solution"},
		{"termometre", "Thermometers"},
		{"scalpel blades", "Scalpel Blades"},
	}
	for _, tc := range tests {
		got := a.Normalize(tc.in)
		if got == nil {
			t.Errorf("Normalize(%q) = nil, want %q", tc.in, tc.want)
			continue
		}
		if *got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, *got, tc.want)
		}
	}

	for _, empty := range []string{"", "   "} {
		if got := a.Normalize(empty); got != nil {
			t.Errorf("Normalize(%q) = %q, want nil", empty, *got)
		}
	}
}

func TestAliases_Replace(t *testing.T) {
	t.Parallel()

	a := catalog.NewAliases(catalog.DefaultAliasGroups)
	a.Replace([]catalog.AliasGroup{{Label: "Gauze Pads", Aliases: []string{"gauze", "tifon"}}})

	if a.Len() != 2 {
		t.Errorf("Len = %d, want 2", a.Len())
	}
	if got := a.Normalize("tifon"); got == nil || *got != "Gauze Pads" {
		t.Errorf("Normalize(tifon) = %v", got)
	}
	if got := a.Normalize("gloves"); got == nil || *got != "Gloves" {
		t.Errorf("old table still active: Normalize(gloves) = %v", got)
	}
}

func TestLoadAliasFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := filepath.Join(dir, "aliases.yaml")
	writeFile(t, good, `
- label: Disposable Gloves
  aliases: [glove, gloves, mănuși]
- label: Gauze Pads
  aliases: [gauze, tifon]
`)
	groups, err := catalog.LoadAliasFile(good)
	if err != nil {
		t.Fatalf("LoadAliasFile: %v", err)
	}
	if len(groups) != 2 || groups[1].Label != "Gauze Pads" || len(groups[0].Aliases) != 3 {
		t.Errorf("unexpected groups %+v", groups)
	}

	unknown := filepath.Join(dir, "unknown.yaml")
	writeFile(t, unknown, "- label: X\n  names: [x]\n")
	if _, err := catalog.LoadAliasFile(unknown); err == nil {
		t.Error("expected error for unknown field")
	}

	noLabel := filepath.Join(dir, "nolabel.yaml")
	writeFile(t, noLabel, "- aliases: [x]\n")
	if _, err := catalog.LoadAliasFile(noLabel); err == nil {
		t.Error("expected error for missing label")
	}

	if _, err := catalog.LoadAliasFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
