package catalog_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/MrWong99/vocalstock/internal/catalog"
)

const seedYAML = `
- name: Disposable Gloves
  unit: pairs
  stock: 100
  min: 20
  max: 500
  category: PPE
  location: Cabinet A
- name: Surgical Masks
  stock: 40
`

func TestLoadSeedFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "seed.yaml")
	writeFile(t, path, seedYAML)

	items, err := catalog.LoadSeedFile(path)
	if err != nil {
		t.Fatalf("LoadSeedFile: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	masks := items[1].Item()
	if masks.Unit != catalog.DefaultUnit || masks.MaxStock != catalog.DefaultMaxStock {
		t.Errorf("defaults not applied: %+v", masks)
	}
	gloves := items[0].Item()
	if gloves.Unit != "pairs" || gloves.MinStock != 20 || gloves.Location != "Cabinet A" {
		t.Errorf("unexpected gloves %+v", gloves)
	}
}

func TestLoadSeedFile_Invalid(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for name, content := range map[string]string{
		"noname.yaml":   "- stock: 3\n",
		"negative.yaml": "- name: X\n  stock: -1\n",
		"unknown.yaml":  "- name: X\n  colour: red\n",
	} {
		path := filepath.Join(dir, name)
		writeFile(t, path, content)
		if _, err := catalog.LoadSeedFile(path); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestImportSeed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "seed.yaml")
	writeFile(t, path, seedYAML)
	seed, err := catalog.LoadSeedFile(path)
	if err != nil {
		t.Fatal(err)
	}

	s := catalog.NewMemStore()
	n, err := catalog.ImportSeed(ctx, s, seed)
	if err != nil {
		t.Fatalf("ImportSeed: %v", err)
	}
	if n != 2 {
		t.Errorf("imported %d, want 2", n)
	}

	// A second import into a populated store is a no-op.
	n, err = catalog.ImportSeed(ctx, s, seed)
	if err != nil {
		t.Fatalf("ImportSeed (second): %v", err)
	}
	if n != 0 {
		t.Errorf("second import created %d items", n)
	}
	items, _ := s.ListItems(ctx)
	if len(items) != 2 {
		t.Errorf("store has %d items, want 2", len(items))
	}
}
