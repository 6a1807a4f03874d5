package catalog

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// SeedItem is one entry of a seed file.
type SeedItem struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Unit        string `yaml:"unit"`
	Stock       int    `yaml:"stock"`
	Min         int    `yaml:"min"`
	Max         int    `yaml:"max"`
	Category    string `yaml:"category"`
	Location    string `yaml:"location"`
	Description string `yaml:"description"`
}

// Item converts s to an [Item], applying the voice-creation defaults for
// missing unit and max.
func (s SeedItem) Item() Item {
	it := Item{
		ID:           s.ID,
		Name:         strings.TrimSpace(s.Name),
		CurrentStock: s.Stock,
		Unit:         s.Unit,
		MinStock:     s.Min,
		MaxStock:     s.Max,
		Category:     s.Category,
		Location:     s.Location,
		Description:  s.Description,
	}
	if it.Unit == "" {
		it.Unit = DefaultUnit
	}
	if it.MaxStock == 0 {
		it.MaxStock = DefaultMaxStock
	}
	return it
}

// LoadSeedFile reads a YAML list of [SeedItem].
func LoadSeedFile(path string) ([]SeedItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open seed file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var items []SeedItem
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("catalog: decode seed file %q: %w", path, err)
	}
	for i, it := range items {
		if strings.TrimSpace(it.Name) == "" {
			return nil, fmt.Errorf("catalog: seed file %q: item %d has no name", path, i)
		}
		if it.Stock < 0 {
			return nil, fmt.Errorf("catalog: seed file %q: item %q: %w", path, it.Name, ErrNegativeStock)
		}
	}
	return items, nil
}

// ImportSeed inserts items into store when the store is empty. It returns the
// number of items created; a non-empty store is left untouched.
func ImportSeed(ctx context.Context, store Store, items []SeedItem) (int, error) {
	existing, err := store.ListItems(ctx)
	if err != nil {
		return 0, fmt.Errorf("catalog: seed: list items: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, s := range items {
		g.Go(func() error {
			if _, err := store.CreateItem(gctx, s.Item()); err != nil {
				return fmt.Errorf("catalog: seed %q: %w", s.Name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(items), nil
}
