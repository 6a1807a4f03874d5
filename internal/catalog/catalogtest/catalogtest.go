// Package catalogtest holds a conformance suite every catalog.Store
// implementation must pass.
package catalogtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrWong99/vocalstock/internal/catalog"
)

// Run exercises store. newStore must return an empty store each call.
func Run(t *testing.T, newStore func(t *testing.T) catalog.Store) {
	t.Helper()

	t.Run("CreateGet", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		created, err := s.CreateItem(ctx, catalog.Item{
			Name: "Disposable Gloves", CurrentStock: 100, Unit: "pairs",
			MinStock: 20, MaxStock: 500, Category: "PPE", Location: "Cabinet A",
		})
		if err != nil {
			t.Fatalf("CreateItem: %v", err)
		}
		if created.ID == "" {
			t.Fatal("expected generated ID")
		}

		got, err := s.Get(ctx, created.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Name != "Disposable Gloves" || got.CurrentStock != 100 || got.Unit != "pairs" ||
			got.MinStock != 20 || got.MaxStock != 500 || got.Category != "PPE" || got.Location != "Cabinet A" {
			t.Errorf("round trip mismatch: %+v", got)
		}

		if _, err := s.CreateItem(ctx, catalog.Item{ID: created.ID, Name: "Other"}); !errors.Is(err, catalog.ErrDuplicateID) {
			t.Errorf("duplicate ID: err = %v, want ErrDuplicateID", err)
		}
		if _, err := s.Get(ctx, "does-not-exist"); !errors.Is(err, catalog.ErrNotFound) {
			t.Errorf("missing ID: err = %v, want ErrNotFound", err)
		}
	})

	t.Run("SetStock", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		it, err := s.CreateItem(ctx, catalog.Item{ID: "masks", Name: "Surgical Masks", CurrentStock: 40, Unit: "boxes"})
		if err != nil {
			t.Fatalf("CreateItem: %v", err)
		}
		if err := s.SetStock(ctx, it.ID, 35); err != nil {
			t.Fatalf("SetStock: %v", err)
		}
		got, err := s.Get(ctx, it.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.CurrentStock != 35 {
			t.Errorf("CurrentStock = %d, want 35", got.CurrentStock)
		}
		if err := s.SetStock(ctx, it.ID, -1); !errors.Is(err, catalog.ErrNegativeStock) {
			t.Errorf("negative: err = %v, want ErrNegativeStock", err)
		}
		if err := s.SetStock(ctx, "nope", 1); !errors.Is(err, catalog.ErrNotFound) {
			t.Errorf("missing: err = %v, want ErrNotFound", err)
		}
	})

	t.Run("ListAndFindExact", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		for _, name := range []string{"Thermometers", "bandages", "Antiseptic Solution"} {
			if _, err := s.CreateItem(ctx, catalog.Item{Name: name, Unit: catalog.DefaultUnit}); err != nil {
				t.Fatalf("CreateItem(%q): %v", name, err)
			}
		}
		items, err := s.ListItems(ctx)
		if err != nil {
			t.Fatalf("ListItems: %v", err)
		}
		want := []string{"Antiseptic Solution", "bandages", "Thermometers"}
		if len(items) != len(want) {
			t.Fatalf("got %d items, want %d", len(items), len(want))
		}
		for i, name := range want {
			if items[i].Name != name {
				t.Errorf("items[%d] = %q, want %q", i, items[i].Name, name)
			}
		}

		found, err := s.FindExact(ctx, "THERMOMETERS")
		if err != nil {
			t.Fatalf("FindExact: %v", err)
		}
		if found == nil || found.Name != "Thermometers" {
			t.Errorf("FindExact(THERMOMETERS) = %+v", found)
		}
		found, err = s.FindExact(ctx, "thermo")
		if err != nil {
			t.Fatalf("FindExact: %v", err)
		}
		if found != nil {
			t.Errorf("FindExact(thermo) = %+v, want nil", found)
		}
	})

	t.Run("FindExactNonASCIICase", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		if _, err := s.CreateItem(ctx, catalog.Item{Name: "mănuși", Unit: catalog.DefaultUnit}); err != nil {
			t.Fatalf("CreateItem: %v", err)
		}
		found, err := s.FindExact(ctx, "MĂNUȘI")
		if err != nil {
			t.Fatalf("FindExact: %v", err)
		}
		if found == nil || found.Name != "mănuși" {
			t.Errorf("FindExact(MĂNUȘI) = %+v, want mănuși", found)
		}
	})

	t.Run("UsageLogs", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
		for i, itemID := range []string{"a", "b", "a"} {
			if _, err := s.AppendUsageLog(ctx, catalog.UsageLog{
				ItemID:    itemID,
				Quantity:  i + 1,
				Actor:     "voice_user",
				Timestamp: base.Add(time.Duration(i) * time.Minute),
				Note:      "note",
			}); err != nil {
				t.Fatalf("AppendUsageLog: %v", err)
			}
		}

		all, err := s.UsageLogs(ctx, "")
		if err != nil {
			t.Fatalf("UsageLogs: %v", err)
		}
		if len(all) != 3 || all[0].Quantity != 3 || all[2].Quantity != 1 {
			t.Fatalf("unexpected order: %+v", all)
		}
		if all[0].ID == "" || all[0].Actor != "voice_user" || all[0].Note != "note" {
			t.Errorf("fields not stored: %+v", all[0])
		}
		if !all[0].Timestamp.Equal(base.Add(2 * time.Minute)) {
			t.Errorf("Timestamp = %v", all[0].Timestamp)
		}

		onlyA, err := s.UsageLogs(ctx, "a")
		if err != nil {
			t.Fatalf("UsageLogs(a): %v", err)
		}
		if len(onlyA) != 2 {
			t.Errorf("got %d logs for a, want 2", len(onlyA))
		}
	})
}
