package catalog_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/MrWong99/vocalstock/internal/catalog"
	"github.com/MrWong99/vocalstock/internal/catalog/mock"
)

func sampleItems() []catalog.Item {
	return []catalog.Item{
		{ID: "1", Name: "Disposable Gloves", CurrentStock: 100},
		{ID: "2", Name: "Surgical Masks", CurrentStock: 40},
		{ID: "3", Name: "Syringes (10ml)", CurrentStock: 12},
		{ID: "4", Name: "Thermometers", CurrentStock: 5},
	}
}

func TestSimilarity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want float64
	}{
		{"abc", "abc", 1},
		{"abcd", "abdc", 0.75},
		{"mask", "surgical masks", 0.99},
		{"surgical masks", "mask", 0.99},
		{"", "x", 0},
		{"", "", 0},
	}
	for _, tc := range tests {
		if got := catalog.Similarity(tc.a, tc.b); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("Similarity(%q, %q) = %f, want %f", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestBestMatch(t *testing.T) {
	t.Parallel()

	items := sampleItems()

	tests := []struct {
		name   string
		target string
		wantID string
	}{
		{"substring boost", "Syringes", "3"},
		{"misspelling", "thermometr", "4"},
		{"accent folded", "Măști chirurgicale surgical masks", "2"},
		{"nothing close", "scalpel", ""},
		{"empty", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, _ := catalog.BestMatch(tc.target, items, catalog.DefaultThreshold)
			switch {
			case tc.wantID == "" && got != nil:
				t.Errorf("BestMatch(%q) = %q, want nil", tc.target, got.Name)
			case tc.wantID != "" && got == nil:
				t.Errorf("BestMatch(%q) = nil, want ID %s", tc.target, tc.wantID)
			case tc.wantID != "" && got.ID != tc.wantID:
				t.Errorf("BestMatch(%q) = %q, want ID %s", tc.target, got.Name, tc.wantID)
			}
		})
	}
}

func TestBestMatch_TieKeepsFirst(t *testing.T) {
	t.Parallel()

	items := []catalog.Item{{ID: "a", Name: "Gauze Pads"}, {ID: "b", Name: "Gauze Rolls"}}
	got, score := catalog.BestMatch("gauze", items, catalog.DefaultThreshold)
	if got == nil || got.ID != "a" {
		t.Fatalf("expected first item on tie, got %+v", got)
	}
	if score < 0.99 {
		t.Errorf("score = %f, want substring boost", score)
	}
}

func TestResolver_ExactWinsOverFuzzy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := catalog.NewMemStore()
	for _, name := range []string{"Disposable Gloves", "Gloves"} {
		if _, err := s.CreateItem(ctx, catalog.Item{Name: name}); err != nil {
			t.Fatal(err)
		}
	}
	r := catalog.NewResolver(s)

	got, err := r.Resolve(ctx, "gloves")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got == nil || got.Name != "Gloves" {
		t.Errorf("Resolve(gloves) = %+v, want exact Gloves", got)
	}
}

func TestResolver_Threshold(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := &mock.Store{Items: sampleItems()}
	r := catalog.NewResolver(store)

	got, err := r.Resolve(ctx, "thermometr")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got == nil || got.ID != "4" {
		t.Fatalf("Resolve(thermometr) = %+v, want Thermometers", got)
	}

	r.SetThreshold(0.95)
	if r.Threshold() != 0.95 {
		t.Errorf("Threshold = %f", r.Threshold())
	}
	got, err = r.Resolve(ctx, "thermometr")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != nil {
		t.Errorf("expected no match above raised threshold, got %+v", got)
	}

	if got, _ := r.Resolve(ctx, "  "); got != nil {
		t.Errorf("blank name resolved to %+v", got)
	}
}

func TestResolver_StoreErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	boom := errors.New("db down")

	r := catalog.NewResolver(&mock.Store{FindExactErr: boom})
	if _, err := r.Resolve(ctx, "gloves"); !errors.Is(err, boom) {
		t.Errorf("expected FindExact error, got %v", err)
	}

	r = catalog.NewResolver(&mock.Store{ListErr: boom})
	if _, err := r.Resolve(ctx, "gloves"); !errors.Is(err, boom) {
		t.Errorf("expected ListItems error, got %v", err)
	}
}
