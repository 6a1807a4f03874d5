package catalog

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/antzucaro/matchr"

	"github.com/MrWong99/vocalstock/internal/transcript"
)

const (
	// DefaultThreshold is the minimum similarity for a fuzzy match.
	DefaultThreshold = 0.6

	substringScore = 0.99
)

// ResolverOption is a functional option for [Resolver].
type ResolverOption func(*Resolver)

// WithThreshold sets the fuzzy match threshold. Default: 0.6.
func WithThreshold(t float64) ResolverOption {
	return func(r *Resolver) {
		r.SetThreshold(t)
	}
}

// Resolver finds the catalog entry a label refers to.
type Resolver struct {
	store     Store
	threshold atomic.Uint64
}

// NewResolver returns a Resolver reading from store.
func NewResolver(store Store, opts ...ResolverOption) *Resolver {
	r := &Resolver{store: store}
	r.SetThreshold(DefaultThreshold)
	for _, o := range opts {
		o(r)
	}
	return r
}

// SetThreshold changes the fuzzy threshold. Safe to call while resolving.
func (r *Resolver) SetThreshold(t float64) {
	r.threshold.Store(math.Float64bits(t))
}

// Threshold returns the current fuzzy threshold.
func (r *Resolver) Threshold() float64 {
	return math.Float64frombits(r.threshold.Load())
}

// Resolve returns the item name refers to, or (nil, nil) when nothing is
// close enough. An exact case-insensitive name match wins over fuzzy
// matching. Store errors are returned.
func (r *Resolver) Resolve(ctx context.Context, name string) (*Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	exact, err := r.store.FindExact(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("catalog: resolve %q: %w", name, err)
	}
	if exact != nil {
		return exact, nil
	}

	items, err := r.store.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: resolve %q: %w", name, err)
	}
	best, _ := BestMatch(name, items, r.Threshold())
	return best, nil
}

// BestMatch returns the highest-scoring item and its score, or nil when the
// best score is below threshold. Ties keep the earlier item.
func BestMatch(name string, items []Item, threshold float64) (*Item, float64) {
	target := transcript.Fold(strings.TrimSpace(name))
	if target == "" {
		return nil, 0
	}

	bestIdx, bestScore := -1, 0.0
	for i := range items {
		score := Similarity(target, transcript.Fold(items[i].Name))
		if score > bestScore {
			bestIdx, bestScore = i, score
		}
	}
	if bestIdx < 0 || bestScore < threshold {
		return nil, bestScore
	}
	it := items[bestIdx]
	return &it, bestScore
}

// Similarity scores a and b in [0,1] as 2·LCS/(|a|+|b|) over runes. When one
// contains the other the score is at least 0.99. Inputs are compared as
// given; callers fold case beforehand.
func Similarity(a, b string) float64 {
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 || a == "" || b == "" {
		return 0
	}
	score := 2 * float64(matchr.LongestCommonSubsequence(a, b)) / float64(total)
	if strings.Contains(a, b) || strings.Contains(b, a) {
		score = max(score, substringScore)
	}
	return score
}
