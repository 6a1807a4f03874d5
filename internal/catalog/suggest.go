package catalog

import (
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/MrWong99/vocalstock/internal/transcript"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// SuggesterOption is a functional option for [Suggester].
type SuggesterOption func(*Suggester)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score for an item whose
// Double Metaphone codes overlap the input. Default: 0.70.
func WithPhoneticThreshold(t float64) SuggesterOption {
	return func(s *Suggester) {
		s.phoneticThreshold = t
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score for items without
// phonetic overlap. Default: 0.85.
func WithFuzzyThreshold(t float64) SuggesterOption {
	return func(s *Suggester) {
		s.fuzzyThreshold = t
	}
}

// Suggester proposes a catalog name for a label that did not resolve, e.g.
// "siringes" → "Syringes (10ml)".
//
// Items whose Double Metaphone codes share a code with the input are
// preferred; among those the highest Jaro-Winkler score wins. Without any
// phonetic candidate, plain Jaro-Winkler against the stricter fuzzy threshold
// decides. Read-only after construction.
type Suggester struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// NewSuggester returns a Suggester with default thresholds.
func NewSuggester(opts ...SuggesterOption) *Suggester {
	s := &Suggester{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Suggest returns the name of the most similar item, or ok=false.
func (s *Suggester) Suggest(name string, items []Item) (suggestion string, ok bool) {
	input := tokens(name)
	if len(input) == 0 || len(items) == 0 {
		return "", false
	}
	inputCodes := metaphoneCodes(input)

	var (
		best         string
		bestScore    float64
		bestPhonetic bool
	)
	for _, it := range items {
		cand := tokens(it.Name)
		if len(cand) == 0 {
			continue
		}
		score := jwScore(input, cand)
		if overlaps(inputCodes, metaphoneCodes(cand)) {
			if score >= s.phoneticThreshold && (!bestPhonetic || score > bestScore) {
				best, bestScore, bestPhonetic = it.Name, score, true
			}
		} else if !bestPhonetic && score >= s.fuzzyThreshold && score > bestScore {
			best, bestScore = it.Name, score
		}
	}
	return best, best != ""
}

// tokens folds s and splits it into words; "(10ml)" style tokens survive as
// "10ml".
func tokens(s string) []string {
	return transcript.Words(transcript.Fold(s))
}

func metaphoneCodes(words []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(words)*2)
	for _, w := range words {
		p, sec := matchr.DoubleMetaphone(w)
		if p != "" {
			codes[p] = struct{}{}
		}
		if sec != "" {
			codes[sec] = struct{}{}
		}
	}
	return codes
}

func overlaps(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for c := range a {
		if _, ok := b[c]; ok {
			return true
		}
	}
	return false
}

// jwScore is the best Jaro-Winkler score over the joined strings, the
// space-free concatenations and every word pair.
func jwScore(a, b []string) float64 {
	score := matchr.JaroWinkler(strings.Join(a, " "), strings.Join(b, " "), false)
	if len(a) > 1 || len(b) > 1 {
		score = max(score, matchr.JaroWinkler(strings.Join(a, ""), strings.Join(b, ""), false))
	}
	for _, x := range a {
		for _, y := range b {
			score = max(score, matchr.JaroWinkler(x, y, false))
		}
	}
	return score
}
