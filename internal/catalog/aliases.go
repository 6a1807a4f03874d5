package catalog

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/MrWong99/vocalstock/internal/transcript"
)

// AliasGroup maps a list of spoken forms to one canonical label.
type AliasGroup struct {
	Label   string   `yaml:"label"`
	Aliases []string `yaml:"aliases"`
}

// DefaultAliasGroups is the built-in English/Romanian table. Order matters:
// substring lookups return the first hit.
var DefaultAliasGroups = []AliasGroup{
	{"Disposable Gloves", []string{"glove", "gloves", "mănușă", "mănuși"}},
	{"Surgical Masks", []string{"mask", "masks", "mască", "măști"}},
	{"Syringes (10ml)", []string{"syringe", "syringes", "seringă", "seringi"}},
	{"Bandages", []string{"bandage", "bandages", "bandaj", "bandaje"}},
	{"Thermometers", []string{"thermometer", "thermometers", "termometru", "termometre"}},
	{"Antiseptic Solution", []string{"antiseptic", "solution", "soluție"}},
}

type aliasEntry struct {
	folded string
	label  string
}

// Aliases is the item normalizer. The table can be swapped at runtime with
// [Aliases.Replace]; lookups see either the old or the new table, never a mix.
type Aliases struct {
	mu      sync.RWMutex
	entries []aliasEntry
}

// NewAliases builds an Aliases table from groups, preserving order.
func NewAliases(groups []AliasGroup) *Aliases {
	a := &Aliases{}
	a.Replace(groups)
	return a
}

// Replace swaps in a new table.
func (a *Aliases) Replace(groups []AliasGroup) {
	entries := make([]aliasEntry, 0, len(groups)*4)
	for _, g := range groups {
		for _, alias := range g.Aliases {
			folded := transcript.Fold(strings.TrimSpace(alias))
			if folded == "" {
				continue
			}
			entries = append(entries, aliasEntry{folded: folded, label: g.Label})
		}
	}

	a.mu.Lock()
	a.entries = entries
	a.mu.Unlock()
}

// Len returns the number of aliases.
func (a *Aliases) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.entries)
}

// Normalize maps raw to a canonical label:
//
//  1. exact alias match,
//  2. the first alias contained in raw, or containing raw,
//  3. raw in title case.
//
// Comparison ignores case and diacritics. Empty input yields nil.
func (a *Aliases) Normalize(raw string) *string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return nil
	}
	folded := transcript.Fold(s)

	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, e := range a.entries {
		if e.folded == folded {
			label := e.label
			return &label
		}
	}
	for _, e := range a.entries {
		if strings.Contains(folded, e.folded) || strings.Contains(e.folded, folded) {
			label := e.label
			return &label
		}
	}
	title := cases.Title(language.Und).String(s)
	return &title
}

// LoadAliasFile reads a YAML list of alias groups:
//
//	- label: Disposable Gloves
//	  aliases: [glove, gloves, mănușă, mănuși]
func LoadAliasFile(path string) ([]AliasGroup, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open alias file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var groups []AliasGroup
	if err := dec.Decode(&groups); err != nil {
		return nil, fmt.Errorf("catalog: decode alias file %q: %w", path, err)
	}
	for i, g := range groups {
		if strings.TrimSpace(g.Label) == "" {
			return nil, fmt.Errorf("catalog: alias file %q: group %d has no label", path, i)
		}
	}
	return groups, nil
}
