// Package transcript cleans raw speech-to-text output before it is structured
// into an inventory command.
//
// ASR output for short bilingual (English/Romanian) commands is noisy in
// predictable ways: filler words ("um", "please"), number words misheard as
// homophones ("free" for "three", "for" for "four"), inconsistent Unicode
// forms of Romanian letters, and stray whitespace. [Normalizer] fixes these
// deterministically; [ParseNumber] turns number words in either language
// into integers.
//
// Everything in this package is pure and safe for concurrent use.
package transcript

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Replacement maps one whole word (or phrase) to another.
type Replacement struct {
	From string
	To   string
}

// DefaultFillers are removed from every transcript.
var DefaultFillers = []string{"whatever", "please", "um", "uh", "like", "you know"}

// DefaultHomophones rewrites number words commonly misheard by ASR engines.
var DefaultHomophones = []Replacement{
	{"free", "three"},
	{"tree", "three"},
	{"to", "two"},
	{"too", "two"},
	{"for", "four"},
	{"won", "one"},
	{"oh", "zero"},
	{"o", "one"},
	{"ate", "eight"},
}

var (
	wordRe       = regexp.MustCompile(`[\p{L}\p{N}_]+`)
	spaceRe      = regexp.MustCompile(`\s+`)
	cedillaFixer = strings.NewReplacer("ş", "ș", "ţ", "ț", "Ş", "Ș", "Ţ", "Ț")
)

// Option is a functional option for configuring a [Normalizer].
type Option func(*Normalizer)

// WithFillers replaces the filler list. Entries may span several words.
func WithFillers(fillers []string) Option {
	return func(n *Normalizer) {
		n.fillers = fillers
	}
}

// WithHomophones replaces the homophone table. Only single-word entries are
// honoured; multi-word sources never match a single token.
func WithHomophones(h []Replacement) Option {
	return func(n *Normalizer) {
		n.homophones = h
	}
}

// Normalizer cleans transcripts. The zero value is not usable; call
// [NewNormalizer]. A Normalizer is read-only after construction.
type Normalizer struct {
	fillers    []string
	homophones []Replacement
	lookup     map[string]string
}

// NewNormalizer returns a Normalizer using the default tables unless
// overridden by opts.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{
		fillers:    DefaultFillers,
		homophones: DefaultHomophones,
	}
	for _, o := range opts {
		o(n)
	}
	n.lookup = make(map[string]string, len(n.homophones))
	for _, h := range n.homophones {
		from := strings.ToLower(h.From)
		if _, dup := n.lookup[from]; !dup {
			n.lookup[from] = h.To
		}
	}
	return n
}

var defaultNormalizer = NewNormalizer()

// Normalize cleans raw with the default tables.
func Normalize(raw string) string {
	return defaultNormalizer.Normalize(raw)
}

// Clean is [Normalizer.Clean] with the default tables.
func Clean(raw string) string {
	return defaultNormalizer.Clean(raw)
}

// Normalize returns the cleaned, lowercase form of raw:
//
//  1. NFC-normalise, fold cedilla ş/ţ to comma-below ș/ț, trim, lowercase.
//  2. Remove whole-word fillers.
//  3. Rewrite whole-word homophones in a single pass.
//  4. Collapse whitespace.
//
// It never fails; the result may be empty.
func (n *Normalizer) Normalize(raw string) string {
	s := wordRe.ReplaceAllStringFunc(n.Clean(raw), func(w string) string {
		if to, ok := n.lookup[w]; ok {
			return to
		}
		return w
	})
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// Clean is Normalize without the homophone pass. Words such as "to" and
// "for" keep their literal meaning, so a numeral found in the result was
// actually spoken.
func (n *Normalizer) Clean(raw string) string {
	s := cedillaFixer.Replace(norm.NFC.String(raw))
	s = cases.Lower(language.Und).String(strings.TrimSpace(s))

	for _, f := range n.fillers {
		s = replaceWord(s, strings.ToLower(f), "")
	}
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// replaceWord replaces every whole-word occurrence of word in s with repl.
// Word boundaries are Unicode letters, digits and underscore, so "like" is
// removed from "i like it" but not from "likely".
func replaceWord(s, word, repl string) string {
	if word == "" {
		return s
	}
	var b strings.Builder
	i := 0
	for {
		j := strings.Index(s[i:], word)
		if j < 0 {
			b.WriteString(s[i:])
			return b.String()
		}
		start, end := i+j, i+j+len(word)
		if isBoundary(s, start, end) {
			b.WriteString(s[i:start])
			b.WriteString(repl)
		} else {
			b.WriteString(s[i:end])
		}
		i = end
	}
}

// isBoundary reports whether s[start:end] is not glued to word characters.
func isBoundary(s string, start, end int) bool {
	if start > 0 {
		if r, _ := utf8.DecodeLastRuneInString(s[:start]); isWordRune(r) {
			return false
		}
	}
	if end < len(s) {
		if r, _ := utf8.DecodeRuneInString(s[end:]); isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Words splits s into word tokens (letters, digits, underscore).
func Words(s string) []string {
	return wordRe.FindAllString(s, -1)
}

// Fold lowercases s and strips diacritics so that "Mănuși" and "manusi"
// compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return cases.Fold().String(out)
}
