package structure

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/MrWong99/vocalstock/internal/transcript"
)

// Keyword families, checked in this order. A later family that matches
// overrides an earlier one. Entries match at the start of a word, so stems
// such as "folos" cover "folosit" and "folosesc".
var (
	UsageKeywords = []string{
		"use", "used", "take", "took", "consume", "consumed",
		"folos", "consum", "am luat", "am folosit", "iau ",
	}
	UpdateKeywords = []string{
		"add", "adauga", "adaugă", "update", "set", "restock", "re-stock", "pun ",
	}
	QueryKeywords = []string{
		"how many", "do we have", "cat avem", "cât avem", "câte", "cate",
		"avem", "stoc", "stock", "have left", "available", "left",
	}
)

var (
	digitRe     = regexp.MustCompile(`\d+`)
	queryItemRe = regexp.MustCompile(`(?:how many|cate|câte|cat|cât)\s+([a-zăâîșț\s\-]+?)(?:\s+(?:do we have|avem))?\??$`)
	verbItemRe  = regexp.MustCompile(`(?:add|adauga|adaugă|update|set|use|used|take|took|consume|consumed|folos|consum|am folosit|iau|pun|am luat)\s+(?:\d+|[a-zăâîșț]+)\s+([a-zăâîșț0-9\s\-]+)`)
	alphaRe     = regexp.MustCompile(`[a-zăâîșț\-]+`)
)

// Fallback structures text with fixed rules. It never fails: anything it
// cannot recognise is left unknown or nil. text is expected to be the output
// of transcript.Normalize.
func Fallback(text string) Command {
	return FallbackInput(Input{Normalized: text})
}

// FallbackInput is [Fallback] with the literal text available. The quantity
// comes from a numeral in in.Literal when there is one, so "set masks to
// twenty" is 20 rather than the "two" produced by the homophone pass. The
// normalized text is used otherwise, which keeps "took free syringes" at 3.
func FallbackInput(in Input) Command {
	text := strings.ToLower(strings.TrimSpace(in.Normalized))

	qty := literalQuantity(in.Literal)
	if qty == nil {
		qty = extractQuantity(text)
	}

	kind := KindUnknown
	if containsAny(text, UsageKeywords) && qty != nil && *qty > 0 {
		kind = KindUsage
	}
	if containsAny(text, UpdateKeywords) && qty != nil {
		kind = KindUpdate
	}
	if containsAny(text, QueryKeywords) {
		kind = KindQuery
	}

	return Command{
		Kind:     kind,
		Item:     extractItem(text, kind),
		Quantity: qty,
	}
}

// FallbackStrategy adapts [Fallback] to the Strategy interface.
type FallbackStrategy struct{}

var _ Strategy = FallbackStrategy{}

// Name implements Strategy.
func (FallbackStrategy) Name() string { return "fallback" }

// Structure implements Strategy. It never returns an error.
func (FallbackStrategy) Structure(_ context.Context, in Input) (Result, error) {
	cmd := FallbackInput(in)
	return Result{Command: cmd, LowConfidence: lowConfidence(cmd), Source: "fallback"}, nil
}

// extractQuantity prefers the first digit run, then number words.
func extractQuantity(text string) *int {
	if m := digitRe.FindString(text); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			return &n
		}
		return nil
	}
	if n, ok := transcript.ParseNumberText(text); ok {
		return &n
	}
	return nil
}

// literalQuantity reads digits or an explicit numeral from the text before
// homophone rewriting. A lone article does not count here.
func literalQuantity(literal string) *int {
	literal = strings.ToLower(strings.TrimSpace(literal))
	if literal == "" {
		return nil
	}
	if m := digitRe.FindString(literal); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			return &n
		}
		return nil
	}
	if n, ok := transcript.ParseNumeralText(literal); ok {
		return &n
	}
	return nil
}

func extractItem(text string, kind Kind) *string {
	if kind == KindQuery {
		if m := queryItemRe.FindStringSubmatch(text); m != nil {
			if item := cleanItem(m[1]); item != "" {
				return ptr(titleCase(item))
			}
		}
	} else if m := verbItemRe.FindStringSubmatch(text); m != nil {
		if item := cleanItem(m[1]); item != "" {
			return ptr(titleCase(item))
		}
	}
	return lastItemToken(text)
}

// cleanItem drops numeral tokens from a captured item span, so that
// "set gloves two 30" does not yield the item "two 30".
func cleanItem(span string) string {
	var keep []string
	for _, tok := range strings.Fields(span) {
		if isNumeral(tok) {
			continue
		}
		keep = append(keep, tok)
	}
	return strings.Join(keep, " ")
}

// lastItemToken returns the last alphabetic token that is not a numeral.
func lastItemToken(text string) *string {
	toks := alphaRe.FindAllString(text, -1)
	for i := len(toks) - 1; i >= 0; i-- {
		tok := strings.Trim(toks[i], "-")
		if tok == "" || isNumeral(tok) {
			continue
		}
		return ptr(titleCase(tok))
	}
	return nil
}

func isNumeral(tok string) bool {
	if _, err := strconv.Atoi(tok); err == nil {
		return true
	}
	_, ok := transcript.ParseNumber([]string{tok})
	return ok && !isArticle(tok)
}

func isArticle(tok string) bool {
	switch tok {
	case "a", "an", "o", "un", "una":
		return true
	}
	return false
}

func titleCase(s string) string {
	return cases.Title(language.Und).String(strings.TrimSpace(s))
}

// containsAny reports whether any keyword occurs in text starting at a word
// boundary.
func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if hasWordPrefix(text, kw) {
			return true
		}
	}
	return false
}

func hasWordPrefix(text, kw string) bool {
	for i := 0; i <= len(text)-len(kw); {
		j := strings.Index(text[i:], kw)
		if j < 0 {
			return false
		}
		at := i + j
		if at == 0 {
			return true
		}
		if r, _ := utf8.DecodeLastRuneInString(text[:at]); !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return true
		}
		i = at + 1
	}
	return false
}
