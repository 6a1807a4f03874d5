package transcript

// Number words are keyed by their folded (diacritic-free) form so that
// "douăzeci", "douazeci" and "DOUĂZECI" all resolve.
var (
	units = map[string]int{
		"zero": 0,
		"one": 1, "unu": 1,
		"two": 2, "doi": 2, "doua": 2,
		"three": 3, "trei": 3,
		"four": 4, "patru": 4,
		"five": 5, "cinci": 5,
		"six": 6, "sase": 6,
		"seven": 7, "sapte": 7,
		"eight": 8, "opt": 8,
		"nine": 9, "noua": 9,
	}

	teens = map[string]int{
		"ten": 10, "zece": 10,
		"eleven": 11, "unsprezece": 11,
		"twelve": 12, "doisprezece": 12, "douasprezece": 12,
		"thirteen": 13, "treisprezece": 13,
		"fourteen": 14, "paisprezece": 14, "patrusprezece": 14,
		"fifteen": 15, "cincisprezece": 15,
		"sixteen": 16, "saisprezece": 16,
		"seventeen": 17, "saptesprezece": 17,
		"eighteen": 18, "optsprezece": 18,
		"nineteen": 19, "nouasprezece": 19,
	}

	tens = map[string]int{
		"twenty": 20, "douazeci": 20,
		"thirty": 30, "treizeci": 30,
		"forty": 40, "patruzeci": 40,
		"fifty": 50, "cincizeci": 50,
		"sixty": 60, "saizeci": 60,
		"seventy": 70, "saptezeci": 70,
		"eighty": 80, "optzeci": 80,
		"ninety": 90, "nouazeci": 90,
	}

	hundreds = map[string]bool{"hundred": true, "hundreds": true, "suta": true, "sute": true}

	// articles mean "one" only when nothing else in the utterance is a numeral.
	articles = map[string]bool{"a": true, "an": true, "o": true, "un": true, "una": true}

	conjunctions = map[string]bool{"si": true, "and": true}
)

// ParseNumber scans words left to right and returns the value of the first
// numeral span, consuming the longest recognised span at that position:
//
//	"three"                 → 3
//	"twenty three"          → 23
//	"douăzeci și trei"      → 23
//	"two hundred and five"  → 205
//
// A lone article ("a", "o", "un") counts as 1 when no other numeral is
// present. ok is false when nothing numeric is found. It never panics.
func ParseNumber(words []string) (n int, ok bool) {
	folded := make([]string, len(words))
	for i, w := range words {
		folded[i] = Fold(w)
	}

	if v, ok := firstSpan(folded); ok {
		return v, true
	}

	for _, w := range folded {
		if articles[w] {
			return 1, true
		}
	}
	return 0, false
}

// ParseNumberText is ParseNumber over the word tokens of s.
func ParseNumberText(s string) (int, bool) {
	return ParseNumber(Words(s))
}

// ParseNumeralText is ParseNumberText without the lone-article rule: only an
// explicit numeral counts.
func ParseNumeralText(s string) (int, bool) {
	words := Words(s)
	for i, w := range words {
		words[i] = Fold(w)
	}
	return firstSpan(words)
}

func firstSpan(folded []string) (int, bool) {
	for i := range folded {
		if v, size := parseSpan(folded, i); size > 0 {
			return v, true
		}
	}
	return 0, false
}

// parseSpan parses the longest numeral starting at w[i]. size is the number of
// tokens consumed, zero when w[i] does not start a numeral.
func parseSpan(w []string, i int) (value, size int) {
	// [unit|article] hundred [and] [below-hundred]
	if i+1 < len(w) && hundreds[w[i+1]] {
		mult, isUnit := units[w[i]]
		if isUnit || articles[w[i]] {
			if !isUnit {
				mult = 1
			}
			value, size = mult*100, 2
			j := i + 2
			if j < len(w) && conjunctions[w[j]] {
				if v, s := parseBelowHundred(w, j+1); s > 0 {
					return value + v, size + 1 + s
				}
			}
			if v, s := parseBelowHundred(w, j); s > 0 {
				return value + v, size + s
			}
			return value, size
		}
	}
	if hundreds[w[i]] {
		return 100, 1
	}
	return parseBelowHundred(w, i)
}

// parseBelowHundred handles 0-99: units, teens, tens, "tens unit" and the
// Romanian "tens și unit".
func parseBelowHundred(w []string, i int) (value, size int) {
	if i >= len(w) {
		return 0, 0
	}
	if t, ok := tens[w[i]]; ok {
		if i+2 < len(w) && conjunctions[w[i+1]] {
			if u, ok := units[w[i+2]]; ok && u > 0 {
				return t + u, 3
			}
		}
		if i+1 < len(w) {
			if u, ok := units[w[i+1]]; ok && u > 0 {
				return t + u, 2
			}
		}
		return t, 1
	}
	if v, ok := teens[w[i]]; ok {
		return v, 1
	}
	if v, ok := units[w[i]]; ok {
		return v, 1
	}
	return 0, 0
}
