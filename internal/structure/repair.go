package structure

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
)

var (
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	noneRe          = regexp.MustCompile(`\bNone\b`)
	trueRe          = regexp.MustCompile(`\bTrue\b`)
	falseRe         = regexp.MustCompile(`\bFalse\b`)
)

// ExtractJSON returns the first balanced {...} span in text. Braces inside
// quoted strings are ignored. When no balanced object exists the whole
// trimmed text is returned.
func ExtractJSON(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return strings.TrimSpace(text)
	}

	depth := 0
	var quote byte
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return strings.TrimSpace(text)
}

// RepairJSON applies best-effort textual fixes to near-miss JSON:
// single quotes become double quotes when no double quote is present,
// trailing commas before a closing bracket are dropped, and None/True/False
// become null/true/false.
func RepairJSON(text string) string {
	t := strings.TrimSpace(text)
	if t == "" {
		return t
	}
	if strings.Contains(t, "'") && !strings.Contains(t, `"`) {
		t = strings.ReplaceAll(t, "'", `"`)
	}
	t = trailingCommaRe.ReplaceAllString(t, "$1")
	t = noneRe.ReplaceAllString(t, "null")
	t = trueRe.ReplaceAllString(t, "true")
	t = falseRe.ReplaceAllString(t, "false")
	return t
}

// ParseAdapterOutput extracts, repairs and validates a generative reply.
// It returns an error wrapping [ErrRepairFailed] when no JSON object can be
// decoded. Invalid fields are coerced rather than rejected: an unknown action
// becomes [KindUnknown], a non-integer quantity becomes nil.
func ParseAdapterOutput(raw string) (Result, error) {
	candidate := RepairJSON(ExtractJSON(raw))
	if candidate == "" {
		return Result{}, fmt.Errorf("%w: empty output", ErrRepairFailed)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(candidate)))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrRepairFailed, err)
	}
	if obj == nil {
		return Result{}, fmt.Errorf("%w: not an object", ErrRepairFailed)
	}

	cmd := Command{Kind: KindUnknown}
	if action, ok := obj["action"].(string); ok {
		cmd.Kind = ParseKind(action)
	}
	if item, ok := obj["item"].(string); ok {
		item = strings.TrimSpace(item)
		switch strings.ToLower(item) {
		case "", "null", "none":
		default:
			cmd.Item = &item
		}
	}
	cmd.Quantity = coerceQuantity(obj["quantity"])
	if resp, ok := obj["response"].(string); ok {
		cmd.Note = strings.TrimSpace(resp)
	}

	return Result{
		Command:       cmd,
		LowConfidence: lowConfidence(cmd),
		Source:        "generative",
	}, nil
}

// coerceQuantity accepts JSON integers (and integral floats such as 5.0).
// Everything else, including numeric strings, is nil.
func coerceQuantity(v any) *int {
	n, ok := v.(json.Number)
	if !ok {
		return nil
	}
	if i, err := n.Int64(); err == nil {
		if i > math.MaxInt32 || i < math.MinInt32 {
			return nil
		}
		return ptr(int(i))
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return nil
	}
	return ptr(int(f))
}
