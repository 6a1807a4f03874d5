// Package structure turns a normalized transcript into a [Command].
//
// Structuring runs an ordered chain of [Strategy] values. The default chain
// asks a generative model for a JSON object (see [Generative]), repairs and
// validates whatever comes back, and falls back to a deterministic keyword
// cascade ([Fallback]) whenever the model output is unusable or leaves a
// required quantity empty. The [Structurer] then maps the raw item token to a
// canonical catalog label and fills in a friendly spoken note.
package structure

import (
	"errors"
	"strings"
)

// Kind is the intent of a command.
type Kind string

const (
	KindUsage   Kind = "usage"
	KindUpdate  Kind = "update"
	KindQuery   Kind = "query"
	KindUnknown Kind = "unknown"
)

var (
	// ErrNoCommand is returned by a Strategy that could not produce anything
	// usable. The chain moves on to the next strategy.
	ErrNoCommand = errors.New("structure: no command")

	// ErrRepairFailed is returned when generative output cannot be repaired
	// into a JSON object.
	ErrRepairFailed = errors.New("structure: json repair failed")
)

// ParseKind maps an action label to a Kind. "create" is an update: update is
// the only path that introduces catalog entries. Anything unrecognised is
// KindUnknown.
func ParseKind(action string) Kind {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case "usage":
		return KindUsage
	case "update", "create":
		return KindUpdate
	case "query":
		return KindQuery
	default:
		return KindUnknown
	}
}

// NeedsQuantity reports whether commands of this kind act on a quantity.
func (k Kind) NeedsQuantity() bool {
	return k == KindUsage || k == KindUpdate
}

// Command is the structured form of one utterance. It is created once per
// interaction and not modified after [Structurer.Structure] returns.
type Command struct {
	Kind     Kind    `json:"type"`
	Item     *string `json:"item"`
	Quantity *int    `json:"quantity"`
	Note     string  `json:"notes,omitempty"`
}

// ItemName returns the item or "" when absent.
func (c Command) ItemName() string {
	if c.Item == nil {
		return ""
	}
	return *c.Item
}

// Result is a Strategy's output.
type Result struct {
	Command Command

	// LowConfidence is set when a usage/update command carries no quantity.
	// The chain keeps asking later strategies to fill the gap.
	LowConfidence bool

	// Source names the strategy that produced the command.
	Source string
}

// confident reports whether the chain can stop at r.
func (r Result) confident() bool {
	return r.Command.Kind != KindUnknown && !r.LowConfidence
}

func lowConfidence(c Command) bool {
	return c.Kind.NeedsQuantity() && c.Quantity == nil
}

// merge fills gaps in primary from secondary. primary's kind wins unless it is
// unknown; item, quantity and note are taken from primary when present.
func merge(primary, secondary Result) Result {
	out := primary
	if out.Command.Kind == KindUnknown {
		out.Command.Kind = secondary.Command.Kind
	}
	if out.Command.Item == nil {
		out.Command.Item = secondary.Command.Item
	}
	if out.Command.Quantity == nil {
		out.Command.Quantity = secondary.Command.Quantity
	}
	if out.Command.Note == "" {
		out.Command.Note = secondary.Command.Note
	}
	out.LowConfidence = lowConfidence(out.Command)
	out.Source = primary.Source + "+" + secondary.Source
	return out
}

func ptr[T any](v T) *T { return &v }
