package structure

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MrWong99/vocalstock/internal/transcript"
)

// CoachingNote is spoken when nothing actionable was understood.
const CoachingNote = "I didn't quite catch that. You can say, for example, 'Add 10 masks' or 'I used 5 gloves'."

// ItemNormalizer maps a raw item token to a canonical catalog label.
// A nil result means "no item".
type ItemNormalizer interface {
	Normalize(raw string) *string
}

// Option is a functional option for configuring a [Structurer].
type Option func(*Structurer)

// WithGenerative puts a generative strategy backed by c in front of the
// deterministic fallback.
func WithGenerative(c Completer) Option {
	return func(s *Structurer) {
		s.generative = c
	}
}

// WithItemNormalizer sets the item normalizer. Without one, items pass
// through as extracted.
func WithItemNormalizer(n ItemNormalizer) Option {
	return func(s *Structurer) {
		s.items = n
	}
}

// WithNormalizer replaces the transcript normalizer.
func WithNormalizer(n *transcript.Normalizer) Option {
	return func(s *Structurer) {
		s.normalizer = n
	}
}

// Structurer is the structuring stage: normalize, run the strategy chain,
// canonicalize the item and attach a friendly note. Safe for concurrent use.
type Structurer struct {
	normalizer *transcript.Normalizer
	generative Completer
	items      ItemNormalizer
	chain      Chain
}

// New builds a Structurer. The chain is [Generative] (when configured)
// followed by [FallbackStrategy].
func New(opts ...Option) *Structurer {
	s := &Structurer{normalizer: transcript.NewNormalizer()}
	for _, o := range opts {
		o(s)
	}
	if s.generative != nil {
		s.chain = append(s.chain, NewGenerative(s.generative))
	}
	s.chain = append(s.chain, FallbackStrategy{})
	return s
}

// Outcome is the structuring result together with the intermediate text.
type Outcome struct {
	Normalized string
	Command    Command
	Source     string
}

// Structure turns a raw transcript into a Command. Only adapter boundary
// failures are returned as errors.
func (s *Structurer) Structure(ctx context.Context, raw string) (Outcome, error) {
	normalized := s.normalizer.Normalize(raw)
	if normalized == "" {
		return Outcome{Command: Command{Kind: KindUnknown, Note: CoachingNote}, Source: "none"}, nil
	}

	in := Input{Normalized: normalized, Literal: s.normalizer.Clean(raw)}
	res, err := s.chain.Structure(ctx, in)
	if err != nil {
		return Outcome{Normalized: normalized}, fmt.Errorf("structure: %w", err)
	}

	cmd := res.Command
	if cmd.Item != nil {
		if s.items != nil {
			cmd.Item = s.items.Normalize(*cmd.Item)
		} else if strings.TrimSpace(*cmd.Item) == "" {
			cmd.Item = nil
		}
	}
	cmd.Note = friendlyNote(cmd, raw)

	slog.Debug("structured command",
		"transcript", raw,
		"normalized", normalized,
		"kind", cmd.Kind,
		"item", cmd.ItemName(),
		"quantity", cmd.Quantity,
		"strategy", res.Source,
	)
	return Outcome{Normalized: normalized, Command: cmd, Source: res.Source}, nil
}

// friendlyNote keeps a model-written note unless it is empty, parrots the
// transcript, or the command is unknown.
func friendlyNote(cmd Command, raw string) string {
	if cmd.Note != "" && cmd.Note != raw && cmd.Kind != KindUnknown {
		return cmd.Note
	}
	item := cmd.ItemName()
	switch {
	case cmd.Kind == KindUsage && item != "" && cmd.Quantity != nil && *cmd.Quantity > 0:
		return fmt.Sprintf("I deducted %d %s.", *cmd.Quantity, item)
	case cmd.Kind == KindUpdate && item != "" && cmd.Quantity != nil:
		return fmt.Sprintf("I set %s to %d.", item, *cmd.Quantity)
	case cmd.Kind == KindQuery && item != "":
		return fmt.Sprintf("Let me check %s.", item)
	default:
		return CoachingNote
	}
}
