package structure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Input is the transcript as handed to each strategy.
type Input struct {
	// Normalized is the fully normalized text.
	Normalized string
	// Literal is the text before homophone rewriting. Empty means the same
	// as Normalized.
	Literal string
}

// Strategy produces a command from a normalized transcript.
//
// Returning an error wrapping [ErrNoCommand] means "nothing usable, try the
// next strategy". Any other error is fatal for the interaction.
type Strategy interface {
	Name() string
	Structure(ctx context.Context, in Input) (Result, error)
}

// Completer is the generative adapter boundary: one prompt in, one text blob
// out. Implementations must not retry; repair and fallback absorb bad output.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Generative asks a [Completer] for a JSON command using [BuildPrompt].
type Generative struct {
	completer Completer
}

var _ Strategy = (*Generative)(nil)

// NewGenerative returns a Generative strategy backed by c.
func NewGenerative(c Completer) *Generative {
	return &Generative{completer: c}
}

// Name implements Strategy.
func (g *Generative) Name() string { return "generative" }

// Structure implements Strategy. Adapter failures are returned as fatal
// errors; unparsable output wraps [ErrNoCommand].
func (g *Generative) Structure(ctx context.Context, in Input) (Result, error) {
	raw, err := g.completer.Complete(ctx, BuildPrompt(in.Normalized))
	if err != nil {
		return Result{}, fmt.Errorf("structure: generative adapter: %w", err)
	}
	res, err := ParseAdapterOutput(raw)
	if err != nil {
		slog.Debug("generative output unusable", "raw", raw, "err", err)
		return Result{}, fmt.Errorf("%w: %w", ErrNoCommand, err)
	}
	return res, nil
}

// Chain runs strategies in order until one yields a confident result,
// merging partial results along the way: earlier strategies win on every
// field they filled, later ones fill the gaps.
type Chain []Strategy

// Structure implements Strategy for the whole chain. If no strategy produced
// anything, the result is an unknown command.
func (c Chain) Structure(ctx context.Context, in Input) (Result, error) {
	var acc *Result
	for _, s := range c {
		res, err := s.Structure(ctx, in)
		if errors.Is(err, ErrNoCommand) {
			continue
		}
		if err != nil {
			return Result{}, err
		}
		if acc == nil {
			acc = &res
		} else {
			merged := merge(*acc, res)
			acc = &merged
		}
		if acc.confident() {
			break
		}
	}
	if acc == nil {
		return Result{Command: Command{Kind: KindUnknown}, Source: "none"}, nil
	}
	return *acc, nil
}

// Name implements Strategy.
func (c Chain) Name() string { return "chain" }

var _ Strategy = Chain(nil)
