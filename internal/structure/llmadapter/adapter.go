// Package llmadapter implements the generative structuring adapter on top of
// an [llm.Provider].
//
// The adapter is deliberately thin: one prompt becomes one user message, the
// reply comes back with markdown fences stripped, and no retry is attempted.
// Provider failover, when wanted, is arranged by wrapping the provider (see
// resilience.LLMFallback) before it is handed to [New].
package llmadapter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrWong99/vocalstock/internal/structure"
	"github.com/MrWong99/vocalstock/pkg/provider/llm"
)

const (
	defaultTemperature = 0.1
	defaultMaxTokens   = 128
)

// Option is a functional option for configuring an [Adapter].
type Option func(*Adapter)

// WithTemperature sets the sampling temperature. Default: 0.1.
func WithTemperature(temp float64) Option {
	return func(a *Adapter) {
		a.temperature = temp
	}
}

// WithMaxTokens caps the reply length. Default: 128.
func WithMaxTokens(n int) Option {
	return func(a *Adapter) {
		a.maxTokens = n
	}
}

// Adapter implements structure.Completer.
type Adapter struct {
	provider    llm.Provider
	temperature float64
	maxTokens   int
}

var _ structure.Completer = (*Adapter)(nil)

// New returns an Adapter that sends prompts to provider.
func New(provider llm.Provider, opts ...Option) *Adapter {
	a := &Adapter{
		provider:    provider,
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Complete implements structure.Completer.
func (a *Adapter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := a.provider.Complete(ctx, llm.CompletionRequest{
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
		JSONMode:    true,
	})
	if err != nil {
		return "", fmt.Errorf("llmadapter: complete: %w", err)
	}
	if resp == nil {
		return "", errors.New("llmadapter: provider returned no response")
	}
	return stripMarkdown(resp.Content), nil
}

// stripMarkdown removes optional ```json ... ``` fences.
func stripMarkdown(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"```json", "```"} {
		if after, ok := strings.CutPrefix(s, prefix); ok {
			s = after
			break
		}
	}
	if before, ok := strings.CutSuffix(s, "```"); ok {
		s = before
	}
	return strings.TrimSpace(s)
}
