// Package mock provides a test double for the tts.Provider interface.
//
// Example:
//
//	p := &mock.Provider{Audio: &tts.Audio{Data: []byte("mp3"), MIMEType: "audio/mpeg"}}
//	clip, _ := p.Synthesize(ctx, "Bandages: 12 units available", tts.Options{})
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/vocalstock/pkg/provider/tts"
)

// SynthesizeCall records a single invocation of Synthesize.
type SynthesizeCall struct {
	// Text is the text passed to Synthesize.
	Text string
	// Opts is the Options value passed to Synthesize.
	Opts tts.Options
}

// Provider is a mock implementation of tts.Provider. When Audio is nil,
// Synthesize returns the text bytes tagged as "text/plain".
type Provider struct {
	mu sync.Mutex

	// Audio is returned by Synthesize when non-nil.
	Audio *tts.Audio

	// Err, if non-nil, is returned as the error from Synthesize.
	Err error

	// Calls records every call to Synthesize.
	Calls []SynthesizeCall
}

// Synthesize records the call and returns Audio, Err.
func (p *Provider) Synthesize(_ context.Context, text string, opts tts.Options) (*tts.Audio, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, SynthesizeCall{Text: text, Opts: opts})
	if p.Err != nil {
		return nil, p.Err
	}
	if p.Audio != nil {
		return p.Audio, nil
	}
	return &tts.Audio{Data: []byte(text), MIMEType: "text/plain"}, nil
}

// Texts returns the texts passed to Synthesize, in order. Thread-safe.
func (p *Provider) Texts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.Calls))
	for i, c := range p.Calls {
		out[i] = c.Text
	}
	return out
}

var _ tts.Provider = (*Provider)(nil)
