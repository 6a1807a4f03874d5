// Package tts defines the Provider interface for text-to-speech backends.
//
// A provider turns one response sentence into a complete encoded audio clip
// that the HTTP layer can return base64-encoded to the client.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Options carries per-request synthesis hints.
type Options struct {
	// Voice selects a backend-specific voice or speaker ID. Empty uses the
	// provider default.
	Voice string

	// Language is a BCP-47 hint ("en", "ro") for multilingual voices.
	Language string
}

// Audio is a synthesised clip.
type Audio struct {
	// Data is the encoded clip.
	Data []byte

	// MIMEType describes Data, e.g. "audio/mpeg" or "audio/wav".
	MIMEType string
}

// Provider is the abstraction over any batch TTS backend.
type Provider interface {
	// Synthesize renders text to audio. Empty text is an error.
	Synthesize(ctx context.Context, text string, opts Options) (*Audio, error)
}
