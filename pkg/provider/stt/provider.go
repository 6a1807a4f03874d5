// Package stt defines the Provider interface for speech-to-text backends.
//
// A provider accepts one complete recorded utterance and returns its plain-text
// transcript. Audio capture and decoding happen outside this module; callers
// hand over whatever container the client recorded (webm, ogg, wav, ...) or raw
// 16-bit PCM, and name it in [Options].
//
// Implementations must be safe for concurrent use.
package stt

import "context"

// Options carries per-request transcription hints.
type Options struct {
	// Language is a BCP-47 hint ("en", "ro"). Empty lets the backend detect.
	Language string

	// Filename is the name reported to the backend, whose extension usually
	// drives format detection. Defaults to "audio.webm".
	Filename string

	// PCMSampleRate, when non-zero, declares the audio as raw 16-bit
	// little-endian mono PCM at this rate. Backends that need a container wrap it.
	PCMSampleRate int

	// Keywords are domain terms (catalog item names) that backends supporting
	// prompt biasing use to steer recognition.
	Keywords []string
}

// Provider is the abstraction over any batch STT backend.
type Provider interface {
	// Transcribe returns the transcript of audio. An empty transcript with a nil
	// error means the backend heard nothing intelligible.
	Transcribe(ctx context.Context, audio []byte, opts Options) (string, error)
}

// FilenameOrDefault returns o.Filename, or a default suited to o's encoding.
func (o Options) FilenameOrDefault() string {
	switch {
	case o.Filename != "":
		return o.Filename
	case o.PCMSampleRate > 0:
		return "audio.wav"
	default:
		return "audio.webm"
	}
}
