package resilience

import (
	"context"

	"github.com/MrWong99/vocalstock/pkg/provider/stt"
)

// STTFallback is an [stt.Provider] backed by a [FallbackGroup].
type STTFallback struct {
	group *FallbackGroup[stt.Provider]
}

var _ stt.Provider = (*STTFallback)(nil)

// NewSTTFallback creates an STTFallback with primary as the preferred backend.
func NewSTTFallback(primary stt.Provider, primaryName string, cfg FallbackConfig) *STTFallback {
	return &STTFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers another backend.
func (f *STTFallback) AddFallback(name string, provider stt.Provider) {
	f.group.AddFallback(name, provider)
}

// Transcribe implements stt.Provider.
func (f *STTFallback) Transcribe(ctx context.Context, audio []byte, opts stt.Options) (string, error) {
	return ExecuteWithResult(f.group, func(p stt.Provider) (string, error) {
		return p.Transcribe(ctx, audio, opts)
	})
}
