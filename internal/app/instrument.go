package app

import (
	"context"

	"github.com/MrWong99/vocalstock/internal/observe"
	"github.com/MrWong99/vocalstock/pkg/provider/llm"
	"github.com/MrWong99/vocalstock/pkg/provider/stt"
	"github.com/MrWong99/vocalstock/pkg/provider/tts"
)

// Provider wrappers that count requests and failures per backend. They sit
// under the fallback groups so each backend is counted separately.

type meteredLLM struct {
	llm.Provider
	name    string
	metrics *observe.Metrics
}

var _ llm.Provider = (*meteredLLM)(nil)

func (p *meteredLLM) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	resp, err := p.Provider.Complete(ctx, req)
	record(ctx, p.metrics, p.name, "llm", err)
	return resp, err
}

type meteredSTT struct {
	stt.Provider
	name    string
	metrics *observe.Metrics
}

var _ stt.Provider = (*meteredSTT)(nil)

func (p *meteredSTT) Transcribe(ctx context.Context, audio []byte, opts stt.Options) (string, error) {
	text, err := p.Provider.Transcribe(ctx, audio, opts)
	record(ctx, p.metrics, p.name, "stt", err)
	return text, err
}

type meteredTTS struct {
	tts.Provider
	name    string
	metrics *observe.Metrics
}

var _ tts.Provider = (*meteredTTS)(nil)

func (p *meteredTTS) Synthesize(ctx context.Context, text string, opts tts.Options) (*tts.Audio, error) {
	audio, err := p.Provider.Synthesize(ctx, text, opts)
	record(ctx, p.metrics, p.name, "tts", err)
	return audio, err
}

func record(ctx context.Context, m *observe.Metrics, name, kind string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		m.RecordProviderError(ctx, name, kind)
	}
	m.RecordProviderRequest(ctx, name, kind, status)
}
