// Package coqui provides a TTS provider for a self-hosted Coqui TTS server.
//
// Two server flavours are supported: the standard Coqui server (GET /api/tts)
// and the XTTS v2 API server (POST /tts_to_audio/). Both return a WAV clip,
// which is passed through unchanged.
package coqui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrWong99/vocalstock/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

const (
	defaultLanguage = "en"
	defaultTimeout  = 30 * time.Second
	apiTTSEndpoint  = "/api/tts"
	xttsEndpoint    = "/tts_to_audio/"
)

// APIMode selects which Coqui server API the provider will target.
type APIMode string

const (
	// APIModeStandard targets the standard Coqui TTS server (/api/tts). Default.
	APIModeStandard APIMode = "standard"

	// APIModeXTTS targets the Coqui XTTS v2 API server (/tts_to_audio/).
	APIModeXTTS APIMode = "xtts"
)

// Option is a functional option for configuring a Coqui Provider.
type Option func(*Provider)

// WithLanguage sets the default language sent to the server. Defaults to "en".
func WithLanguage(lang string) Option {
	return func(p *Provider) {
		p.language = lang
	}
}

// WithTimeout sets the HTTP client timeout. Defaults to 30s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// WithAPIMode selects the server flavour.
func WithAPIMode(mode APIMode) Option {
	return func(p *Provider) {
		p.apiMode = mode
	}
}

// WithDefaultVoice sets the speaker used when a request names none.
func WithDefaultVoice(id string) Option {
	return func(p *Provider) {
		p.voice = id
	}
}

// Provider implements tts.Provider against a Coqui server.
type Provider struct {
	serverURL  string
	language   string
	voice      string
	apiMode    APIMode
	httpClient *http.Client
}

// New creates a Provider for the Coqui server at serverURL.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("coqui: serverURL must not be empty")
	}
	p := &Provider{
		serverURL:  strings.TrimRight(serverURL, "/"),
		language:   defaultLanguage,
		apiMode:    APIModeStandard,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	switch p.apiMode {
	case APIModeStandard, APIModeXTTS:
	default:
		return nil, fmt.Errorf("coqui: unknown api mode %q", p.apiMode)
	}
	return p, nil
}

// Synthesize implements tts.Provider.
func (p *Provider) Synthesize(ctx context.Context, text string, opts tts.Options) (*tts.Audio, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("coqui: empty text")
	}
	voice := opts.Voice
	if voice == "" {
		voice = p.voice
	}
	lang := opts.Language
	if lang == "" {
		lang = p.language
	}

	var (
		req *http.Request
		err error
	)
	if p.apiMode == APIModeXTTS {
		req, err = p.xttsRequest(ctx, text, voice, lang)
	} else {
		req, err = p.standardRequest(ctx, text, voice, lang)
	}
	if err != nil {
		return nil, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coqui: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coqui: %s %s returned status %d", req.Method, req.URL.Path, resp.StatusCode)
	}

	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("coqui: read WAV response: %w", err)
	}
	if len(wav) < 12 || string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return nil, errors.New("coqui: response is not a WAV file")
	}
	return &tts.Audio{Data: wav, MIMEType: "audio/wav"}, nil
}

func (p *Provider) standardRequest(ctx context.Context, text, voice, lang string) (*http.Request, error) {
	params := url.Values{}
	params.Set("text", text)
	if voice != "" {
		params.Set("speaker_id", voice)
	}
	if lang != "" {
		params.Set("language_id", lang)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.serverURL+apiTTSEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("coqui: create tts request: %w", err)
	}
	req.Header.Set("Accept", "audio/wav")
	return req, nil
}

func (p *Provider) xttsRequest(ctx context.Context, text, voice, lang string) (*http.Request, error) {
	body, err := json.Marshal(map[string]string{
		"text":        text,
		"speaker_wav": voice,
		"language":    lang,
	})
	if err != nil {
		return nil, fmt.Errorf("coqui: encode xtts request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL+xttsEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("coqui: create xtts request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/wav")
	return req, nil
}
