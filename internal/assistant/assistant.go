// Package assistant runs one voice or text interaction end to end:
// transcription, structuring, execution against the catalog and, when a
// synthesis provider is configured, the spoken reply.
//
// The Assistant holds no per-interaction state and is safe for concurrent use.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/vocalstock/internal/catalog"
	"github.com/MrWong99/vocalstock/internal/executor"
	"github.com/MrWong99/vocalstock/internal/observe"
	"github.com/MrWong99/vocalstock/internal/structure"
	"github.com/MrWong99/vocalstock/pkg/provider/stt"
	"github.com/MrWong99/vocalstock/pkg/provider/tts"
)

// ApologyMessage is spoken when a command could not be carried out.
const ApologyMessage = "Sorry, I couldn't process that request. Please try again."

var (
	// ErrNoSTT is returned by [Assistant.Process] for audio input when no
	// transcription provider is configured.
	ErrNoSTT = errors.New("assistant: no speech-to-text provider configured")

	// ErrEmptyInput is returned when neither audio nor a transcript was given.
	ErrEmptyInput = errors.New("assistant: empty input")
)

// Structurer turns a transcript into a command.
type Structurer interface {
	Structure(ctx context.Context, raw string) (structure.Outcome, error)
}

// Executor applies a command to the catalog.
type Executor interface {
	Execute(ctx context.Context, cmd structure.Command) (executor.Response, error)
}

// Option is a functional option for [New].
type Option func(*Assistant)

// WithSTT enables audio input.
func WithSTT(p stt.Provider) Option {
	return func(a *Assistant) { a.stt = p }
}

// WithTTS enables spoken replies.
func WithTTS(p tts.Provider, voice string) Option {
	return func(a *Assistant) {
		a.tts = p
		a.voice = voice
	}
}

// WithMetrics sets the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *Assistant) { a.metrics = m }
}

// WithKeywords passes the catalog item names to the STT provider as
// recognition hints on every audio request.
func WithKeywords(store catalog.Store) Option {
	return func(a *Assistant) { a.keywords = store }
}

// WithGenerative tells the assistant whether the structurer has a generative
// strategy, so that fallback metrics can tell "no model" from "model failed".
func WithGenerative(enabled bool) Option {
	return func(a *Assistant) { a.generative = enabled }
}

// Assistant wires the pipeline stages together.
type Assistant struct {
	structurer Structurer
	executor   Executor
	stt        stt.Provider
	tts        tts.Provider
	voice      string
	keywords   catalog.Store
	metrics    *observe.Metrics
	generative bool
}

// New returns an Assistant.
func New(s Structurer, e Executor, opts ...Option) *Assistant {
	a := &Assistant{structurer: s, executor: e}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	return a
}

// SpeechEnabled reports whether replies will be synthesised.
func (a *Assistant) SpeechEnabled() bool { return a.tts != nil }

// Input is one interaction. Audio takes precedence over Transcript.
type Input struct {
	Audio      []byte
	Filename   string
	Transcript string
	Language   string
}

// Reply is the outcome of one interaction.
type Reply struct {
	Transcript string            `json:"transcript"`
	Command    structure.Command `json:"command"`
	Response   executor.Response `json:"response"`
	Source     string            `json:"-"`
	Audio      *tts.Audio        `json:"-"`
}

// HandleText structures and executes a typed or already transcribed command.
// Returned errors are adapter or persistence failures; everything else is
// reported through Reply.Response.
func (a *Assistant) HandleText(ctx context.Context, text string) (Reply, error) {
	ctx, span := observe.StartSpan(ctx, "assistant.HandleText")
	defer span.End()

	reply := Reply{Transcript: text}

	start := time.Now()
	out, err := a.structurer.Structure(ctx, text)
	a.metrics.RecordStage(ctx, observe.StageStructure, time.Since(start))
	if err != nil {
		return reply, spanError(span, fmt.Errorf("assistant: %w", err))
	}
	reply.Command = out.Command
	reply.Source = out.Source
	a.recordFallback(ctx, out.Source)

	start = time.Now()
	resp, err := a.executor.Execute(ctx, out.Command)
	a.metrics.RecordStage(ctx, observe.StageExecute, time.Since(start))
	if err != nil {
		return reply, spanError(span, fmt.Errorf("assistant: %w", err))
	}
	reply.Response = resp
	a.metrics.RecordCommand(ctx, string(out.Command.Kind), resp.Success)

	span.SetAttributes(
		attribute.String("command.kind", string(out.Command.Kind)),
		attribute.String("command.source", out.Source),
		attribute.Bool("command.success", resp.Success),
	)
	observe.Logger(ctx).Info("command handled",
		"transcript", text,
		"kind", out.Command.Kind,
		"item", out.Command.ItemName(),
		"quantity", out.Command.Quantity,
		"strategy", out.Source,
		"success", resp.Success,
	)
	return reply, nil
}

// Process runs a full voice interaction: transcribe (when audio is given),
// handle the text, then synthesise the reply. A synthesis failure is logged
// and leaves Reply.Audio nil; the command has already been applied.
func (a *Assistant) Process(ctx context.Context, in Input) (Reply, error) {
	ctx, span := observe.StartSpan(ctx, "assistant.Process",
		trace.WithAttributes(attribute.String("language", in.Language)))
	defer span.End()

	text := in.Transcript
	if len(in.Audio) > 0 {
		var err error
		if text, err = a.transcribe(ctx, in); err != nil {
			return Reply{}, spanError(span, err)
		}
	}
	if len(in.Audio) == 0 && strings.TrimSpace(text) == "" {
		return Reply{}, ErrEmptyInput
	}

	reply, err := a.HandleText(ctx, text)
	if err != nil {
		return reply, err
	}

	if a.tts != nil {
		say := reply.Response.Message
		if !reply.Response.Success {
			say = ApologyMessage
		}
		reply.Audio = a.speak(ctx, say, in.Language)
	}
	return reply, nil
}

func (a *Assistant) transcribe(ctx context.Context, in Input) (string, error) {
	if a.stt == nil {
		return "", ErrNoSTT
	}
	opts := stt.Options{Language: in.Language, Filename: in.Filename}
	if a.keywords != nil {
		items, err := a.keywords.ListItems(ctx)
		if err != nil {
			slog.Warn("assistant: keyword hints unavailable", "err", err)
		}
		for _, it := range items {
			opts.Keywords = append(opts.Keywords, it.Name)
		}
	}

	start := time.Now()
	text, err := a.stt.Transcribe(ctx, in.Audio, opts)
	a.metrics.RecordStage(ctx, observe.StageSTT, time.Since(start))
	if err != nil {
		return "", fmt.Errorf("assistant: transcribe: %w", err)
	}
	return text, nil
}

func (a *Assistant) speak(ctx context.Context, text, lang string) *tts.Audio {
	start := time.Now()
	clip, err := a.tts.Synthesize(ctx, text, tts.Options{Voice: a.voice, Language: lang})
	a.metrics.RecordStage(ctx, observe.StageTTS, time.Since(start))
	if err != nil {
		observe.Logger(ctx).Warn("assistant: synthesis failed", "err", err)
		return nil
	}
	return clip
}

func (a *Assistant) recordFallback(ctx context.Context, source string) {
	switch source {
	case "fallback":
		reason := "no_generative"
		if a.generative {
			reason = "generative_unusable"
		}
		a.metrics.RecordFallback(ctx, reason)
	case "generative+fallback":
		a.metrics.RecordFallback(ctx, "incomplete")
	}
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// ── Instrumented resolver ────────────────────────────────────────────────────

// TimedResolver wraps an [executor.Resolver] and records the resolve stage.
type TimedResolver struct {
	Resolver executor.Resolver
	Metrics  *observe.Metrics
}

var _ executor.Resolver = (*TimedResolver)(nil)

// Resolve implements executor.Resolver.
func (r *TimedResolver) Resolve(ctx context.Context, name string) (*catalog.Item, error) {
	start := time.Now()
	item, err := r.Resolver.Resolve(ctx, name)
	r.Metrics.RecordStage(ctx, observe.StageResolve, time.Since(start))
	return item, err
}
