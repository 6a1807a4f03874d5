// Package observe provides application-wide observability primitives for
// vocalstock: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is installed by [Setup] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all vocalstock metrics.
const meterName = "github.com/MrWong99/vocalstock"

// Pipeline stage names used as the "stage" attribute of [Metrics.StageDuration].
const (
	StageStructure = "structure"
	StageResolve   = "resolve"
	StageExecute   = "execute"
	StageSTT       = "stt"
	StageTTS       = "tts"
)

// Metrics holds all OpenTelemetry metric instruments for the application.
// The underlying OTel types handle their own synchronisation.
type Metrics struct {
	// StageDuration tracks latency per pipeline stage. Use with attribute:
	//   attribute.String("stage", ...)
	StageDuration metric.Float64Histogram

	// Commands counts executed commands. Use with attributes:
	//   attribute.String("kind", ...), attribute.Bool("success", ...)
	Commands metric.Int64Counter

	// StructureFallbacks counts how often the rule-based structurer had to
	// step in. Use with attribute:
	//   attribute.String("reason", ...)
	StructureFallbacks metric.Int64Counter

	// DuplicateRequests counts requests rejected by the idempotency guard.
	DuplicateRequests metric.Int64Counter

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("route", ...), attribute.String("status", ...)
	HTTPRequestDuration metric.Float64Histogram
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// DefaultMetrics returns the package-level [Metrics] instance backed by the
// global [metric.MeterProvider]. Safe for concurrent use.
func DefaultMetrics() *Metrics {
	defaultOnce.Do(func() {
		m, err := NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
		defaultMetrics = m
	})
	return defaultMetrics
}

// stageBuckets covers sub-millisecond rule-based structuring up to slow
// provider round trips.
var stageBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// NewMetrics creates all metric instruments using the given [metric.MeterProvider].
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)
	m := &Metrics{}
	var err error

	if m.StageDuration, err = meter.Float64Histogram("vocalstock.stage.duration",
		metric.WithDescription("Latency of a command pipeline stage."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(stageBuckets...),
	); err != nil {
		return nil, err
	}

	if m.Commands, err = meter.Int64Counter("vocalstock.commands.total",
		metric.WithDescription("Total executed inventory commands by kind and outcome."),
	); err != nil {
		return nil, err
	}

	if m.StructureFallbacks, err = meter.Int64Counter("vocalstock.structure.fallbacks",
		metric.WithDescription("Rule-based fallback invocations by reason."),
	); err != nil {
		return nil, err
	}

	if m.DuplicateRequests, err = meter.Int64Counter("vocalstock.idempotency.duplicates",
		metric.WithDescription("Requests rejected because their idempotency key was already claimed."),
	); err != nil {
		return nil, err
	}

	if m.ProviderRequests, err = meter.Int64Counter("vocalstock.provider.requests",
		metric.WithDescription("Total provider API requests."),
	); err != nil {
		return nil, err
	}

	if m.ProviderErrors, err = meter.Int64Counter("vocalstock.provider.errors",
		metric.WithDescription("Total provider errors."),
	); err != nil {
		return nil, err
	}

	if m.HTTPRequestDuration, err = meter.Float64Histogram("vocalstock.http.request.duration",
		metric.WithDescription("HTTP request processing duration."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// ── Convenience helpers ───────────────────────────────────────────────────────

// Attr is a shorthand for building an [attribute.KeyValue] with a string value.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordStage records how long a pipeline stage took.
func (m *Metrics) RecordStage(ctx context.Context, stage string, d time.Duration) {
	m.StageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(Attr("stage", stage)))
}

// RecordCommand increments the command counter.
func (m *Metrics) RecordCommand(ctx context.Context, kind string, success bool) {
	m.Commands.Add(ctx, 1, metric.WithAttributes(
		Attr("kind", kind),
		attribute.Bool("success", success),
	))
}

// RecordFallback increments the structure fallback counter.
func (m *Metrics) RecordFallback(ctx context.Context, reason string) {
	m.StructureFallbacks.Add(ctx, 1, metric.WithAttributes(Attr("reason", reason)))
}

// RecordDuplicate increments the duplicate request counter for route.
func (m *Metrics) RecordDuplicate(ctx context.Context, route string) {
	m.DuplicateRequests.Add(ctx, 1, metric.WithAttributes(Attr("route", route)))
}

// RecordProviderRequest increments the provider request counter.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1, metric.WithAttributes(
		Attr("provider", provider),
		Attr("kind", kind),
		Attr("status", status),
	))
}

// RecordProviderError increments the provider error counter.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1, metric.WithAttributes(
		Attr("provider", provider),
		Attr("kind", kind),
	))
}

// RecordHTTPRequest records the duration of a finished HTTP request.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, d time.Duration) {
	m.HTTPRequestDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		Attr("method", method),
		Attr("route", route),
		Attr("status", strconv.Itoa(status)),
	))
}
