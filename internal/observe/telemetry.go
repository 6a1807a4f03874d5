package observe

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const serviceName = "vocalstock"

// Deployment describes how this instance is wired. Every non-empty field is
// attached to all exported telemetry as a vocalstock.* resource attribute, so
// dashboards can split by backend without extra labels on each series.
type Deployment struct {
	Version            string
	CatalogBackend     string
	IdempotencyBackend string
	LLM                string
	STT                string
	TTS                string
	UseLLM             bool
}

// TelemetryOption configures [NewTelemetry].
type TelemetryOption func(*telemetryOptions)

type telemetryOptions struct {
	registerer  prometheus.Registerer
	exporter    sdktrace.SpanExporter
	sampleRatio float64
	instanceID  string
}

// WithRegisterer registers the Prometheus bridge on r instead of the default
// registry served by promhttp.Handler.
func WithRegisterer(r prometheus.Registerer) TelemetryOption {
	return func(o *telemetryOptions) { o.registerer = r }
}

// WithSpanExporter exports spans through e. Without it spans are recorded
// for in-process use only.
func WithSpanExporter(e sdktrace.SpanExporter) TelemetryOption {
	return func(o *telemetryOptions) { o.exporter = e }
}

// WithSampleRatio samples that fraction of new traces. Child spans follow the
// parent's decision. Values outside (0, 1) mean "sample everything".
func WithSampleRatio(r float64) TelemetryOption {
	return func(o *telemetryOptions) { o.sampleRatio = r }
}

// WithInstanceID overrides the random service.instance.id.
func WithInstanceID(id string) TelemetryOption {
	return func(o *telemetryOptions) { o.instanceID = id }
}

// Telemetry owns the SDK meter and tracer providers of one process.
type Telemetry struct {
	res            *resource.Resource
	MeterProvider  *sdkmetric.MeterProvider
	TracerProvider *sdktrace.TracerProvider
}

// NewTelemetry builds meter and tracer providers for d without touching the
// OTel globals.
func NewTelemetry(d Deployment, opts ...TelemetryOption) (*Telemetry, error) {
	o := telemetryOptions{instanceID: uuid.NewString()}
	for _, opt := range opts {
		opt(&o)
	}

	// Schemaless so the merge never conflicts with the SDK default's schema URL.
	res, err := resource.Merge(resource.Default(),
		resource.NewSchemaless(deploymentAttributes(d, o.instanceID)...))
	if err != nil {
		return nil, fmt.Errorf("observe: resource: %w", err)
	}

	var promOpts []promexporter.Option
	if o.registerer != nil {
		promOpts = append(promOpts, promexporter.WithRegisterer(o.registerer))
	}
	exp, err := promexporter.New(promOpts...)
	if err != nil {
		return nil, fmt.Errorf("observe: prometheus exporter: %w", err)
	}

	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if o.sampleRatio > 0 && o.sampleRatio < 1 {
		tpOpts = append(tpOpts, sdktrace.WithSampler(
			sdktrace.ParentBased(sdktrace.TraceIDRatioBased(o.sampleRatio))))
	}
	if o.exporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(o.exporter))
	}

	return &Telemetry{
		res:            res,
		MeterProvider:  sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(exp)),
		TracerProvider: sdktrace.NewTracerProvider(tpOpts...),
	}, nil
}

// Setup is [NewTelemetry] followed by installing both providers as the OTel
// globals, which [DefaultMetrics] and [Tracer] read.
func Setup(d Deployment, opts ...TelemetryOption) (*Telemetry, error) {
	t, err := NewTelemetry(d, opts...)
	if err != nil {
		return nil, err
	}
	otel.SetMeterProvider(t.MeterProvider)
	otel.SetTracerProvider(t.TracerProvider)
	return t, nil
}

// Resource returns the resource attached to all telemetry.
func (t *Telemetry) Resource() *resource.Resource { return t.res }

// Shutdown flushes pending spans and stops both providers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return errors.Join(
		t.TracerProvider.Shutdown(ctx),
		t.MeterProvider.Shutdown(ctx),
	)
}

func deploymentAttributes(d Deployment, instanceID string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(serviceName),
		semconv.ServiceInstanceID(instanceID),
		attribute.Bool("vocalstock.structuring.use_llm", d.UseLLM),
	}
	if d.Version != "" {
		attrs = append(attrs, semconv.ServiceVersion(d.Version))
	}
	for _, kv := range []struct{ key, val string }{
		{"vocalstock.catalog.backend", d.CatalogBackend},
		{"vocalstock.idempotency.backend", d.IdempotencyBackend},
		{"vocalstock.provider.llm", d.LLM},
		{"vocalstock.provider.stt", d.STT},
		{"vocalstock.provider.tts", d.TTS},
	} {
		if kv.val != "" {
			attrs = append(attrs, attribute.String(kv.key, kv.val))
		}
	}
	return attrs
}
