package observe

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumFor returns the value of the data point whose attribute key equals
// value, and whether it was found.
func sumFor(t *testing.T, rm metricdata.ResourceMetrics, name, key string, value attribute.Value) (int64, bool) {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %q not found", name)
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is not a sum", name)
	}
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v == value {
			return dp.Value, true
		}
	}
	return 0, false
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestRecordStage(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordStage(ctx, StageStructure, 120*time.Millisecond)
	m.RecordStage(ctx, StageStructure, 80*time.Millisecond)
	m.RecordStage(ctx, StageExecute, 2*time.Millisecond)

	rm := collect(t, reader)
	met := findMetric(rm, "vocalstock.stage.duration")
	if met == nil {
		t.Fatal("metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("metric is not a histogram")
	}

	counts := map[string]uint64{}
	for _, dp := range hist.DataPoints {
		v, _ := dp.Attributes.Value("stage")
		counts[v.AsString()] = dp.Count
	}
	if counts[StageStructure] != 2 {
		t.Errorf("structure samples = %d, want 2", counts[StageStructure])
	}
	if counts[StageExecute] != 1 {
		t.Errorf("execute samples = %d, want 1", counts[StageExecute])
	}
}

func TestRecordCommand(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordCommand(ctx, "usage", true)
	m.RecordCommand(ctx, "usage", true)
	m.RecordCommand(ctx, "usage", false)

	rm := collect(t, reader)
	got, ok := sumFor(t, rm, "vocalstock.commands.total", "success", attribute.BoolValue(true))
	if !ok {
		t.Fatal("data point with success=true not found")
	}
	if got != 2 {
		t.Errorf("successful commands = %d, want 2", got)
	}
	got, ok = sumFor(t, rm, "vocalstock.commands.total", "success", attribute.BoolValue(false))
	if !ok || got != 1 {
		t.Errorf("failed commands = %d (found %v), want 1", got, ok)
	}
}

func TestRecordFallback(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordFallback(ctx, "no_llm")
	m.RecordFallback(ctx, "incomplete")
	m.RecordFallback(ctx, "incomplete")

	rm := collect(t, reader)
	got, ok := sumFor(t, rm, "vocalstock.structure.fallbacks", "reason", attribute.StringValue("incomplete"))
	if !ok {
		t.Fatal("data point with reason=incomplete not found")
	}
	if got != 2 {
		t.Errorf("fallbacks = %d, want 2", got)
	}
}

func TestProviderCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordProviderRequest(ctx, "openai", "llm", "ok")
	m.RecordProviderRequest(ctx, "openai", "llm", "ok")
	m.RecordProviderRequest(ctx, "openai", "llm", "error")
	m.RecordProviderError(ctx, "openai", "llm")

	rm := collect(t, reader)
	got, ok := sumFor(t, rm, "vocalstock.provider.requests", "status", attribute.StringValue("ok"))
	if !ok || got != 2 {
		t.Errorf("ok requests = %d (found %v), want 2", got, ok)
	}
	got, ok = sumFor(t, rm, "vocalstock.provider.errors", "provider", attribute.StringValue("openai"))
	if !ok || got != 1 {
		t.Errorf("errors = %d (found %v), want 1", got, ok)
	}
}

func TestRecordDuplicate(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.RecordDuplicate(context.Background(), "/commands")

	rm := collect(t, reader)
	got, ok := sumFor(t, rm, "vocalstock.idempotency.duplicates", "route", attribute.StringValue("/commands"))
	if !ok || got != 1 {
		t.Errorf("duplicates = %d (found %v), want 1", got, ok)
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.RecordHTTPRequest(context.Background(), "GET", "GET /inventory", 200, 50*time.Millisecond)

	rm := collect(t, reader)
	met := findMetric(rm, "vocalstock.http.request.duration")
	if met == nil {
		t.Fatal("metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("metric is not a histogram")
	}
	if len(hist.DataPoints) != 1 {
		t.Fatalf("data points = %d, want 1", len(hist.DataPoints))
	}
	dp := hist.DataPoints[0]
	if dp.Count != 1 {
		t.Errorf("sample count = %d, want 1", dp.Count)
	}
	if v, _ := dp.Attributes.Value("status"); v.AsString() != "200" {
		t.Errorf("status attribute = %q, want 200", v.AsString())
	}
}

func TestDefaultMetrics_ReturnsSameInstance(t *testing.T) {
	a := DefaultMetrics()
	b := DefaultMetrics()
	if a != b {
		t.Error("DefaultMetrics returned different pointers")
	}
}
