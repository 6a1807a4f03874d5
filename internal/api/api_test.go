package api_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/MrWong99/vocalstock/internal/api"
	"github.com/MrWong99/vocalstock/internal/assistant"
	"github.com/MrWong99/vocalstock/internal/catalog"
	"github.com/MrWong99/vocalstock/internal/catalog/mock"
	"github.com/MrWong99/vocalstock/internal/executor"
	"github.com/MrWong99/vocalstock/internal/idempotency"
	"github.com/MrWong99/vocalstock/internal/observe"
	"github.com/MrWong99/vocalstock/internal/structure"
	sttmock "github.com/MrWong99/vocalstock/pkg/provider/stt/mock"
	"github.com/MrWong99/vocalstock/pkg/provider/tts"
	ttsmock "github.com/MrWong99/vocalstock/pkg/provider/tts/mock"
)

type env struct {
	store *catalog.MemStore
	mux   *http.ServeMux
	stt   *sttmock.Provider
	tts   *ttsmock.Provider
}

func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}

func newEnv(t *testing.T, opts ...api.Option) *env {
	t.Helper()
	store := catalog.NewMemStore()
	for _, it := range []catalog.Item{
		{ID: "gloves", Name: "Disposable Gloves", CurrentStock: 100, Unit: "pairs", MinStock: 20},
		{ID: "thermo", Name: "Thermometers", CurrentStock: 2, Unit: "units", MinStock: 5},
	} {
		if _, err := store.CreateItem(context.Background(), it); err != nil {
			t.Fatalf("CreateItem: %v", err)
		}
	}

	m := testMetrics(t)
	e := &env{
		store: store,
		mux:   http.NewServeMux(),
		stt:   &sttmock.Provider{Text: "i used 4 gloves"},
		tts:   &ttsmock.Provider{Audio: &tts.Audio{Data: []byte("RIFF"), MIMEType: "audio/wav"}},
	}
	exec := executor.New(store, catalog.NewResolver(store))
	st := structure.New(structure.WithItemNormalizer(catalog.NewAliases(catalog.DefaultAliasGroups)))
	a := assistant.New(st, exec,
		assistant.WithMetrics(m),
		assistant.WithSTT(e.stt),
		assistant.WithTTS(e.tts, ""),
	)
	opts = append([]api.Option{api.WithMetrics(m)}, opts...)
	api.New(store, a, exec, opts...).Register(e.mux)
	return e
}

func (e *env) do(t *testing.T, method, path, body string, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode JSON: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func TestListInventory_IncludesStatus(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	rec := e.do(t, "GET", "/inventory", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decode[struct {
		Items []struct {
			ID           string `json:"id"`
			CurrentStock int    `json:"currentStock"`
			Status       string `json:"status"`
		} `json:"items"`
	}](t, rec)

	got := map[string]string{}
	for _, it := range body.Items {
		got[it.ID] = it.Status
	}
	if got["gloves"] != "in-stock" || got["thermo"] != "low-stock" {
		t.Errorf("statuses = %v", got)
	}
}

func TestSetStock(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
	}{
		{"ok", "/inventory/gloves", `{"currentStock": 42}`, http.StatusOK},
		{"zero", "/inventory/gloves", `{"currentStock": 0}`, http.StatusOK},
		{"missing item", "/inventory/nope", `{"currentStock": 1}`, http.StatusNotFound},
		{"negative", "/inventory/gloves", `{"currentStock": -1}`, http.StatusBadRequest},
		{"no field", "/inventory/gloves", `{}`, http.StatusBadRequest},
		{"bad json", "/inventory/gloves", `{`, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			e := newEnv(t)
			rec := e.do(t, "PUT", tc.path, tc.body)
			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tc.wantStatus, rec.Body)
			}
		})
	}
}

func TestRecordUsage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantStock  int
	}{
		{"ok", `{"itemId":"gloves","quantity":10,"user":"nurse","notes":"ward 3"}`, http.StatusOK, 90},
		{"missing id", `{"quantity":10}`, http.StatusBadRequest, 100},
		{"zero quantity", `{"itemId":"gloves","quantity":0}`, http.StatusBadRequest, 100},
		{"unknown item", `{"itemId":"nope","quantity":1}`, http.StatusNotFound, 100},
		{"insufficient", `{"itemId":"gloves","quantity":101}`, http.StatusConflict, 100},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			e := newEnv(t)
			rec := e.do(t, "POST", "/usage", tc.body)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tc.wantStatus, rec.Body)
			}
			it, _ := e.store.Get(context.Background(), "gloves")
			if it.CurrentStock != tc.wantStock {
				t.Errorf("stock = %d, want %d", it.CurrentStock, tc.wantStock)
			}
		})
	}
}

func TestUsageLogs_ListsNewestFirst(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.do(t, "POST", "/usage", `{"itemId":"gloves","quantity":1,"user":"a"}`)
	e.do(t, "POST", "/usage", `{"itemId":"thermo","quantity":1,"user":"b"}`)

	type logs struct {
		Logs []catalog.UsageLog `json:"logs"`
	}
	all := decode[logs](t, e.do(t, "GET", "/usage-logs", ""))
	if len(all.Logs) != 2 {
		t.Fatalf("got %d logs, want 2", len(all.Logs))
	}
	if all.Logs[0].Actor != "b" {
		t.Errorf("newest actor = %q, want b", all.Logs[0].Actor)
	}

	one := decode[logs](t, e.do(t, "GET", "/usage-logs/gloves", ""))
	if len(one.Logs) != 1 || one.Logs[0].ItemID != "gloves" {
		t.Errorf("item logs = %+v", one.Logs)
	}

	none := e.do(t, "GET", "/usage-logs/nope", "")
	if !strings.Contains(none.Body.String(), `"logs":[]`) {
		t.Errorf("empty logs body = %s", none.Body)
	}
}

func TestCommands(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	rec := e.do(t, "POST", "/commands", `{"text":"set gloves to 30","language":"en"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body)
	}
	body := decode[struct {
		Transcript string            `json:"transcript"`
		Command    structure.Command `json:"command"`
		Response   executor.Response `json:"response"`
	}](t, rec)

	if body.Transcript != "set gloves to 30" {
		t.Errorf("transcript = %q", body.Transcript)
	}
	if body.Command.Kind != structure.KindUpdate {
		t.Errorf("kind = %q, want update", body.Command.Kind)
	}
	if want := "Updated Disposable Gloves stock to 30 pairs"; body.Response.Message != want || !body.Response.Success {
		t.Errorf("response = %+v, want %q", body.Response, want)
	}

	if rec := e.do(t, "POST", "/commands", `{"text":"   "}`); rec.Code != http.StatusBadRequest {
		t.Errorf("empty text status = %d, want 400", rec.Code)
	}
}

func TestCommands_NotFoundIsOK(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	rec := e.do(t, "POST", "/commands", `{"text":"how many unicorns do we have?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"success":false`) {
		t.Errorf("body = %s, want success=false", rec.Body)
	}
}

func TestProcessVoice_Audio(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	audio := base64.StdEncoding.EncodeToString([]byte("webm-bytes"))
	rec := e.do(t, "POST", "/process-voice", `{"audio":"data:audio/webm;base64,`+audio+`","language":"en"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body)
	}
	body := decode[struct {
		Transcript    string            `json:"transcript"`
		Response      executor.Response `json:"response"`
		AudioResponse string            `json:"audioResponse"`
		AudioMIMEType string            `json:"audioMimeType"`
	}](t, rec)

	if body.Transcript != "i used 4 gloves" {
		t.Errorf("transcript = %q", body.Transcript)
	}
	if !body.Response.Success {
		t.Errorf("response = %+v, want success", body.Response)
	}
	if body.AudioResponse != base64.StdEncoding.EncodeToString([]byte("RIFF")) || body.AudioMIMEType != "audio/wav" {
		t.Errorf("audio = %q (%s)", body.AudioResponse, body.AudioMIMEType)
	}
	if got := e.stt.Calls[0].Audio; !bytes.Equal(got, []byte("webm-bytes")) {
		t.Errorf("stt audio = %q", got)
	}
}

func TestProcessVoice_BadInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"nothing", `{}`},
		{"bad base64", `{"audio":"%%%"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			e := newEnv(t)
			if rec := e.do(t, "POST", "/process-voice", tc.body); rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestIdempotency_DuplicateKeyRejected(t *testing.T) {
	t.Parallel()
	e := newEnv(t, api.WithGuard(idempotency.NewMemory(idempotency.DefaultTTL)))

	first := e.do(t, "POST", "/commands", `{"text":"i used 5 gloves"}`, api.IdempotencyHeader, "k1")
	if first.Code != http.StatusOK {
		t.Fatalf("first status = %d, want 200", first.Code)
	}
	second := e.do(t, "POST", "/commands", `{"text":"i used 5 gloves"}`, api.IdempotencyHeader, "k1")
	if second.Code != http.StatusConflict {
		t.Errorf("second status = %d, want 409", second.Code)
	}

	it, _ := e.store.Get(context.Background(), "gloves")
	if it.CurrentStock != 95 {
		t.Errorf("stock = %d, want 95 (applied once)", it.CurrentStock)
	}

	other := e.do(t, "POST", "/commands", `{"text":"i used 5 gloves"}`, api.IdempotencyHeader, "k2")
	if other.Code != http.StatusOK {
		t.Errorf("other key status = %d, want 200", other.Code)
	}
}

// failingPipeline fails every request.
type failingPipeline struct{ err error }

func (f failingPipeline) HandleText(context.Context, string) (assistant.Reply, error) {
	return assistant.Reply{}, f.err
}

func (f failingPipeline) Process(context.Context, assistant.Input) (assistant.Reply, error) {
	return assistant.Reply{}, f.err
}

func TestPipelineFailure_500AndKeyReleased(t *testing.T) {
	t.Parallel()
	guard := idempotency.NewMemory(idempotency.DefaultTTL)
	store := &mock.Store{}
	exec := executor.New(store, catalog.NewResolver(store))
	mux := http.NewServeMux()
	api.New(store, failingPipeline{err: errors.New("llm down")}, exec,
		api.WithGuard(guard), api.WithMetrics(testMetrics(t))).Register(mux)

	for _, path := range []string{"/commands", "/process-voice"} {
		req := httptest.NewRequest("POST", path, strings.NewReader(`{"text":"x","transcript":"x"}`))
		req.Header.Set(api.IdempotencyHeader, "retry-me")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("%s status = %d, want 500", path, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), api.ErrorMessage) {
			t.Errorf("%s body = %s, want apology", path, rec.Body)
		}
	}
	if guard.Len() != 0 {
		t.Errorf("guard holds %d keys, want 0 after failures", guard.Len())
	}
}

func TestStoreFailure_500(t *testing.T) {
	t.Parallel()
	store := &mock.Store{ListErr: errors.New("db gone"), LogsErr: errors.New("db gone")}
	exec := executor.New(store, catalog.NewResolver(store))
	mux := http.NewServeMux()
	api.New(store, failingPipeline{}, exec, api.WithMetrics(testMetrics(t))).Register(mux)

	for _, path := range []string{"/inventory", "/usage-logs"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("%s status = %d, want 500", path, rec.Code)
		}
	}
}

func TestBodyTooLarge(t *testing.T) {
	t.Parallel()
	e := newEnv(t, api.WithMaxBodyBytes(16))
	rec := e.do(t, "POST", "/commands", `{"text":"i used five gloves please"}`)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}
