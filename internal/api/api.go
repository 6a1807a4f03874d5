// Package api exposes the inventory catalog and the voice command pipeline
// over HTTP/JSON.
//
// Routes (registered on a [http.ServeMux] with method patterns):
//
//	GET  /inventory            list items with derived stock status
//	PUT  /inventory/{id}       set an item's stock
//	GET  /usage-logs           all usage log entries, newest first
//	GET  /usage-logs/{id}      usage log entries for one item
//	POST /usage                record usage of an item by ID
//	POST /commands             run a typed command through the pipeline
//	POST /process-voice        run a spoken (or transcribed) command and
//	                           return the synthesised reply
//
// POST /commands and POST /process-voice honour an Idempotency-Key header.
package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/MrWong99/vocalstock/internal/assistant"
	"github.com/MrWong99/vocalstock/internal/catalog"
	"github.com/MrWong99/vocalstock/internal/executor"
	"github.com/MrWong99/vocalstock/internal/idempotency"
	"github.com/MrWong99/vocalstock/internal/observe"
)

// ErrorMessage is returned in the body of every 500 response.
const ErrorMessage = "Sorry, there was an error processing your request."

// IdempotencyHeader names the request header carrying the idempotency key.
const IdempotencyHeader = "Idempotency-Key"

// DefaultMaxBodyBytes bounds request bodies. Base64 audio dominates.
const DefaultMaxBodyBytes = 16 << 20

// Pipeline runs commands end to end.
type Pipeline interface {
	HandleText(ctx context.Context, text string) (assistant.Reply, error)
	Process(ctx context.Context, in assistant.Input) (assistant.Reply, error)
}

// UsageRecorder deducts stock and appends a usage log entry.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, itemID string, qty int, actor, note string) (int, error)
}

// Option is a functional option for [New].
type Option func(*Server)

// WithGuard enables Idempotency-Key handling. Default: [idempotency.Nop].
func WithGuard(g idempotency.Guard) Option {
	return func(s *Server) { s.guard = g }
}

// WithMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithMaxBodyBytes overrides [DefaultMaxBodyBytes].
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) { s.maxBody = n }
}

// Server holds the HTTP handlers. It is stateless beyond its collaborators.
type Server struct {
	store    catalog.Store
	pipeline Pipeline
	usage    UsageRecorder
	guard    idempotency.Guard
	metrics  *observe.Metrics
	maxBody  int64
}

// New returns a Server.
func New(store catalog.Store, p Pipeline, usage UsageRecorder, opts ...Option) *Server {
	s := &Server{
		store:    store,
		pipeline: p,
		usage:    usage,
		guard:    idempotency.Nop{},
		maxBody:  DefaultMaxBodyBytes,
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Register adds all routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /inventory", s.listInventory)
	mux.HandleFunc("PUT /inventory/{id}", s.setStock)
	mux.HandleFunc("GET /usage-logs", s.usageLogs)
	mux.HandleFunc("GET /usage-logs/{id}", s.usageLogs)
	mux.HandleFunc("POST /usage", s.recordUsage)
	mux.HandleFunc("POST /commands", s.commands)
	mux.HandleFunc("POST /process-voice", s.processVoice)
}

// ── Catalog ──────────────────────────────────────────────────────────────────

type itemView struct {
	catalog.Item
	Status catalog.Status `json:"status"`
}

func (s *Server) listInventory(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListItems(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	views := make([]itemView, len(items))
	for i, it := range items {
		views[i] = itemView{Item: it, Status: it.Status()}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": views})
}

type setStockRequest struct {
	CurrentStock *int `json:"currentStock"`
}

func (s *Server) setStock(w http.ResponseWriter, r *http.Request) {
	var req setStockRequest
	if !s.decode(w, r, &req) {
		return
	}
	switch {
	case req.CurrentStock == nil:
		writeError(w, http.StatusBadRequest, "currentStock is required")
		return
	case *req.CurrentStock < 0:
		writeError(w, http.StatusBadRequest, "currentStock must not be negative")
		return
	}

	err := s.store.SetStock(r.Context(), r.PathValue("id"), *req.CurrentStock)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, "item not found")
	case errors.Is(err, catalog.ErrNegativeStock):
		writeError(w, http.StatusBadRequest, "currentStock must not be negative")
	case err != nil:
		s.internalError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func (s *Server) usageLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.store.UsageLogs(r.Context(), r.PathValue("id"))
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if logs == nil {
		logs = []catalog.UsageLog{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

type usageRequest struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
	User     string `json:"user"`
	Notes    string `json:"notes"`
}

func (s *Server) recordUsage(w http.ResponseWriter, r *http.Request) {
	var req usageRequest
	if !s.decode(w, r, &req) {
		return
	}
	switch {
	case req.ItemID == "":
		writeError(w, http.StatusBadRequest, "itemId is required")
		return
	case req.Quantity <= 0:
		writeError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}

	remaining, err := s.usage.RecordUsage(r.Context(), req.ItemID, req.Quantity, req.User, req.Notes)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, "item not found")
	case errors.Is(err, executor.ErrInsufficientStock):
		writeError(w, http.StatusConflict, "insufficient stock")
	case err != nil:
		s.internalError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "remainingStock": remaining})
	}
}

// ── Pipeline ─────────────────────────────────────────────────────────────────

type commandRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

func (s *Server) commands(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	release, ok := s.claim(w, r, "/commands")
	if !ok {
		return
	}

	reply, err := s.pipeline.HandleText(r.Context(), req.Text)
	if err != nil {
		release()
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

type voiceRequest struct {
	Audio      string `json:"audio"`
	Filename   string `json:"filename"`
	Transcript string `json:"transcript"`
	Language   string `json:"language"`
}

type voiceResponse struct {
	assistant.Reply
	AudioResponse string `json:"audioResponse,omitempty"`
	AudioMIMEType string `json:"audioMimeType,omitempty"`
}

func (s *Server) processVoice(w http.ResponseWriter, r *http.Request) {
	var req voiceRequest
	if !s.decode(w, r, &req) {
		return
	}
	in := assistant.Input{Transcript: req.Transcript, Language: req.Language, Filename: req.Filename}
	if req.Audio != "" {
		audio, err := decodeAudio(req.Audio)
		if err != nil {
			writeError(w, http.StatusBadRequest, "audio must be base64")
			return
		}
		in.Audio = audio
	}
	if len(in.Audio) == 0 && strings.TrimSpace(in.Transcript) == "" {
		writeError(w, http.StatusBadRequest, "audio or transcript is required")
		return
	}
	release, ok := s.claim(w, r, "/process-voice")
	if !ok {
		return
	}

	reply, err := s.pipeline.Process(r.Context(), in)
	switch {
	case errors.Is(err, assistant.ErrNoSTT):
		release()
		writeError(w, http.StatusBadRequest, "audio input is not enabled; send a transcript")
		return
	case err != nil:
		release()
		s.internalError(w, r, err)
		return
	}

	resp := voiceResponse{Reply: reply}
	if reply.Audio != nil {
		resp.AudioResponse = base64.StdEncoding.EncodeToString(reply.Audio.Data)
		resp.AudioMIMEType = reply.Audio.MIMEType
	}
	writeJSON(w, http.StatusOK, resp)
}

// decodeAudio accepts standard base64, optionally as a data URL.
func decodeAudio(s string) ([]byte, error) {
	if i := strings.Index(s, ";base64,"); strings.HasPrefix(s, "data:") && i >= 0 {
		s = s[i+len(";base64,"):]
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(s))
}

// ── Helpers ──────────────────────────────────────────────────────────────────

// claim consults the guard for the request's Idempotency-Key. On a duplicate
// it answers 409 and returns ok=false. The returned release func frees the key
// for a retry after a failure.
func (s *Server) claim(w http.ResponseWriter, r *http.Request, route string) (release func(), ok bool) {
	key := r.Header.Get(IdempotencyHeader)
	if key == "" {
		return func() {}, true
	}
	ctx := r.Context()
	err := s.guard.Claim(ctx, key)
	switch {
	case errors.Is(err, idempotency.ErrDuplicate):
		s.metrics.RecordDuplicate(ctx, route)
		writeError(w, http.StatusConflict, "duplicate request")
		return nil, false
	case err != nil:
		s.internalError(w, r, err)
		return nil, false
	}
	return func() {
		if err := s.guard.Release(context.WithoutCancel(ctx), key); err != nil {
			observe.Logger(ctx).Warn("api: release idempotency key", "err", err)
		}
	}, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	observe.Logger(r.Context()).Error("api: request failed", "path", r.URL.Path, "err", err)
	writeError(w, http.StatusInternalServerError, ErrorMessage)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
