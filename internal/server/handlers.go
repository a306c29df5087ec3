package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/kurator/internal/shared"
	"github.com/desertthunder/kurator/internal/tasks"
)

// ServiceName is reported by the health check.
const ServiceName = "kurator-backend"

const maxBodyBytes = 10 << 20

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func orDiscard(l *log.Logger) *log.Logger {
	if l == nil {
		return shared.NewLogger(io.Discard)
	}
	return l
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// decodeJSON reads a single JSON document from the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()

	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return &shared.ValidationError{Message: "Empty request body"}
		}
		return &shared.ValidationError{Message: "Invalid JSON body"}
	}
	return nil
}

// validationMessage returns the client-facing text for err when it is a caller mistake.
func validationMessage(err error) (string, bool) {
	var ve *shared.ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Message, true
	case errors.Is(err, shared.ErrSessionNotFound):
		return "No active session, start again from batch 1", true
	}
	return "", false
}

// HealthHandler reports liveness with the server time.
func HealthHandler(now func() time.Time) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"service": ServiceName,
			"time":    now().UTC().Format(time.RFC3339),
		})
	})
}

// AnalyzeHandler serves POST /analyze.
type AnalyzeHandler struct {
	analyzer tasks.Analyzer
	logger   *log.Logger
}

// NewAnalyzeHandler creates an [AnalyzeHandler] running requests through analyzer.
func NewAnalyzeHandler(analyzer tasks.Analyzer, logger *log.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{analyzer: analyzer, logger: orDiscard(logger)}
}

func (h *AnalyzeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req tasks.AnalyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		msg, _ := validationMessage(err)
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	result, err := h.analyzer.Analyze(r.Context(), req, nil)
	if err != nil {
		if msg, ok := validationMessage(err); ok {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		h.logger.Error("analyze failed", "playlist", req.PlaylistID, "request_id", RequestIDFrom(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, "Analyze failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// BatchHandler serves the two-phase batch protocol: POST /batch collects, POST /batch/analyze summarizes.
type BatchHandler struct {
	collector *tasks.BatchCollector
	logger    *log.Logger
}

// NewBatchHandler creates a [BatchHandler] backed by collector.
func NewBatchHandler(collector *tasks.BatchCollector, logger *log.Logger) *BatchHandler {
	return &BatchHandler{collector: collector, logger: orDiscard(logger)}
}

// Routes implements [Handler].
func (h *BatchHandler) Routes() []string {
	return []string{"/batch", "/batch/analyze"}
}

func (h *BatchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	switch r.URL.Path {
	case "/batch":
		h.receive(w, r)
	case "/batch/analyze":
		h.analyze(w, r)
	default:
		notFound(w, r)
	}
}

func (h *BatchHandler) receive(w http.ResponseWriter, r *http.Request) {
	var req tasks.BatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		msg, _ := validationMessage(err)
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	receipt, err := h.collector.Receive(r.Context(), req)
	if err != nil {
		h.fail(w, r, "Batch failed", err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (h *BatchHandler) analyze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		msg, _ := validationMessage(err)
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	analysis, err := h.collector.Analyze(r.Context(), req.UserID)
	if err != nil {
		h.fail(w, r, "Batch analyze failed", err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (h *BatchHandler) fail(w http.ResponseWriter, r *http.Request, public string, err error) {
	if msg, ok := validationMessage(err); ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	h.logger.Error(public, "request_id", RequestIDFrom(r.Context()), "error", err)
	writeError(w, http.StatusInternalServerError, public)
}
