package server

import (
	"context"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/kurator/internal/shared"
	"github.com/samber/lo"
)

type ctxKey int

const requestIDKey ctxKey = iota

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

const (
	corsMethods = "GET,POST,OPTIONS"
	corsHeaders = "content-type,authorization"
)

// RequestIDFrom returns the id assigned by [RequestID], or "" outside a request.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// RequestID reuses the caller's X-Request-ID or mints a uuid, echoes it on the response and stores it in the context.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = shared.GenerateID()
			}
			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

// RequestLogger writes one access log line per request.
func RequestLogger(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			status := lo.Ternary(rec.status == 0, http.StatusOK, rec.status)
			kv := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", rec.bytes,
				"duration", time.Since(start),
				"request_id", RequestIDFrom(r.Context()),
			}
			if status >= http.StatusInternalServerError {
				logger.Warn("request", kv...)
			} else {
				logger.Info("request", kv...)
			}
		})
	}
}

// Recoverer turns a handler panic into a JSON 500.
func Recoverer(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					if v == http.ErrAbortHandler {
						panic(v)
					}
					logger.Error("panic serving request", "path", r.URL.Path, "panic", v, "stack", string(debug.Stack()))
					writeError(w, http.StatusInternalServerError, "Internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// CORS answers preflights and rejects requests from origins outside allowed.
//
// The first allowed origin is the primary one: it is sent back when the request origin is absent or unknown.
// Requests without an Origin header (curl, server to server) pass through.
func CORS(allowed []string) Middleware {
	primary := lo.FirstOrEmpty(allowed)
	permitted := lo.SliceToMap(allowed, func(o string) (string, struct{}) { return o, struct{}{} })

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			_, ok := permitted[origin]

			h := w.Header()
			if allow := lo.Ternary(ok, origin, primary); allow != "" {
				h.Set("Access-Control-Allow-Origin", allow)
			}
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Allow-Methods", corsMethods)
			h.Set("Access-Control-Allow-Headers", corsHeaders)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			if origin != "" && !ok {
				writeError(w, http.StatusForbidden, "Forbidden origin")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
