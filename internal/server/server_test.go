package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/kurator/internal/models"
	"github.com/desertthunder/kurator/internal/repositories"
	"github.com/desertthunder/kurator/internal/shared"
	"github.com/desertthunder/kurator/internal/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const origin = "https://trackcurator.org"

type analyzerFunc func(ctx context.Context, req tasks.AnalyzeRequest, progress chan<- tasks.ProgressUpdate) (*tasks.AnalyzeResult, error)

func (f analyzerFunc) Analyze(ctx context.Context, req tasks.AnalyzeRequest, progress chan<- tasks.ProgressUpdate) (*tasks.AnalyzeResult, error) {
	return f(ctx, req, progress)
}

func newTestRouter(t *testing.T, analyzer tasks.Analyzer) *BasicRouter {
	t.Helper()
	if analyzer == nil {
		analyzer = analyzerFunc(func(ctx context.Context, req tasks.AnalyzeRequest, _ chan<- tasks.ProgressUpdate) (*tasks.AnalyzeResult, error) {
			if err := req.Validate(); err != nil {
				return nil, err
			}
			return &tasks.AnalyzeResult{OK: true, Mode: tasks.AnalyzeMode}, nil
		})
	}
	store := repositories.NewMemoryStore(time.Minute)
	return New(Deps{
		Analyzer:       analyzer,
		Batches:        tasks.NewBatchCollector(store, nil),
		AllowedOrigins: []string{origin, "http://localhost:5173"},
		Now:            func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) },
	})
}

func do(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		r.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestRouter(t *testing.T) {
	t.Run("health check", func(t *testing.T) {
		w := do(t, newTestRouter(t, nil), http.MethodGet, "/", "")
		assert.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, true, body["ok"])
		assert.Equal(t, ServiceName, body["service"])
		assert.Equal(t, "2025-03-01T12:00:00Z", body["time"])
		assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	})

	t.Run("unknown path is a JSON 404", func(t *testing.T) {
		w := do(t, newTestRouter(t, nil), http.MethodGet, "/nope", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Not found", decode(t, w)["error"])
	})

	t.Run("wrong method is a JSON 405", func(t *testing.T) {
		for _, path := range []string{"/analyze", "/batch", "/batch/analyze"} {
			w := do(t, newTestRouter(t, nil), http.MethodGet, path, "")
			assert.Equal(t, http.StatusMethodNotAllowed, w.Code, path)
			assert.Equal(t, "Method not allowed", decode(t, w)["error"], path)
		}
	})

	t.Run("middleware applies in order added", func(t *testing.T) {
		var order []string
		r := NewBasicRouter()
		for _, name := range []string{"first", "second"} {
			r.Use(func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, req)
				})
			})
		}
		r.Handle(http.MethodGet, "/x", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			order = append(order, "handler")
		}))

		do(t, r, http.MethodGet, "/x", "")
		assert.Equal(t, []string{"first", "second", "handler"}, order)
	})
}

func TestCORS(t *testing.T) {
	t.Run("preflight", func(t *testing.T) {
		w := do(t, newTestRouter(t, nil), http.MethodOptions, "/analyze", "", "Origin", "http://localhost:5173")
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, corsMethods, w.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, corsHeaders, w.Header().Get("Access-Control-Allow-Headers"))
		assert.Equal(t, "Origin", w.Header().Get("Vary"))
		assert.Empty(t, w.Body.String())
	})

	t.Run("forbidden origin", func(t *testing.T) {
		w := do(t, newTestRouter(t, nil), http.MethodGet, "/", "", "Origin", "https://evil.example")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "Forbidden origin", decode(t, w)["error"])
		assert.Equal(t, origin, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("no origin uses the primary", func(t *testing.T) {
		w := do(t, newTestRouter(t, nil), http.MethodGet, "/", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, origin, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("error responses carry headers", func(t *testing.T) {
		w := do(t, newTestRouter(t, nil), http.MethodPost, "/analyze", "{", "Origin", origin)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, origin, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRequestID(t *testing.T) {
	t.Run("echoes caller id", func(t *testing.T) {
		var seen string
		h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = RequestIDFrom(r.Context())
		}))
		w := do(t, h, http.MethodGet, "/", "", RequestIDHeader, "abc-123")
		assert.Equal(t, "abc-123", seen)
		assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	})

	t.Run("mints distinct ids", func(t *testing.T) {
		r := newTestRouter(t, nil)
		a := do(t, r, http.MethodGet, "/", "").Header().Get(RequestIDHeader)
		b := do(t, r, http.MethodGet, "/", "").Header().Get(RequestIDHeader)
		assert.NotEmpty(t, a)
		assert.NotEqual(t, a, b)
	})
}

func TestRecoverer(t *testing.T) {
	var buf bytes.Buffer
	logger := shared.NewLogger(&buf)
	h := Recoverer(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal error", decode(t, w)["error"])
	assert.Contains(t, buf.String(), "boom")
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	h := RequestLogger(shared.NewLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	do(t, h, http.MethodPost, "/brew", "")
	out := buf.String()
	assert.Contains(t, out, "/brew")
	assert.Contains(t, out, "418")
}

func TestAnalyzeHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var got tasks.AnalyzeRequest
		analyzer := analyzerFunc(func(_ context.Context, req tasks.AnalyzeRequest, _ chan<- tasks.ProgressUpdate) (*tasks.AnalyzeResult, error) {
			got = req
			return &tasks.AnalyzeResult{
				OK:           true,
				Mode:         tasks.AnalyzeMode,
				CuratedIDs:   []string{"t1"},
				PlaylistMeta: models.PlaylistMeta{Name: "Club", Owner: "dj", Total: 1},
			}, nil
		})

		body := `{"token":"tok","playlistId":"pl","criteria":{"genre":"house","bpmRange":"120-130","length":30},"createNew":false,"llmLimit":120}`
		w := do(t, newTestRouter(t, analyzer), http.MethodPost, "/analyze", body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		assert.Equal(t, "tok", got.Token)
		assert.Equal(t, "pl", got.PlaylistID)
		require.NotNil(t, got.CreateNew)
		assert.False(t, *got.CreateNew)
		require.NotNil(t, got.LLMLimit)
		assert.Equal(t, 120, *got.LLMLimit)

		out := decode(t, w)
		assert.Equal(t, true, out["ok"])
		assert.Equal(t, "full_ai", out["mode"])
		assert.Equal(t, []any{"t1"}, out["curated_ids"])
	})

	t.Run("new playlist link", func(t *testing.T) {
		analyzer := analyzerFunc(func(context.Context, tasks.AnalyzeRequest, chan<- tasks.ProgressUpdate) (*tasks.AnalyzeResult, error) {
			return &tasks.AnalyzeResult{
				OK:          true,
				Mode:        tasks.AnalyzeMode,
				NewPlaylist: &models.NewPlaylistRef{ID: "p", ExternalURL: "https://open.spotify.com/playlist/p"},
			}, nil
		})

		w := do(t, newTestRouter(t, analyzer), http.MethodPost, "/analyze", `{"token":"t","playlistId":"p"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		assert.Equal(t, map[string]any{
			"id":            "p",
			"externalUrl":   "https://open.spotify.com/playlist/p",
			"external_urls": map[string]any{"spotify": "https://open.spotify.com/playlist/p"},
		}, decode(t, w)["newPlaylist"])
	})

	t.Run("missing fields", func(t *testing.T) {
		w := do(t, newTestRouter(t, nil), http.MethodPost, "/analyze", `{"token":"tok"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Missing token or playlistId", decode(t, w)["error"])
	})

	t.Run("malformed JSON", func(t *testing.T) {
		w := do(t, newTestRouter(t, nil), http.MethodPost, "/analyze", `{"token":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid JSON body", decode(t, w)["error"])
	})

	t.Run("pipeline failure is opaque", func(t *testing.T) {
		analyzer := analyzerFunc(func(context.Context, tasks.AnalyzeRequest, chan<- tasks.ProgressUpdate) (*tasks.AnalyzeResult, error) {
			return nil, &shared.ProviderError{Provider: "spotify", Op: "playlist", Status: 401, Err: errors.New("token expired")}
		})
		w := do(t, newTestRouter(t, analyzer), http.MethodPost, "/analyze", `{"token":"t","playlistId":"p"}`)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, map[string]any{"error": "Analyze failed"}, decode(t, w))
	})
}

func batchBody(userID string, n, total int, tracks ...models.TrackProfile) string {
	b, _ := json.Marshal(tasks.BatchRequest{UserID: userID, BatchNumber: n, TotalBatches: total, Tracks: tracks})
	return string(b)
}

func TestBatchHandler(t *testing.T) {
	track := func(id string, genre string) models.TrackProfile {
		return models.TrackProfile{ID: id, DurationMs: 60_000, Genres: []string{genre}, Energy: models.Float(0.5)}
	}

	t.Run("collect then analyze", func(t *testing.T) {
		r := newTestRouter(t, nil)

		w := do(t, r, http.MethodPost, "/batch", batchBody("u1", 1, 2, track("a", "house"), track("b", "house")))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		first := decode(t, w)
		assert.Equal(t, false, first["complete"])
		assert.EqualValues(t, 1, first["received"])

		w = do(t, r, http.MethodPost, "/batch", batchBody("u1", 2, 2, track("c", "techno")))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, true, decode(t, w)["complete"])

		w = do(t, r, http.MethodPost, "/batch/analyze", `{"userId":"u1"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var analysis tasks.BatchAnalysis
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &analysis))
		assert.True(t, analysis.OK)
		assert.Equal(t, 3, analysis.Summary.TrackCount)

		w = do(t, r, http.MethodPost, "/batch/analyze", `{"userId":"u1"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("later batch without session", func(t *testing.T) {
		w := do(t, newTestRouter(t, nil), http.MethodPost, "/batch", batchBody("ghost", 2, 2, track("a", "house")))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decode(t, w)["error"], "No active session")
	})

	t.Run("missing user", func(t *testing.T) {
		w := do(t, newTestRouter(t, nil), http.MethodPost, "/batch", batchBody("", 1, 1))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "missing userId", decode(t, w)["error"])
	})
}
