// package server contains middleware & handlers for the curation web service
package server

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/kurator/internal/shared"
	"github.com/desertthunder/kurator/internal/tasks"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// Common middleware includes logging, recovery, CORS, etc.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers in the curation service.
// Implementations handle specific endpoints (health, analyze, batch).
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
// Implementations register handlers, apply middleware, and configure the HTTP server.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// Deps are the collaborators the routes need.
type Deps struct {
	Analyzer       tasks.Analyzer
	Batches        *tasks.BatchCollector
	AllowedOrigins []string
	Logger         *log.Logger
	Now            func() time.Time
}

// New builds the service router: recovery, request id, access log and CORS around every route.
func New(deps Deps) *BasicRouter {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	deps.Logger = orDiscard(deps.Logger)

	r := NewBasicRouter()
	r.Use(
		Recoverer(deps.Logger),
		RequestID(),
		RequestLogger(deps.Logger),
		CORS(deps.AllowedOrigins),
	)

	r.Handle(http.MethodGet, "/{$}", HealthHandler(deps.Now))
	r.Handle(http.MethodPost, "/analyze", NewAnalyzeHandler(deps.Analyzer, deps.Logger))
	r.Handler(NewBatchHandler(deps.Batches, deps.Logger))
	return r
}

// NewHTTPServer returns an [http.Server] for cfg serving handler.
func NewHTTPServer(cfg shared.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
