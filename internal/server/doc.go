// Package server exposes the curation pipeline over HTTP.
//
// # Routes
//
//	GET  /               health check
//	POST /analyze        run the full curation pipeline for one playlist
//	POST /batch          fold one batch of track profiles into the caller's session
//	POST /batch/analyze  summarize and close the caller's session
//
// Every response body is JSON. Caller mistakes (bad JSON, missing fields, no active session) are 400s
// carrying the message; anything else is logged with the request id and reported as a generic 500.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. The [BasicRouter] implementation
// uses [http.ServeMux] internally with method filtering, and wraps the whole mux in its middleware so
// 404s, 405s and CORS preflights are logged and carry CORS headers like every other response.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
// [BatchHandler] uses it for the two batch endpoints.
package server
