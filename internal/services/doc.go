// Package services implements the upstream clients used by the curation pipeline.
//
// # Provider Interfaces
//
// [CatalogProvider] covers the streaming-service calls (playlist reads, audio features, artist genres, playlist writes).
// [Completer] covers the single chat-completion call made during curation.
//
// # Spotify Implementation
//
// [SpotifyService] wraps github.com/zmb3/spotify/v2 over an oauth2 static token source.
// Each request carries the caller's token; nothing is refreshed or stored.
//
// # OpenAI Implementation
//
// [OpenAIService] posts to /chat/completions with resty and asks for a JSON object reply.
//
// # Transport
//
// Both clients share a [Transport] that applies a per-attempt timeout, a token-bucket rate limit
// and bounded exponential retry on network errors, 429 and 5xx responses.
package services
