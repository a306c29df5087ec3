// Package repositories implements the session stores behind the two-phase /batch protocol.
//
// A session is a [models.BatchSummary] keyed by the caller's user id. It is created by the first batch,
// updated by each later batch and removed when the caller asks for the analysis or its TTL lapses.
//
// Key Implementations:
//   - [MemoryStore] : process-local map guarded by a mutex, expired entries swept lazily
//   - [SQLiteStore] : batch_sessions table (see shared/sql), one transaction per write
//   - [RedisStore] : one key per session with native expiry, WATCH/MULTI for updates
//
// [NewSessionStore] picks the implementation from the [sessions] config section.
package repositories
