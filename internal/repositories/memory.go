package repositories

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/desertthunder/kurator/internal/models"
)

type memoryEntry struct {
	summary   *models.BatchSummary
	expiresAt time.Time
}

// MemoryStore is an in-process [SessionStore] guarded by a mutex.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]memoryEntry
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, sessions: map[string]memoryEntry{}}
}

// Create implements [SessionStore]. Expired sessions are swept on every create.
func (s *MemoryStore) Create(ctx context.Context, summary *models.BatchSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, e := range s.sessions {
		if !now.Before(e.expiresAt) {
			delete(s.sessions, id)
		}
	}
	s.sessions[summary.UserID] = memoryEntry{summary: clone(summary), expiresAt: now.Add(s.ttl)}
	return nil
}

// Update implements [SessionStore].
func (s *MemoryStore) Update(ctx context.Context, userID string, fn func(*models.BatchSummary)) (*models.BatchSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(userID)
	if !ok {
		return nil, sessionNotFound(userID)
	}
	fn(e.summary)
	e.expiresAt = s.now().Add(s.ttl)
	s.sessions[userID] = e
	return clone(e.summary), nil
}

// Take implements [SessionStore].
func (s *MemoryStore) Take(ctx context.Context, userID string) (*models.BatchSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(userID)
	if !ok {
		return nil, sessionNotFound(userID)
	}
	delete(s.sessions, userID)
	return e.summary, nil
}

// Len returns the number of stored sessions, including expired ones not yet swept.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *MemoryStore) Close() error { return nil }

// live must be called with mu held.
func (s *MemoryStore) live(userID string) (memoryEntry, bool) {
	e, ok := s.sessions[userID]
	if !ok {
		return memoryEntry{}, false
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.sessions, userID)
		return memoryEntry{}, false
	}
	return e, true
}

// clone deep-copies a summary so callers never share the stored maps and slices.
func clone(s *models.BatchSummary) *models.BatchSummary {
	data, err := json.Marshal(s)
	if err != nil {
		cp := *s
		return &cp
	}
	var out models.BatchSummary
	if err := json.Unmarshal(data, &out); err != nil {
		cp := *s
		return &cp
	}
	return &out
}
