// package repositories provides the batch session stores.
//
// Each store implements [SessionStore] with its own locking or transaction so concurrent batches for one
// user never interleave a read-modify-write.
package repositories

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/kurator/internal/models"
	"github.com/desertthunder/kurator/internal/shared"
)

const (
	defaultSessionTTL = 30 * time.Minute
	redisPingTimeout  = 5 * time.Second
)

// SessionStore keeps [models.BatchSummary] values between /batch calls.
//
// Sessions expire TTL after their last write.
type SessionStore interface {
	// Create stores a new session, replacing any existing one for the same user.
	Create(ctx context.Context, summary *models.BatchSummary) error

	// Update applies fn to the session atomically and returns the stored result.
	// Returns [shared.ErrSessionNotFound] when no live session exists.
	Update(ctx context.Context, userID string, fn func(*models.BatchSummary)) (*models.BatchSummary, error)

	// Take returns the session and removes it.
	Take(ctx context.Context, userID string) (*models.BatchSummary, error)

	Close() error
}

// NewSessionStore builds the store selected by cfg.Driver.
func NewSessionStore(cfg shared.SessionsConfig, logger *log.Logger) (SessionStore, error) {
	ttl := cfg.TTL.Duration
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}

	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	logger.Debug("opening session store", "driver", cfg.Driver, "ttl", ttl)

	switch cfg.Driver {
	case "", "memory":
		return NewMemoryStore(ttl), nil
	case "sqlite":
		db, err := shared.OpenMigrated(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return NewSQLiteStore(db, ttl), nil
	case "redis":
		store, err := NewRedisStore(cfg.RedisURL, ttl)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("redis unreachable: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unknown session driver %q", shared.ErrInvalidConfig, cfg.Driver)
	}
}

func sessionNotFound(userID string) error {
	return fmt.Errorf("%w for user %s", shared.ErrSessionNotFound, userID)
}
