package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/kurator/internal/models"
)

// SQLiteStore implements [SessionStore] on the batch_sessions table.
//
// Each write runs in a transaction; the summary is stored as JSON and expires_at as unix milliseconds.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewSQLiteStore creates a SQLiteStore with the given migrated database connection
func NewSQLiteStore(db *sql.DB, ttl time.Duration) *SQLiteStore {
	return &SQLiteStore{db: db, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

// Create inserts or replaces the session and deletes expired rows.
func (s *SQLiteStore) Create(ctx context.Context, summary *models.BatchSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		now := s.now()
		if _, err := tx.ExecContext(ctx, `DELETE FROM batch_sessions WHERE expires_at <= ?`, now.UnixMilli()); err != nil {
			return fmt.Errorf("failed to sweep sessions: %w", err)
		}

		query := `
			INSERT OR REPLACE INTO batch_sessions (user_id, total_batches, summary, created_at, expires_at)
			VALUES (?, ?, ?, ?, ?)
		`
		if _, err := tx.ExecContext(ctx, query, summary.UserID, summary.TotalBatches, string(data), now, now.Add(s.ttl).UnixMilli()); err != nil {
			return fmt.Errorf("failed to insert session: %w", err)
		}
		return nil
	})
}

// Update reads, modifies and writes the session in one transaction.
func (s *SQLiteStore) Update(ctx context.Context, userID string, fn func(*models.BatchSummary)) (*models.BatchSummary, error) {
	var updated *models.BatchSummary
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		summary, err := s.scanOne(tx.QueryRowContext(ctx, selectSession, userID, s.now().UnixMilli()), userID)
		if err != nil {
			return err
		}

		fn(summary)
		data, err := json.Marshal(summary)
		if err != nil {
			return fmt.Errorf("failed to encode session: %w", err)
		}

		query := `UPDATE batch_sessions SET summary = ?, total_batches = ?, expires_at = ? WHERE user_id = ?`
		if _, err := tx.ExecContext(ctx, query, string(data), summary.TotalBatches, s.now().Add(s.ttl).UnixMilli(), userID); err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		updated = summary
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Take retrieves and deletes a live session.
func (s *SQLiteStore) Take(ctx context.Context, userID string) (*models.BatchSummary, error) {
	var taken *models.BatchSummary
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		summary, err := s.scanOne(tx.QueryRowContext(ctx, selectSession, userID, s.now().UnixMilli()), userID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM batch_sessions WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		taken = summary
		return nil
	})
	if err != nil {
		return nil, err
	}
	return taken, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const selectSession = `
	SELECT summary
	FROM batch_sessions
	WHERE user_id = ? AND expires_at > ?
`

func (s *SQLiteStore) scanOne(row *sql.Row, userID string) (*models.BatchSummary, error) {
	var data string
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sessionNotFound(userID)
		}
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	var summary models.BatchSummary
	if err := json.Unmarshal([]byte(data), &summary); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &summary, nil
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
