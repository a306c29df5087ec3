package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/kurator/internal/models"
	"github.com/go-redis/redis/v8"
)

const (
	redisKeyPrefix  = "kurator:batch:"
	redisMaxTxRetry = 5
)

// RedisStore implements [SessionStore] with one JSON value per user and native key expiry.
//
// Updates use WATCH/MULTI and retry when another writer touched the key first.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to url (redis://host:port/db).
func NewRedisStore(url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return NewRedisStoreFromClient(redis.NewClient(opts), ttl), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(userID string) string { return redisKeyPrefix + userID }

// Ping checks connectivity. [NewSessionStore] calls it before handing the store out.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Create implements [SessionStore].
func (s *RedisStore) Create(ctx context.Context, summary *models.BatchSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.client.Set(ctx, redisKey(summary.UserID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Update implements [SessionStore].
func (s *RedisStore) Update(ctx context.Context, userID string, fn func(*models.BatchSummary)) (*models.BatchSummary, error) {
	key := redisKey(userID)
	var updated *models.BatchSummary

	txf := func(tx *redis.Tx) error {
		summary, err := decodeSession(tx.Get(ctx, key), userID)
		if err != nil {
			return err
		}

		fn(summary)
		data, err := json.Marshal(summary)
		if err != nil {
			return fmt.Errorf("failed to encode session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		if err == nil {
			updated = summary
		}
		return err
	}

	for range redisMaxTxRetry {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, fmt.Errorf("session %s: too many concurrent updates", userID)
}

// Take implements [SessionStore].
func (s *RedisStore) Take(ctx context.Context, userID string) (*models.BatchSummary, error) {
	return decodeSession(s.client.GetDel(ctx, redisKey(userID)), userID)
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func decodeSession(cmd *redis.StringCmd, userID string) (*models.BatchSummary, error) {
	data, err := cmd.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sessionNotFound(userID)
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var summary models.BatchSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &summary, nil
}
