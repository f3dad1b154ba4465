package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"smart-summary/internal/retry"
)

const (
	// Key prefix for stored summaries
	summaryKeyPrefix = "summary:"

	connectAttempts = 3
	connectBackoff  = 100 * time.Millisecond
)

type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to addr and verifies the connection, retrying the
// ping with backoff while Redis starts up.
func NewRedisStore(addr, password string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := retry.Do(ctx, connectAttempts, connectBackoff, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return NewRedisStoreWithClient(client), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// GetSummary retrieves a stored summary by key
func (s *RedisStore) GetSummary(ctx context.Context, key string) (string, bool, error) {
	summary, err := s.client.Get(ctx, summaryKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return summary, true, nil
}

// SetSummary stores a summary with TTL
func (s *RedisStore) SetSummary(ctx context.Context, key, summary string, ttl time.Duration) error {
	if summary == "" {
		return nil
	}
	return s.client.Set(ctx, summaryKeyPrefix+key, summary, ttl).Err()
}

// Close closes the store connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
