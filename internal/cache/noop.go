package cache

import (
	"context"
	"time"
)

// NoOpStore is a SummaryStore that stores nothing.
// Used when STORE_PROVIDER=none - every lookup is a miss.
type NoOpStore struct{}

// NewNoOpStore creates a new no-op store instance
func NewNoOpStore() *NoOpStore {
	return &NoOpStore{}
}

// GetSummary always reports a miss
func (s *NoOpStore) GetSummary(ctx context.Context, key string) (string, bool, error) {
	return "", false, nil
}

// SetSummary does nothing and always succeeds
func (s *NoOpStore) SetSummary(ctx context.Context, key, summary string, ttl time.Duration) error {
	return nil
}

// Close does nothing and always succeeds
func (s *NoOpStore) Close() error {
	return nil
}
