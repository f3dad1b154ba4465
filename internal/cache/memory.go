package cache

import (
	"context"
	"time"
)

// MemoryStore adapts a FIFO to the SummaryStore contract for single-process
// backends. TTLs are ignored; capacity bounds the store instead.
type MemoryStore struct {
	fifo *FIFO
}

// NewMemoryStore creates a store bounded to capacity entries.
func NewMemoryStore(capacity int) *MemoryStore {
	return &MemoryStore{fifo: NewFIFO(capacity)}
}

func (s *MemoryStore) GetSummary(ctx context.Context, key string) (string, bool, error) {
	summary, ok := s.fifo.Get(key)
	return summary, ok, nil
}

func (s *MemoryStore) SetSummary(ctx context.Context, key, summary string, ttl time.Duration) error {
	if summary == "" {
		return nil
	}
	s.fifo.Put(key, summary)
	return nil
}

func (s *MemoryStore) Close() error {
	s.fifo.Clear()
	return nil
}
