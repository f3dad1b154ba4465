package cache

import (
	"context"
	"time"
)

// DefaultCapacity is the number of summaries a ResultCache keeps by default.
const DefaultCapacity = 50

// ResultCache is the in-memory summary cache owned by a summarization session.
// Keys are normalized input texts, see NormalizeKey.
type ResultCache interface {
	// Get returns the cached summary for key. Reading does not refresh the
	// entry's eviction position.
	Get(key string) (string, bool)

	// Put stores summary under key, evicting the oldest entry when a new key
	// would exceed capacity.
	Put(key, summary string)

	// Delete removes key if present.
	Delete(key string)

	// Clear empties the cache.
	Clear()

	// Len returns the number of entries.
	Len() int
}

// SummaryStore caches finished summaries on the backend side so repeated
// requests skip the model call.
type SummaryStore interface {
	// GetSummary retrieves a stored summary by key.
	// Returns ok=false on a miss.
	GetSummary(ctx context.Context, key string) (summary string, ok bool, err error)

	// SetSummary stores a summary with TTL. A zero TTL means no expiry.
	SetSummary(ctx context.Context, key, summary string, ttl time.Duration) error

	// Close closes the store connection
	Close() error
}
