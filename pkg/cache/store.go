package cache

import (
	"context"
	"time"
)

// Store is the fallback store contract: get/put with per-entry TTL.
// Eviction is by TTL only; there is no explicit invalidation. The
// aggregation core depends only on this interface, so deployments can
// back it with Redis or an in-process table.
type Store interface {
	// Get returns the stored value and whether the key was present.
	// An expired or absent key is a miss, not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Put stores value under key for ttl. Storing nil is a no-op.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
