// Package cache provides TTL-based caching for record reads and aggregate
// stats. Entries age out, they are never evicted by count: realistic
// per-user record sets stay in the low thousands, so the working set is
// small enough to keep resident.
package cache

import (
	"context"
	"time"
)

// Cache is the caching interface. A key is present only while it is younger
// than its TTL; an expired entry reads as a miss. Invalidate accepts an
// exact key or a trailing-* prefix pattern ("records*" drops every key
// starting with "records"). Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
	Ping(ctx context.Context) error
	Close() error
}

// DefaultTTL applies when Set is called with a non-positive TTL.
const DefaultTTL = 5 * time.Minute
