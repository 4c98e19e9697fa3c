// Package cache provides a small in-process byte cache used in front of the transcript store.
package cache

import (
	"context"
	"time"
)

// CacheService defines the cache service interface.
type CacheService interface {
	// Get retrieves a value from cache.
	// Returns: value, whether it exists
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value in cache.
	// A non-positive ttl falls back to the default TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Invalidate removes a single key. Missing keys are not an error.
	Invalidate(ctx context.Context, key string) error
}
