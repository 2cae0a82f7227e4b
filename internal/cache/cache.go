// Package cache defines the key/value cache contract used for cached read
// views, plus the deterministic key-building policy those views share.
// The cache is a pure performance layer: every consumer must behave
// correctly with the cache empty at any time.
package cache

import (
	"context"
	"time"
)

// DefaultTTL bounds list and aggregate view entries.
const DefaultTTL = 300 * time.Second

// Cache is a key/value store with TTL and prefix-pattern deletion.
// Values are JSON-serialized opaque payloads.
type Cache interface {
	// Get unmarshals the cached value for key into dest and reports whether
	// the key was present. A missing key is not an error.
	Get(ctx context.Context, key string, dest any) (bool, error)

	// Set stores value under key with the given TTL.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Delete removes a single key. Removing an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// DeletePattern removes every key matching the glob pattern
	// (e.g. "user-tasks:<id>:*").
	DeletePattern(ctx context.Context, pattern string) error
}
