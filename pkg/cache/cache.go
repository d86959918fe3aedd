// Package cache provides byte-oriented caches for rendered diagram artifacts.
//
// Rendering a diagram through an external renderer costs tens to hundreds of
// milliseconds, and a live editor re-renders the same sources constantly
// (mode toggles, selection changes, undo). Caching vector output by content
// hash makes those repeats instant.
//
// # Backends
//
//   - [FileCache]: one JSON file per entry, for the CLI
//   - [MemoryCache]: in-process map with TTL, for tests and single servers
//   - [RedisCache]: shared cache for several server instances
//   - [MongoCache]: shared cache with a TTL index
//   - [NullCache]: caching disabled
//
// Keys come from a [Keyer] so that key layout stays consistent across
// backends and can be scoped per tenant with [NewScopedKeyer].
package cache

import (
	"context"
	"time"
)

// Default TTLs for cached data.
const (
	// ArtifactTTL is how long rendered vector output stays cached.
	ArtifactTTL = 7 * 24 * time.Hour

	// RasterTTL is how long PNG and PDF exports stay cached.
	RasterTTL = 24 * time.Hour
)

// Cache stores opaque byte payloads under string keys.
//
// Get returns (nil, false, nil) on a miss. Errors are reserved for backend
// failures; callers treat them as misses.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
