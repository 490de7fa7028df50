// Package cache stores rendered artifacts so identical TikZ cells are not
// compiled twice.
//
// A render is fully determined by the assembled LaTeX document, the engine,
// the raster resolution and the converter, so those four values form the
// cache key (see [Keyer]). Backends:
//
//   - [FileCache]: one file per entry under the XDG cache directory, used by the CLI
//   - [RedisCache]: shared cache for the HTTP server
//   - [NullCache]: caching disabled
package cache

import (
	"context"
	"time"
)

// TTLArtifact is how long a rendered PDF/PNG pair stays cached.
const TTLArtifact = 30 * 24 * time.Hour

// Cache is a byte-oriented key/value store with per-entry TTL.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of 0 means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}

// Clearer is implemented by caches that can drop every entry they own.
type Clearer interface {
	// Clear removes all entries and returns how many were removed.
	Clear(ctx context.Context) (int, error)
}
