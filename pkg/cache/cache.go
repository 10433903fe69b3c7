// Package cache provides byte-oriented caching backends for dataset
// artifacts and raster delineation results.
//
// # Backends
//
//   - [FileCache]: files under a local directory, used by the CLI
//   - [RedisCache]: a shared Redis instance, for batch runs spread over
//     several machines that read the same regional datasets
//   - [NullCache]: never stores anything; disables caching
//
// # Keys
//
// Keys are produced by a [Keyer] so every component hashes its inputs the
// same way. [ScopedKeyer] prefixes keys, which keeps artifacts built from
// different data releases apart.
//
// # Failures
//
// Cache failures are never fatal to a run. Callers log and continue.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values under string keys.
type Cache interface {
	// Get returns the value and true on a hit. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}
