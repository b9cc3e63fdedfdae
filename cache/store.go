package cache

import (
	"context"
	"time"
)

// Store is a byte oriented key/value store with per-entry TTL. Implementations
// must be safe for concurrent use. Every method may fail; callers in this
// module treat failures as cache misses.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete drops key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// PrefixDeleter is implemented by stores that can drop a whole namespace.
type PrefixDeleter interface {
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// KeySerializer builds a cache key from a namespace + arbitrary args.
// It is responsible for producing stable keys across calls and processes.
type KeySerializer interface {
	SerializeKey(namespace string, args ...any) string
}
