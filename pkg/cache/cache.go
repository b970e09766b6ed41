// Package cache provides a caching interface with in-memory and
// Redis-backed implementations, plus a specialized cache for max-flow
// computation results keyed by a canonical network hash.
package cache

import (
	"context"
	"errors"
	"time"

	"watersupply/pkg/config"
)

// Backend names for cache implementations.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

var (
	// ErrKeyNotFound is returned when a requested key does not exist.
	ErrKeyNotFound = errors.New("key not found")
	// ErrCacheClosed is returned when an operation hits a closed cache.
	ErrCacheClosed = errors.New("cache is closed")
)

// Cache defines the operations shared by all backends.
type Cache interface {
	// Get retrieves the value for key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key with the given TTL. A non-positive TTL
	// falls back to the backend default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Exists reports whether key is present and unexpired.
	Exists(ctx context.Context, key string) (bool, error)
	// GetWithTTL retrieves the value and its remaining TTL.
	GetWithTTL(ctx context.Context, key string) (value []byte, ttl time.Duration, err error)

	// Keys returns keys matching a glob-style pattern. Expensive on
	// large caches.
	Keys(ctx context.Context, pattern string) ([]string, error)
	// DeleteByPattern removes keys matching a glob-style pattern and
	// returns how many were deleted.
	DeleteByPattern(ctx context.Context, pattern string) (int64, error)

	// Stats returns backend statistics.
	Stats(ctx context.Context) (*Stats, error)
	// Clear removes all keys.
	Clear(ctx context.Context) error
	// Close releases backend resources.
	Close() error
}

// Stats holds cache performance counters.
type Stats struct {
	TotalKeys   int64
	Hits        int64
	Misses      int64
	HitRate     float64
	MemoryBytes int64
	Backend     string
}

// Options configure a Cache instance.
type Options struct {
	Backend    string
	DefaultTTL time.Duration

	// Memory backend
	MaxEntries      int
	CleanupInterval time.Duration

	// Redis backend
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() *Options {
	return &Options{
		Backend:         BackendMemory,
		DefaultTTL:      5 * time.Minute,
		MaxEntries:      10000,
		CleanupInterval: 1 * time.Minute,
		RedisAddr:       "localhost:6379",
		RedisDB:         0,
		RedisPoolSize:   10,
	}
}

// FromConfig builds Options from the application cache configuration.
func FromConfig(cfg *config.CacheConfig) *Options {
	return &Options{
		Backend:       cfg.Driver,
		DefaultTTL:    cfg.DefaultTTL,
		MaxEntries:    cfg.MaxEntries,
		RedisAddr:     cfg.Address(),
		RedisPassword: cfg.Password,
		RedisDB:       cfg.DB,
		RedisPoolSize: 10,
	}
}

// New creates a cache for the configured backend. Unknown backends fall
// back to the memory implementation.
func New(opts *Options) (Cache, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	switch opts.Backend {
	case BackendRedis:
		return NewRedisCache(opts)
	default:
		return NewMemoryCache(opts), nil
	}
}

// MustNew creates a cache or panics.
func MustNew(opts *Options) Cache {
	c, err := New(opts)
	if err != nil {
		panic(err)
	}
	return c
}
