package rowmap

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache is the interface for caching catalog lookups.
// Users may implement this interface with their preferred caching solution
// (e.g., Redis, Memcached); NewMemoryCache provides an in-process one.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns nil, nil if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with an optional TTL.
	// If ttl is 0, the value should not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes all values with the given prefix.
	DeletePrefix(ctx context.Context, prefix string) error

	// Clear removes all values from the cache.
	Clear(ctx context.Context) error
}

// CacheKey generates a cache key for a catalog lookup.
type CacheKey struct {
	Server    string
	Schema    string
	Table     string
	Operation string
}

// String returns the string representation of the cache key.
func (k CacheKey) String() string {
	return k.Server + ":" + k.Schema + ":" + k.Table + ":" + k.Operation
}

// Prefix returns the key prefix shared by all operations on the table.
func (k CacheKey) Prefix() string {
	return k.Server + ":" + k.Schema + ":" + k.Table + ":"
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// MemoryCacheOption configures NewMemoryCache.
type MemoryCacheOption func(*memoryConfig)

type memoryConfig struct {
	size   int
	maxAge time.Duration
}

// WithMaxEntries bounds the cache; the least recently used entry is evicted
// first. Zero (the default) means unbounded.
func WithMaxEntries(n int) MemoryCacheOption {
	return func(c *memoryConfig) {
		c.size = n
	}
}

// WithMaxAge expires every entry after d regardless of the ttl passed to
// Set. Zero (the default) keeps entries until their own ttl runs out.
func WithMaxAge(d time.Duration) MemoryCacheOption {
	return func(c *memoryConfig) {
		c.maxAge = d
	}
}

// MemoryCache is an in-memory Cache safe for concurrent use, backed by an
// expirable LRU.
type MemoryCache struct {
	// mu serializes writers with the removal of expired entries on read.
	mu  sync.Mutex
	lru *expirable.LRU[string, *memoryEntry]
	now func() time.Time
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache(opts ...MemoryCacheOption) *MemoryCache {
	var cfg memoryConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return &MemoryCache{
		lru: expirable.NewLRU[string, *memoryEntry](cfg.size, nil, cfg.maxAge),
		now: time.Now,
	}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	e, ok := c.lru.Get(key)
	if !ok {
		return nil, nil
	}
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		c.mu.Lock()
		// Only drop the entry read above, not one stored since.
		if cur, ok := c.lru.Peek(key); ok && cur == e {
			c.lru.Remove(key)
		}
		c.mu.Unlock()
		return nil, nil
	}
	return append([]byte(nil), e.value...), nil
}

// Set implements Cache.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := &memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.lru.Add(key, e)
	c.mu.Unlock()
	return nil
}

// Delete implements Cache.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	c.lru.Remove(key)
	c.mu.Unlock()
	return nil
}

// DeletePrefix implements Cache.
func (c *MemoryCache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range c.lru.Keys() {
		if strings.HasPrefix(k, prefix) {
			c.lru.Remove(k)
		}
	}
	return nil
}

// Clear implements Cache.
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	c.lru.Purge()
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries.
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}

var _ Cache = (*MemoryCache)(nil)
