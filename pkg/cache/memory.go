package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mercator-hq/ganymede/pkg/source"
)

// MemoryConfig holds configuration for the in-process cache.
type MemoryConfig struct {
	// MaxEntries caps the number of cached payloads. When the cache
	// is full, the entry closest to expiry is evicted. Zero means
	// unlimited.
	MaxEntries int `yaml:"max_entries"`
}

// DefaultMemoryConfig returns a MemoryConfig with sensible defaults.
func DefaultMemoryConfig() *MemoryConfig {
	return &MemoryConfig{
		MaxEntries: 10000,
	}
}

type memoryEntry struct {
	payload   *source.Payload
	expiresAt time.Time
}

// MemoryCache is an in-process payload cache with per-entry lifetimes.
// Safe for concurrent use. Expired entries are dropped lazily on
// access and when the cache needs room.
type MemoryCache struct {
	config *MemoryConfig
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemoryCache creates a new in-process cache.
func NewMemoryCache(config *MemoryConfig) *MemoryCache {
	if config == nil {
		config = DefaultMemoryConfig()
	}
	return &MemoryCache{
		config:  config,
		logger:  slog.Default().With("component", "cache-memory"),
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

// Get returns the cached payload for the source and key, or (nil, nil)
// when there is none or it has expired.
func (c *MemoryCache) Get(ctx context.Context, sourceName, key string) (*source.Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewCacheError("memory", "get", err)
	}

	cacheKey := entryKey(sourceName, key)

	c.mu.RLock()
	entry, ok := c.entries[cacheKey]
	c.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if !c.now().Before(entry.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; a Set may have refreshed it.
		if current, ok := c.entries[cacheKey]; ok && !c.now().Before(current.expiresAt) {
			delete(c.entries, cacheKey)
		}
		c.mu.Unlock()
		return nil, nil
	}
	return entry.payload.Clone(), nil
}

// Set stores the payload under the source and key for the given
// lifetime. A non-positive lifetime stores nothing.
func (c *MemoryCache) Set(ctx context.Context, sourceName, key string, payload *source.Payload, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return NewCacheError("memory", "set", err)
	}
	if payload == nil {
		return NewCacheError("memory", "set", fmt.Errorf("payload is nil"))
	}
	if ttl <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cacheKey := entryKey(sourceName, key)
	if c.config.MaxEntries > 0 && len(c.entries) >= c.config.MaxEntries {
		if _, exists := c.entries[cacheKey]; !exists {
			c.evictLocked()
		}
	}

	c.entries[cacheKey] = memoryEntry{
		payload:   payload.Clone(),
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

// evictLocked makes room for one entry: expired entries go first,
// then the entry closest to expiry.
func (c *MemoryCache) evictLocked() {
	now := c.now()
	var (
		victim   string
		earliest time.Time
		swept    int
	)
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
			swept++
			continue
		}
		if victim == "" || entry.expiresAt.Before(earliest) {
			victim = key
			earliest = entry.expiresAt
		}
	}
	if swept > 0 {
		return
	}
	if victim != "" {
		delete(c.entries, victim)
	}
}

// Len returns the number of entries held, including any not yet
// swept expired ones.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Flush drops every entry.
func (c *MemoryCache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]memoryEntry)
}

// Close releases the cache.
func (c *MemoryCache) Close() error {
	c.Flush()
	return nil
}

func entryKey(sourceName, key string) string {
	return sourceName + "\x00" + key
}
