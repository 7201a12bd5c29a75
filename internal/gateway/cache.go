package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// CacheEntry is a previously successful response held for fallback and
// repeat-request service.
type CacheEntry struct {
	Content       json.RawMessage `json:"content"`
	SourceBackend string          `json:"source_backend"`
	StoredAt      time.Time       `json:"stored_at"`
}

// Cache is the gateway's response cache. Writes are idempotent; last
// writer wins, and staleness inside the TTL window is tolerated by design.
type Cache interface {
	// Get returns the entry for key, or ok=false on a miss (including
	// expiry).
	Get(ctx context.Context, key string) (CacheEntry, bool, error)

	// Set stores the entry under key for ttl.
	Set(ctx context.Context, key string, entry CacheEntry, ttl time.Duration) error
}

// MemoryCache is an in-process Cache with TTL expiry. Suitable for a
// single-process deployment and for tests.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	entry     CacheEntry
	expiresAt time.Time
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (CacheEntry, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return CacheEntry{}, false, nil
	}
	if c.now().After(e.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; another writer may have
		// refreshed the key.
		if cur, ok := c.entries[key]; ok && c.now().After(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return CacheEntry{}, false, nil
	}
	return e.entry, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, entry CacheEntry, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryEntry{
		entry:     entry,
		expiresAt: c.now().Add(ttl),
	}
	return nil
}
