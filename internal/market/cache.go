package market

import (
	"sync"
	"time"
)

const maxCacheEntries = 1024

// Cache is a small in-memory TTL cache.
type Cache[V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry[V]
}

type cacheEntry[V any] struct {
	value   V
	expires time.Time
}

// NewCache creates a cache whose entries live for ttl. A non-positive ttl
// disables caching.
func NewCache[V any](ttl time.Duration) *Cache[V] {
	return &Cache[V]{ttl: ttl, now: time.Now, entries: make(map[string]cacheEntry[V])}
}

// Get returns the live value for key.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expires) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key. Expired entries are dropped once the cache
// reaches maxCacheEntries; if it is still full, the oldest entry goes.
func (c *Cache[V]) Set(key string, value V) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if _, ok := c.entries[key]; !ok && len(c.entries) >= maxCacheEntries {
		c.evictLocked(now)
	}
	c.entries[key] = cacheEntry[V]{value: value, expires: now.Add(c.ttl)}
}

// Len returns the number of stored entries, live or not.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[V]) evictLocked(now time.Time) {
	var oldest string
	var oldestAt time.Time
	found := false
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
			continue
		}
		if !found || e.expires.Before(oldestAt) {
			oldest, oldestAt, found = k, e.expires, true
		}
	}
	if len(c.entries) >= maxCacheEntries && found {
		delete(c.entries, oldest)
	}
}
