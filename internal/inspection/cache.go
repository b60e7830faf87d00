package inspection

import (
	"sync"
	"time"
)

type cacheEntry struct {
	data      interface{}
	timestamp time.Time
}

// Cache is a process-scoped TTL cache. An entry older than the TTL is treated
// as absent and evicted on the next read. Writes fully replace the cached
// value; concurrent writers follow last-write-wins.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

// Get returns the cached value for key, or nil when absent or expired.
func (c *Cache) Get(key string) interface{} {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && time.Since(entry.timestamp) < c.ttl {
		return entry.data
	}
	if ok {
		c.Evict(key)
	}
	return nil
}

// Set stores data under key, replacing any previous value.
func (c *Cache) Set(key string, data interface{}) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{data: data, timestamp: time.Now()}
	c.mu.Unlock()
}

// Evict removes key from the cache.
func (c *Cache) Evict(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}
