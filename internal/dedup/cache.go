// Package dedup provides the bounded cache of recently processed
// message ids, guarding the ledger against transport re-delivery.
package dedup

import (
	"sync"
	"time"
)

// Cache is a thread-safe, TTL- and size-bounded set of message keys.
type Cache struct {
	entries    map[string]time.Time
	stopCh     chan struct{}
	ttl        time.Duration
	maxEntries int
	mu         sync.Mutex
}

// NewCache creates a cache with the specified TTL and size bound.
func NewCache(ttl time.Duration, maxEntries int) *Cache {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	if maxEntries <= 0 {
		maxEntries = 10000
	}

	c := &Cache{
		entries:    make(map[string]time.Time),
		ttl:        ttl,
		maxEntries: maxEntries,
		stopCh:     make(chan struct{}),
	}

	go c.cleanup()

	return c
}

// Mark records the key as seen and reports whether it was already
// present and unexpired. Check and insert happen under one lock, so
// two near-simultaneous deliveries of the same key cannot both get
// false.
func (c *Cache) Mark(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	expiry, exists := c.entries[key]
	seen := exists && now.Before(expiry)

	c.entries[key] = now.Add(c.ttl)

	// Size cap: drop expired entries first, then arbitrary ones.
	// Eviction only risks re-processing a message older than the
	// whole cache, never a duplicate of a recent one.
	if len(c.entries) > c.maxEntries {
		for k, exp := range c.entries {
			if now.After(exp) {
				delete(c.entries, k)
			}
		}
		for k := range c.entries {
			if len(c.entries) <= c.maxEntries {
				break
			}
			if k != key {
				delete(c.entries, k)
			}
		}
	}

	return seen
}

// Seen reports whether the key is present without marking it.
func (c *Cache) Seen(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiry, exists := c.entries[key]
	return exists && time.Now().Before(expiry)
}

// Preload marks a batch of keys, used when reloading persisted state.
func (c *Cache) Preload(keys []string) {
	for _, k := range keys {
		c.Mark(k)
	}
}

// Size returns the number of entries in the cache.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// cleanup periodically removes expired entries.
func (c *Cache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, expiry := range c.entries {
				if now.After(expiry) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// Close stops the cleanup goroutine.
func (c *Cache) Close() {
	close(c.stopCh)
}
