// Package cache provides a small in-memory TTL cache for generated URLs.
// Presigned archive links stay valid for minutes; regenerating one per request
// wastes a signing round-trip.
package cache

import (
	"sync"
	"time"
)

type entry struct {
	url       string
	expiresAt time.Time
}

// URLCache maps object keys to generated URLs with per-entry expiry. Safe for
// concurrent use. Entries are evicted lazily on read and by Clear.
type URLCache struct {
	mu      sync.RWMutex
	entries map[string]entry
}

func NewURLCache() *URLCache {
	return &URLCache{entries: make(map[string]entry)}
}

// Get returns the cached URL for key if it has not expired.
func (c *URLCache) Get(key string) (string, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return "", false
	}
	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return "", false
	}
	return e.url, true
}

// Set stores url for key until expiresAt.
func (c *URLCache) Set(key, url string, expiresAt time.Time) {
	c.mu.Lock()
	c.entries[key] = entry{url: url, expiresAt: expiresAt}
	c.mu.Unlock()
}

// Clear drops every entry.
func (c *URLCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Len reports the current entry count, expired entries included.
func (c *URLCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
