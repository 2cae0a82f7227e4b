package cache

import (
	"context"
	"encoding/json"
	"path"
	"strings"
	"sync"
	"time"
)

// memoryEntry stores a serialized value and its absolute expiration time.
type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryCache is a map-backed Cache with per-entry TTL and lazy expiry.
// It is safe for concurrent use. Intended for tests and for running the
// service without a Redis instance.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string]memoryEntry
	now   func() time.Time
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		items: make(map[string]memoryEntry),
		now:   time.Now,
	}
}

// Ensure MemoryCache implements the Cache interface
var _ Cache = (*MemoryCache)(nil)

// Get implements Cache.Get.
func (c *MemoryCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	c.mu.RLock()
	entry, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if !entry.expiresAt.IsZero() && c.now().After(entry.expiresAt) {
		// Expired entries are treated as misses and removed lazily.
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return false, nil
	}

	if err := json.Unmarshal(entry.data, dest); err != nil {
		return false, err
	}
	return true, nil
}

// Set implements Cache.Set.
func (c *MemoryCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	c.items[key] = memoryEntry{data: data, expiresAt: expiresAt}
	c.mu.Unlock()
	return nil
}

// Delete implements Cache.Delete.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	return nil
}

// DeletePattern implements Cache.DeletePattern. Patterns of the form
// "prefix*" are matched by prefix; anything else falls back to path.Match
// glob semantics.
func (c *MemoryCache) DeletePattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prefix, ok := strings.CutSuffix(pattern, "*"); ok && !strings.ContainsAny(prefix, "*?[") {
		for key := range c.items {
			if strings.HasPrefix(key, prefix) {
				delete(c.items, key)
			}
		}
		return nil
	}

	for key := range c.items {
		matched, err := path.Match(pattern, key)
		if err != nil {
			return err
		}
		if matched {
			delete(c.items, key)
		}
	}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
