// Package cache holds server data the host has already fetched. The offline
// manager marks entries stale after a successful sync, and the merge layer
// reads display fields from it without ever triggering a fetch.
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"equipqr/internal/domain"
	"equipqr/internal/queue"
)

type entry struct {
	value     any
	fetchedAt time.Time
	stale     bool
}

// Cache is a concurrency-safe keyed store of server responses.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	names   map[string]string
	now     func() time.Time
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]*entry),
		names:   make(map[string]string),
		now:     time.Now,
	}
}

// Put stores value under key and marks it fresh.
func (c *Cache) Put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &entry{value: value, fetchedAt: c.now()}
}

// Peek returns the cached value without fetching. Stale values are still returned.
func (c *Cache) Peek(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Get returns the typed value stored under key.
func Get[T any](c *Cache, key string) (T, bool) {
	var zero T
	value, ok := c.Peek(key)
	if !ok {
		return zero, false
	}
	typed, ok := value.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// IsStale reports whether key is missing or was marked stale.
func (c *Cache) IsStale(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return !ok || e.stale
}

// MarkStale flags every entry whose key equals or starts with prefix.
// It returns the number of entries flagged.
func (c *Cache) MarkStale(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	marked := 0
	for key, e := range c.entries {
		if key == prefix || strings.HasPrefix(key, prefix) {
			e.stale = true
			marked++
		}
	}
	return marked
}

// Invalidate marks stale every key a successful sync of item affects.
func (c *Cache) Invalidate(_ context.Context, item *queue.Item) {
	for _, key := range domain.CacheKeys(item) {
		c.MarkStale(key)
	}
}

// Load returns the cached value for key, calling fetch when the entry is
// missing or stale. Callers outside the merge path use it to refresh lists.
func (c *Cache) Load(ctx context.Context, key string, fetch func(context.Context) (any, error)) (any, error) {
	if !c.IsStale(key) {
		value, _ := c.Peek(key)
		return value, nil
	}
	value, err := fetch(ctx)
	if err != nil {
		if cached, ok := c.Peek(key); ok {
			return cached, nil
		}
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	c.Put(key, value)
	return value, nil
}

// RememberEquipment records equipment names for lookups.
func (c *Cache) RememberEquipment(items []domain.Equipment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, eq := range items {
		if eq.ID != "" && eq.Name != "" {
			c.names["equipment:"+eq.ID] = eq.Name
		}
	}
}

// RememberUser records a display name for a user id.
func (c *Cache) RememberUser(id, name string) {
	if id == "" || name == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names["user:"+id] = name
}

// EquipmentName returns a cached equipment name.
func (c *Cache) EquipmentName(id string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.names["equipment:"+id]
	return name, ok
}

// UserName returns a cached user display name.
func (c *Cache) UserName(id string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.names["user:"+id]
	return name, ok
}
