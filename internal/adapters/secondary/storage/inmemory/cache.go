package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/admin/ai-studio/internal/ports/cache"
)

type cacheEntry struct {
	value     string
	expiresAt time.Time // zero - без TTL
}

// Cache in-memory реализация cache.Cache, используется когда Redis не настроен
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewCache создаёт новый in-memory кэш
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

var _ cache.Cache = (*Cache)(nil)

func (c *Cache) Get(_ context.Context, key string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok || c.expired(entry) {
		return "", cache.ErrCacheMiss
	}
	return entry.value, nil
}

func (c *Cache) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = c.newEntry(value, ttl)
	return nil
}

func (c *Cache) SetNX(_ context.Context, key string, value string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries[key]; ok && !c.expired(entry) {
		return false, nil
	}
	c.entries[key] = c.newEntry(value, ttl)
	return true, nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *Cache) Exists(_ context.Context, key string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	return ok && !c.expired(entry), nil
}

// Close очищает кэш
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
	return nil
}

func (c *Cache) newEntry(value string, ttl time.Duration) cacheEntry {
	entry := cacheEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	return entry
}

func (c *Cache) expired(entry cacheEntry) bool {
	return !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt)
}
