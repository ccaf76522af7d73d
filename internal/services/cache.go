package services

import (
	"sync"
	"time"
)

type cacheEntry[V any] struct {
	value     V
	addedAt   time.Time
	expiresAt time.Time
}

// Cache — ограниченный по размеру кеш с истечением по времени.
// Используется для локальных снимков редко меняющихся данных
// (профили пользователей).
type Cache[K comparable, V any] struct {
	mu         sync.Mutex
	entries    map[K]cacheEntry[V]
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
}

func NewCache[K comparable, V any](maxEntries int, ttl time.Duration) *Cache[K, V] {
	return &Cache[K, V]{
		entries:    make(map[K]cacheEntry[V]),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Get возвращает значение, если оно есть и не устарело.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		var empty V
		return empty, false
	}

	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		var empty V
		return empty, false
	}

	return entry.value, true
}

func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictLocked(now)
	}

	c.entries[key] = cacheEntry[V]{
		value:     value,
		addedAt:   now,
		expiresAt: now.Add(c.ttl),
	}
}

func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictLocked сначала убирает устаревшие записи, затем самую старую.
func (c *Cache[K, V]) evictLocked(now time.Time) {
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}

	if len(c.entries) < c.maxEntries {
		return
	}

	var oldestKey K
	var oldestAt time.Time
	first := true

	for key, entry := range c.entries {
		if first || entry.addedAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.addedAt
			first = false
		}
	}

	if !first {
		delete(c.entries, oldestKey)
	}
}
