package utils

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheItem[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is a size-bounded LRU whose entries also expire.
type TTLCache[V any] struct {
	lru *lru.Cache[string, cacheItem[V]]
	now func() time.Time
}

func NewTTLCache[V any](size int) (*TTLCache[V], error) {
	l, err := lru.New[string, cacheItem[V]](size)
	if err != nil {
		return nil, err
	}
	return &TTLCache[V]{lru: l, now: time.Now}, nil
}

// Set stores value under key for ttl.
func (c *TTLCache[V]) Set(key string, value V, ttl time.Duration) {
	c.lru.Add(key, cacheItem[V]{value: value, expiresAt: c.now().Add(ttl)})
}

// Get returns the value for key unless it is missing or expired.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	item, ok := c.lru.Get(key)
	if !ok {
		var zero V
		return zero, false
	}
	if c.now().After(item.expiresAt) {
		c.lru.Remove(key)
		var zero V
		return zero, false
	}
	return item.value, true
}

func (c *TTLCache[V]) Delete(key string) {
	c.lru.Remove(key)
}

func (c *TTLCache[V]) Len() int {
	return c.lru.Len()
}
