package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultQueryCacheSize bounds the number of distinct SQL texts kept.
const DefaultQueryCacheSize = 1024

// QueryCache keeps derived per-query data (such as placeholder positions)
// keyed by SQL text. It is safe for concurrent use.
type QueryCache[V any] struct {
	cache *lru.Cache[string, V]
}

// NewQueryCache returns a QueryCache holding at most size entries. A
// non-positive size falls back to DefaultQueryCacheSize.
func NewQueryCache[V any](size int) *QueryCache[V] {
	if size <= 0 {
		size = DefaultQueryCacheSize
	}
	c, _ := lru.New[string, V](size)
	return &QueryCache[V]{cache: c}
}

func (c *QueryCache[V]) Get(key string) (V, bool) {
	return c.cache.Get(key)
}

func (c *QueryCache[V]) Set(key string, v V) {
	c.cache.Add(key, v)
}

// GetOrCompute returns the cached value for key, computing and storing it on a miss.
func (c *QueryCache[V]) GetOrCompute(key string, compute func() V) V {
	if v, ok := c.cache.Get(key); ok {
		return v
	}
	v := compute()
	c.cache.Add(key, v)
	return v
}

func (c *QueryCache[V]) Len() int {
	return c.cache.Len()
}

func (c *QueryCache[V]) Purge() {
	c.cache.Purge()
}
