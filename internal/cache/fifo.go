// Package cache holds small in-memory caches shared by the select client.
package cache

import "sync"

// FIFO is a bounded map that evicts the oldest inserted key once its limit
// is reached. Updating an existing key keeps its position.
type FIFO[K comparable, V any] struct {
	mu    sync.Mutex
	limit int
	order []K
	items map[K]V
}

// NewFIFO returns an empty cache holding at most limit keys. A limit below
// one is treated as one.
func NewFIFO[K comparable, V any](limit int) *FIFO[K, V] {
	if limit < 1 {
		limit = 1
	}
	return &FIFO[K, V]{
		limit: limit,
		items: make(map[K]V, limit),
	}
}

func (c *FIFO[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok
}

func (c *FIFO[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[key]; ok {
		c.items[key] = value
		return
	}
	for len(c.order) >= c.limit {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.items, oldest)
	}
	c.order = append(c.order, key)
	c.items[key] = value
}

func (c *FIFO[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// Keys returns the keys oldest first.
func (c *FIFO[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]K(nil), c.order...)
}
