// Package editcache remembers which reply the bot sent for a triggering message
// so that a re-run of the same message edits that reply instead of sending a new one.
package editcache

import "sync"

// DefaultCapacity is used when a non-positive capacity is requested.
const DefaultCapacity = 1000

// Cache is a bounded map that evicts by insertion order. Reads never refresh
// an entry's position; it is FIFO, not LRU.
//
// Eviction is lazy: a Get that misses while the cache is full drops the oldest
// entry, making room for the Put that normally follows. A Put of a new key into
// a full cache evicts as well, so the bound holds even without a preceding Get.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	entries  map[K]V
	order    []K
}

// New creates a cache holding at most capacity entries.
func New[K comparable, V any](capacity int) *Cache[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache[K, V]{
		capacity: capacity,
		entries:  make(map[K]V, capacity),
	}
}

// Get returns the entry for key. On a miss with the cache at capacity, the
// earliest inserted entry is evicted.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.entries[key]
	if !ok && len(c.entries) >= c.capacity {
		c.evictOldest()
	}
	return v, ok
}

// Put stores value at key. Overwriting an existing key keeps its original
// insertion position.
func (c *Cache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		if len(c.entries) >= c.capacity {
			c.evictOldest()
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = value
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Keys returns the cached keys, oldest first.
func (c *Cache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]K(nil), c.order...)
}

// Capacity returns the configured bound.
func (c *Cache[K, V]) Capacity() int {
	return c.capacity
}

func (c *Cache[K, V]) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	var zero K
	c.order[0] = zero
	c.order = c.order[1:]
	delete(c.entries, oldest)
}
