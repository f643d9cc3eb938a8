// Package cache provides a thread-safe cache with per-entry expiration,
// used for introspected table metadata.
package cache

import (
	"sync"
	"time"
)

type ttlEntry[V any] struct {
	value  V
	stored time.Time
}

// TTLCache is a thread-safe cache with time-based expiration.
// Each entry expires ttl after it was stored. A ttl of zero or less
// disables expiration.
type TTLCache[K comparable, V any] struct {
	mu   sync.RWMutex
	data map[K]ttlEntry[V]
	ttl  time.Duration
	now  func() time.Time
}

// New creates a new TTLCache with the given TTL duration.
func New[K comparable, V any](ttl time.Duration) *TTLCache[K, V] {
	return &TTLCache[K, V]{
		data: make(map[K]ttlEntry[V]),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Get retrieves a value from the cache.
// Returns ok=false if the key doesn't exist or its entry is expired.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.data[key]
	if !ok || c.expiredLocked(e) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores a value in the cache, restarting its TTL.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = ttlEntry[V]{value: value, stored: c.now()}
}

// GetOrLoad returns the cached value for key, calling load and caching its
// result on a miss. Load errors are returned and nothing is cached.
func (c *TTLCache[K, V]) GetOrLoad(key K, load func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		var zero V
		return zero, err
	}
	c.Set(key, v)
	return v, nil
}

// Delete removes a single entry.
func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// GetAll returns a copy of all unexpired values.
func (c *TTLCache[K, V]) GetAll() map[K]V {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[K]V, len(c.data))
	for k, e := range c.data {
		if !c.expiredLocked(e) {
			result[k] = e.value
		}
	}
	return result
}

// Invalidate clears all cached data.
func (c *TTLCache[K, V]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[K]ttlEntry[V])
}

// Len returns the number of stored entries, expired or not.
func (c *TTLCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// expiredLocked MUST be called with at least a read lock held.
func (c *TTLCache[K, V]) expiredLocked(e ttlEntry[V]) bool {
	return c.ttl > 0 && c.now().Sub(e.stored) >= c.ttl
}
