package user

import (
	"github.com/FocuswithJustin/geopackage/core/cache"
)

// DefaultCacheSize is the default capacity of a RowCache.
const DefaultCacheSize = 1000

// RowCache is a bounded, least-recently-used cache of materialized rows
// keyed by id.
type RowCache struct {
	lru cache.Cache[int64, *Row]
}

// NewRowCache creates a cache holding at most size rows. A size of zero
// or less uses DefaultCacheSize.
func NewRowCache(size int) *RowCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &RowCache{lru: cache.NewLRUCache[int64, *Row](cache.Config{MaxSize: size})}
}

// Get returns the cached row for id and marks it most recently used.
func (c *RowCache) Get(id int64) (*Row, bool) { return c.lru.Get(id) }

// Put caches row under its id.
func (c *RowCache) Put(row *Row) error {
	id, err := row.ID()
	if err != nil {
		return err
	}
	c.lru.Put(id, row)
	return nil
}

// PutID caches row under an explicit id.
func (c *RowCache) PutID(id int64, row *Row) { c.lru.Put(id, row) }

// Remove drops id from the cache.
func (c *RowCache) Remove(id int64) bool { return c.lru.Remove(id) }

// Clear empties the cache.
func (c *RowCache) Clear() { c.lru.Clear() }

// Len returns the number of cached rows.
func (c *RowCache) Len() int { return c.lru.Len() }

// MaxSize returns the capacity.
func (c *RowCache) MaxSize() int { return c.lru.Stats().MaxSize }

// IDs returns the cached ids from most to least recently used.
func (c *RowCache) IDs() []int64 { return c.lru.Keys() }

// Resize changes the capacity. Shrinking evicts the least recently used
// rows immediately; the number evicted is returned.
func (c *RowCache) Resize(size int) int {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return c.lru.Resize(size)
}

// Stats returns hit, miss and eviction counters.
func (c *RowCache) Stats() cache.Stats { return c.lru.Stats() }
