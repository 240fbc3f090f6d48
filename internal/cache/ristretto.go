package cache

import (
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto"
)

// Ristretto is a size-bounded cache backed by ristretto. Admission is
// TinyLFU-based, so unlike LRU it may refuse new keys and does not evict in
// strict recency order.
type Ristretto struct {
	cache      *ristretto.Cache
	defaultTTL time.Duration
	now        func() time.Time
	expired    atomic.Uint64
}

// cacheItem wraps the data with expiration time.
type cacheItem struct {
	value     any
	expiresAt time.Time
}

// NewRistretto creates a ristretto-backed cache holding roughly maxEntries
// items. Every entry costs 1.
func NewRistretto(maxEntries int, defaultTTL time.Duration) (*Ristretto, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	// NumCounters should be ~10x the number of entries for optimal performance
	numCounters := int64(maxEntries) * 10
	if numCounters < 1000 {
		numCounters = 1000
	}

	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: numCounters,
		MaxCost:     int64(maxEntries),
		BufferItems: 64, // Number of keys per Get buffer
		Metrics:     true,
	})
	if err != nil {
		return nil, err
	}

	return &Ristretto{
		cache:      c,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}, nil
}

// Get retrieves a value from the cache by key.
func (c *Ristretto) Get(key string) (any, bool) {
	val, found := c.cache.Get(key)
	if !found {
		return nil, false
	}

	item, ok := val.(*cacheItem)
	if !ok {
		c.cache.Del(key)
		return nil, false
	}

	if c.now().After(item.expiresAt) {
		c.cache.Del(key)
		c.expired.Add(1)
		return nil, false
	}

	return item.value, true
}

// Set stores a value in the cache with the given key and TTL.
func (c *Ristretto) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	// Set may drop the item under contention; a dropped item is just a future miss.
	_ = c.cache.Set(key, &cacheItem{value: value, expiresAt: c.now().Add(ttl)}, 1)

	// Wait for value to pass through buffers so an immediate Get observes it.
	c.cache.Wait()
}

// Delete removes a value from the cache.
func (c *Ristretto) Delete(key string) {
	c.cache.Del(key)
}

// Clear removes all values from the cache.
func (c *Ristretto) Clear() {
	c.cache.Clear()
}

// Len returns the approximate number of stored entries.
func (c *Ristretto) Len() int {
	return int(c.Stats().Items)
}

// Stats returns cache statistics.
func (c *Ristretto) Stats() Stats {
	m := c.cache.Metrics
	items := int64(m.KeysAdded()) - int64(m.KeysEvicted())
	if items < 0 {
		items = 0
	}
	return Stats{
		Hits:        m.Hits(),
		Misses:      m.Misses(),
		KeysAdded:   m.KeysAdded(),
		Evictions:   m.KeysEvicted(),
		Expirations: c.expired.Load(),
		Items:       items,
	}
}

// Close closes the cache and releases resources.
func (c *Ristretto) Close() {
	c.cache.Close()
}
