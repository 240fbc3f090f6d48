package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

// EvictReason tells an OnEvict callback why an entry left the cache.
type EvictReason int

const (
	EvictCapacity EvictReason = iota
	EvictExpired
)

// Options configures an LRU cache.
type Options struct {
	MaxEntries int           // capacity; DefaultMaxEntries when <= 0
	DefaultTTL time.Duration // applied when Set is called with ttl <= 0
	Now        func() time.Time
	OnEvict    func(key string, value any, reason EvictReason)
}

// entry is one cached value. Its position in LRU.order is its recency.
type entry struct {
	key       string
	value     any
	expiresAt time.Time
}

// LRU is a bounded least-recently-used cache with absolute per-entry expiry.
// The front of order is the most recently used entry; all operations are O(1)
// except DeletePrefix and Clear.
type LRU struct {
	mu         sync.Mutex
	items      map[string]*list.Element
	order      *list.List
	maxEntries int
	defaultTTL time.Duration
	now        func() time.Time
	onEvict    func(string, any, EvictReason)
	stats      Stats
}

// NewLRU creates an LRU cache.
func NewLRU(opts Options) *LRU {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &LRU{
		items:      make(map[string]*list.Element, opts.MaxEntries),
		order:      list.New(),
		maxEntries: opts.MaxEntries,
		defaultTTL: opts.DefaultTTL,
		now:        opts.Now,
		onEvict:    opts.OnEvict,
	}
}

// Get returns the value for key and marks it most recently used. An expired
// entry is removed and reported as a miss.
func (c *LRU) Get(key string) (any, bool) {
	c.mu.Lock()
	el, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		c.mu.Unlock()
		return nil, false
	}
	e := el.Value.(*entry)
	if c.now().After(e.expiresAt) {
		c.removeElement(el)
		c.stats.Misses++
		c.stats.Expirations++
		c.mu.Unlock()
		c.notify(e, EvictExpired)
		return nil, false
	}
	c.order.MoveToFront(el)
	c.stats.Hits++
	c.mu.Unlock()
	return e.value, true
}

// Set inserts or replaces key, resetting its expiry to now+ttl and marking it
// most recently used. Inserting a new key at capacity evicts the least
// recently used entry first.
func (c *LRU) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.mu.Lock()
	expiresAt := c.now().Add(ttl)
	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry)
		e.value = value
		e.expiresAt = expiresAt
		c.order.MoveToFront(el)
		c.mu.Unlock()
		return
	}

	var evicted *entry
	if c.order.Len() >= c.maxEntries {
		if tail := c.order.Back(); tail != nil {
			evicted = tail.Value.(*entry)
			c.removeElement(tail)
			c.stats.Evictions++
		}
	}
	c.items[key] = c.order.PushFront(&entry{key: key, value: value, expiresAt: expiresAt})
	c.stats.KeysAdded++
	c.mu.Unlock()

	if evicted != nil {
		c.notify(evicted, EvictCapacity)
	}
}

// Delete removes key if present.
func (c *LRU) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
}

// DeletePrefix removes every key starting with prefix and returns how many
// were removed.
func (c *LRU) DeletePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for key, el := range c.items {
		if strings.HasPrefix(key, prefix) {
			c.removeElement(el)
			n++
		}
	}
	return n
}

// Clear empties the cache. Counters are kept.
func (c *LRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element, c.maxEntries)
	c.order.Init()
}

// Len returns the number of stored entries.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Keys returns the stored keys from most to least recently used.
func (c *LRU) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*entry).key)
	}
	return keys
}

// Stats returns cache statistics.
func (c *LRU) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Items = int64(c.order.Len())
	return s
}

// removeElement unlinks el; caller holds c.mu.
func (c *LRU) removeElement(el *list.Element) {
	c.order.Remove(el)
	delete(c.items, el.Value.(*entry).key)
}

// notify runs the eviction callback outside the lock so it may call back
// into the cache.
func (c *LRU) notify(e *entry, reason EvictReason) {
	if c.onEvict != nil {
		c.onEvict(e.key, e.value, reason)
	}
}
