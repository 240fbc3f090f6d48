// Package cache holds the process-local caches that sit in front of the
// spreadsheet store.
package cache

import "time"

// Cache defines the interface for caching fetch results with TTL.
type Cache interface {
	// Get retrieves a value from the cache by key.
	// Returns the value and true if found and not expired, otherwise nil and false.
	Get(key string) (any, bool)

	// Set stores a value in the cache with the given key and TTL.
	// TTL of 0 means use the default cache TTL.
	Set(key string, value any, ttl time.Duration)

	// Delete removes a value from the cache. Missing keys are ignored.
	Delete(key string)

	// Clear removes all values from the cache.
	Clear()

	// Len returns the number of stored entries, expired ones included until
	// they are touched.
	Len() int

	// Stats returns cache statistics.
	Stats() Stats
}

// PrefixDeleter is implemented by caches that can drop every key sharing a
// prefix, e.g. all cached query shapes of one resource.
type PrefixDeleter interface {
	DeletePrefix(prefix string) int
}

// Stats represents cache statistics.
type Stats struct {
	Hits        uint64 `json:"hits"`
	Misses      uint64 `json:"misses"`
	KeysAdded   uint64 `json:"keysAdded"`
	Evictions   uint64 `json:"evictions"`   // capacity evictions
	Expirations uint64 `json:"expirations"` // entries dropped because their TTL passed
	Items       int64  `json:"items"`
}

// Default sizing used when options leave fields at zero.
const (
	DefaultMaxEntries = 100
	DefaultTTL        = 30 * time.Second
)
