package models

import "time"

// CacheEntry is a single memoized content lookup.
type CacheEntry struct {
	Key      string    `json:"key"`
	Value    any       `json:"value"`
	StoredAt time.Time `json:"stored_at"`
}

// CacheStats reports cache performance metrics.
type CacheStats struct {
	Entries   int64 `json:"entries"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}
