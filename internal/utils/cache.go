package utils

import (
	"math"
	"sync"
	"time"
)

// DedupCache suppresses repeat writes of unchanged readings. Keys are
// device/field pairs; a reading is a duplicate when the cached entry is
// fresh, has the same availability, and carries a near-equal value.
type DedupCache struct {
	mu   sync.Mutex
	ttl  time.Duration
	data map[string]dedupEntry
}

type dedupEntry struct {
	value     float64
	text      string
	available bool
	at        time.Time
}

// NewDedupCache creates a cache with the given entry TTL. A reading older
// than the TTL is always recorded again, so slow-moving values still leave
// a periodic trace. If ttl <= 0, it defaults to 1h.
func NewDedupCache(ttl time.Duration) *DedupCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &DedupCache{ttl: ttl, data: make(map[string]dedupEntry, 1024)}
}

// Seen reports whether the reading duplicates the cached one, and records
// it either way.
func (c *DedupCache) Seen(key string, value float64, text string, available bool) bool {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.data[key]
	c.data[key] = dedupEntry{value: value, text: text, available: available, at: now}
	if !ok || now.Sub(e.at) > c.ttl {
		return false
	}
	return e.available == available && e.text == text && FloatsEqual(e.value, value)
}

// Reset drops all cached entries, forcing the next reading of every field
// to be recorded.
func (c *DedupCache) Reset() {
	c.mu.Lock()
	c.data = make(map[string]dedupEntry, 1024)
	c.mu.Unlock()
}

// FloatsEqual compares two readings with a tolerance fit for scaled
// register values.
func FloatsEqual(a, b float64) bool {
	if a == b {
		return true
	}
	diff := math.Abs(a - b)
	return diff <= 1e-9*math.Max(math.Abs(a), math.Abs(b))
}
