package cache

import (
	"time"
)

// Entry is a value held by an in-memory tier together with its lifetime
// metadata.
type Entry[V any] struct {
	Value     V
	CreatedAt time.Time
	ExpiresAt time.Time
	Hits      uint64
}

// ExpiredAt reports whether the entry is logically absent at the given instant.
func (e *Entry[V]) ExpiredAt(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Stats are the aggregate counters of an in-memory tier. They are computed on
// demand and never persisted.
type Stats struct {
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Sets      uint64  `json:"sets"`
	Deletes   uint64  `json:"deletes"`
	Evictions uint64  `json:"evictions"`
	Size      int     `json:"size"`
	HitRate   float64 `json:"hitRate"`
}

// HitRate returns hits / (hits + misses), or 0 when nothing was looked up yet.
func HitRate(hits, misses uint64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Envelope is the serialized form of a value in the slower tiers. Expiry is
// checked lazily on read, the same way the in-memory tier does it.
type Envelope[V any] struct {
	Value     V         `json:"value"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewEnvelope wraps value with a lifetime of ttl starting at now.
func NewEnvelope[V any](value V, now time.Time, ttl time.Duration) Envelope[V] {
	return Envelope[V]{
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// ExpiredAt reports whether the envelope is logically absent at now.
func (e Envelope[V]) ExpiredAt(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}
