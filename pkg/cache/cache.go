package cache

import (
	"context"
	"time"
)

const (
	// DefaultTTL is applied when neither the caller nor the configuration
	// provides a time-to-live.
	DefaultTTL = 5 * time.Minute
	// DefaultMaxSize is the default entry ceiling of the in-memory tier.
	DefaultMaxSize = 1000
)

// Tier is the capability set the tiered store needs from a slower backing
// store. Implementations report absence with found == false and reserve the
// error return for the store being unreachable or misbehaving.
type Tier[V any] interface {
	Name() string
	Get(ctx context.Context, key string) (value V, found bool, err error)
	Set(ctx context.Context, key string, value V, ttl time.Duration) error
	Delete(ctx context.Context, key string) (bool, error)
	Has(ctx context.Context, key string) (bool, error)
	Clear(ctx context.Context) error
}

// Cache is the surface callers use to read and write through the tiers.
type Cache[V any] interface {
	Get(ctx context.Context, key string) (V, bool)
	Set(ctx context.Context, key string, value V, ttl time.Duration)
	Delete(ctx context.Context, key string) bool
	Has(ctx context.Context, key string) bool
	Clear(ctx context.Context)
	Stats() Stats
	Cleanup() int
}
