package memory

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/bacalhau-project/tiercache/pkg/cache"
)

type Config struct {
	maxSize int
	ttl     time.Duration
	clock   clock.Clock
	onEvict func(key string)
}

func defaultConfig() *Config {
	return &Config{
		maxSize: cache.DefaultMaxSize,
		ttl:     cache.DefaultTTL,
		clock:   clock.New(),
	}
}

type Option func(*Config)

// WithMaxSize sets the number of entries the store holds before it starts
// evicting the least recently used key.
func WithMaxSize(maxSize int) Option {
	return func(c *Config) {
		c.maxSize = maxSize
	}
}

// WithTTL sets the time-to-live used when Set is called without one.
func WithTTL(ttl time.Duration) Option {
	return func(c *Config) {
		c.ttl = ttl
	}
}

func WithClock(clk clock.Clock) Option {
	return func(c *Config) {
		c.clock = clk
	}
}

// WithEvictionHook registers fn to be called with the key of every entry
// evicted to make room. It runs with the store locked and must not call back
// into the store.
func WithEvictionHook(fn func(key string)) Option {
	return func(c *Config) {
		c.onEvict = fn
	}
}
