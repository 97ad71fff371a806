package tiered

import (
	"time"

	"github.com/benbjohnson/clock"
	"go.opentelemetry.io/otel/metric"

	"github.com/bacalhau-project/tiercache/pkg/cache"
	"github.com/bacalhau-project/tiercache/pkg/telemetry"
)

// Config mirrors the settings of the fast tier. Slower tiers are not bounded
// by MaxSize.
type Config struct {
	// TTL is applied when a caller does not pass one.
	TTL time.Duration
	// MaxSize is the entry ceiling of the in-memory tier.
	MaxSize int
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		TTL:     cache.DefaultTTL,
		MaxSize: cache.DefaultMaxSize,
	}
}

type options[V any] struct {
	remote cache.Tier[V]
	local  cache.Tier[V]
	clock  clock.Clock
	meter  metric.Meter
}

type Option[V any] func(*options[V])

// WithRemoteTier adds a shared remote store behind the in-memory tier.
// A nil tier is ignored.
func WithRemoteTier[V any](tier cache.Tier[V]) Option[V] {
	return func(o *options[V]) {
		o.remote = tier
	}
}

// WithLocalTier adds a local persistent store behind the remote tier.
// A nil tier is ignored.
func WithLocalTier[V any](tier cache.Tier[V]) Option[V] {
	return func(o *options[V]) {
		o.local = tier
	}
}

func WithClock[V any](clk clock.Clock) Option[V] {
	return func(o *options[V]) {
		o.clock = clk
	}
}

func WithMeter[V any](meter metric.Meter) Option[V] {
	return func(o *options[V]) {
		o.meter = meter
	}
}

func defaultOptions[V any]() *options[V] {
	return &options[V]{
		clock: clock.New(),
		meter: telemetry.Meter(),
	}
}
