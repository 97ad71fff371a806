package manager

import (
	"time"

	"github.com/benbjohnson/clock"
	"go.opentelemetry.io/otel/metric"

	"github.com/bacalhau-project/tiercache/pkg/telemetry"
)

// DefaultCleanupInterval is how often the maintenance loop sweeps expired
// entries out of memory.
const DefaultCleanupInterval = time.Minute

type options struct {
	cleanupInterval time.Duration
	clock           clock.Clock
	meter           metric.Meter
}

type Option func(*options)

// WithCleanupInterval sets the period of the maintenance loop. A value <= 0
// disables the loop.
func WithCleanupInterval(interval time.Duration) Option {
	return func(o *options) {
		o.cleanupInterval = interval
	}
}

func WithClock(clk clock.Clock) Option {
	return func(o *options) {
		o.clock = clk
	}
}

func WithMeter(meter metric.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
}

func defaultOptions() *options {
	return &options{
		cleanupInterval: DefaultCleanupInterval,
		clock:           clock.New(),
		meter:           telemetry.Meter(),
	}
}
