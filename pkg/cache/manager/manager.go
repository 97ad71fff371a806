// Package manager owns the cache of a process: it fronts the tiered store,
// records request metrics and runs the periodic sweep of expired entries.
package manager

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/bacalhau-project/tiercache/pkg/cache"
	"github.com/bacalhau-project/tiercache/pkg/telemetry"
)

// Backend is the store the manager fronts.
type Backend[V any] interface {
	cache.Cache[V]
	// Tiers lists the configured tiers, fastest first.
	Tiers() []string
}

var (
	resultHit  = attribute.String("result", "hit")
	resultMiss = attribute.String("result", "miss")
)

type Manager[V any] struct {
	store    Backend[V]
	interval time.Duration
	clock    clock.Clock

	requests *telemetry.Counter
	expired  *telemetry.Counter
	duration metric.Int64Histogram

	startOnce sync.Once
	stopOnce  sync.Once
	stopChan  chan struct{}
	waitGroup sync.WaitGroup
	running   atomic.Bool
}

func New[V any](store Backend[V], opts ...Option) (*Manager[V], error) {
	if store == nil {
		return nil, errors.New("cache store cannot be nil")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.clock == nil {
		return nil, errors.New("clock cannot be nil")
	}

	requests, err := telemetry.NewCounter(o.meter, "tiercache.requests",
		"Number of cache lookups by result")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create requests counter")
	}
	expired, err := telemetry.NewCounter(o.meter, "tiercache.cleanup.removed",
		"Number of expired entries swept out of memory")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cleanup counter")
	}
	duration, err := telemetry.NewDurationHistogram(o.meter, "tiercache.operation.duration",
		"Duration of cache operations")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create duration histogram")
	}

	return &Manager[V]{
		store:    store,
		interval: o.cleanupInterval,
		clock:    o.clock,
		requests: requests,
		expired:  expired,
		duration: duration,
		stopChan: make(chan struct{}),
	}, nil
}

// Start launches the maintenance loop. It is a no-op when the loop is
// disabled or was already started.
func (m *Manager[V]) Start(ctx context.Context) {
	if m.interval <= 0 {
		return
	}
	m.startOnce.Do(func() {
		// the ticker is created before the goroutine so that a mock clock
		// advanced right after Start is observed.
		ticker := m.clock.Ticker(m.interval)
		m.running.Store(true)
		m.waitGroup.Add(1)
		go m.maintain(ctx, ticker)
	})
}

// Close stops the maintenance loop and waits for it to exit. It is safe to
// call more than once.
func (m *Manager[V]) Close() error {
	m.stopOnce.Do(func() {
		close(m.stopChan)
	})
	m.waitGroup.Wait()
	return nil
}

// IsRunning reports whether the maintenance loop is active.
func (m *Manager[V]) IsRunning() bool {
	return m.running.Load()
}

func (m *Manager[V]) maintain(ctx context.Context, ticker *clock.Ticker) {
	defer m.waitGroup.Done()
	defer m.running.Store(false)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed := m.Cleanup()
			log.Ctx(ctx).Debug().Int("removed", removed).Msg("swept expired cache entries")
		case <-ctx.Done():
			log.Ctx(ctx).Debug().Msg("Context cancelled, stopping cache maintenance")
			return
		case <-m.stopChan:
			log.Ctx(ctx).Debug().Msg("Stop channel closed, stopping cache maintenance")
			return
		}
	}
}

func (m *Manager[V]) Get(ctx context.Context, key string) (V, bool) {
	defer m.time(ctx, "get")()
	v, ok := m.store.Get(ctx, key)
	if ok {
		m.requests.Inc(ctx, resultHit)
	} else {
		m.requests.Inc(ctx, resultMiss)
	}
	return v, ok
}

func (m *Manager[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) {
	defer m.time(ctx, "set")()
	m.store.Set(ctx, key, value, ttl)
}

func (m *Manager[V]) Delete(ctx context.Context, key string) bool {
	defer m.time(ctx, "delete")()
	return m.store.Delete(ctx, key)
}

func (m *Manager[V]) Has(ctx context.Context, key string) bool {
	defer m.time(ctx, "has")()
	return m.store.Has(ctx, key)
}

func (m *Manager[V]) Clear(ctx context.Context) {
	defer m.time(ctx, "clear")()
	m.store.Clear(ctx)
}

func (m *Manager[V]) Stats() cache.Stats {
	return m.store.Stats()
}

func (m *Manager[V]) Cleanup() int {
	removed := m.store.Cleanup()
	m.expired.Add(context.Background(), int64(removed))
	return removed
}

func (m *Manager[V]) Tiers() []string {
	return m.store.Tiers()
}

func (m *Manager[V]) time(ctx context.Context, operation string) func() time.Duration {
	return telemetry.Timer(ctx, m.duration, attribute.String("operation", operation))
}

var _ cache.Cache[string] = (*Manager[string])(nil)
