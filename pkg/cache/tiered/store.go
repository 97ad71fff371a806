package tiered

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bacalhau-project/tiercache/pkg/cache"
	"github.com/bacalhau-project/tiercache/pkg/cache/memory"
	"github.com/bacalhau-project/tiercache/pkg/telemetry"
)

const (
	opGet    = "get"
	opSet    = "set"
	opDelete = "delete"
	opHas    = "has"
	opClear  = "clear"
)

// Store presents the in-memory tier and up to two slower tiers as a single
// cache. Reads go fastest to slowest and promote slow-tier hits into memory.
// Writes go to every tier. A failing slow tier is logged and skipped, so no
// operation returns an error to the caller.
type Store[V any] struct {
	memory *memory.Store[V]
	slow   []cache.Tier[V]
	ttl    time.Duration

	promotions *telemetry.Counter
	tierErrors *telemetry.Counter
}

func NewStore[V any](config Config, opts ...Option[V]) (*Store[V], error) {
	o := defaultOptions[V]()
	for _, opt := range opts {
		opt(o)
	}

	evictions, err := telemetry.NewCounter(o.meter, "tiercache.evictions",
		"Number of entries evicted from memory to make room")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create evictions counter")
	}

	mem, err := memory.NewStore[V](
		memory.WithMaxSize(config.MaxSize),
		memory.WithTTL(config.TTL),
		memory.WithClock(o.clock),
		memory.WithEvictionHook(func(string) {
			evictions.Inc(context.Background())
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create in-memory tier")
	}

	var slow []cache.Tier[V]
	for _, tier := range []cache.Tier[V]{o.remote, o.local} {
		if tier != nil {
			slow = append(slow, tier)
		}
	}

	promotions, err := telemetry.NewCounter(o.meter, "tiercache.promotions",
		"Number of values copied from a slower tier into memory")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create promotions counter")
	}
	tierErrors, err := telemetry.NewCounter(o.meter, "tiercache.tier.errors",
		"Number of calls into a slower tier that failed")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create tier errors counter")
	}

	return &Store[V]{
		memory:     mem,
		slow:       slow,
		ttl:        config.TTL,
		promotions: promotions,
		tierErrors: tierErrors,
	}, nil
}

// Tiers lists the configured tiers, fastest first.
func (s *Store[V]) Tiers() []string {
	names := []string{s.memory.Name()}
	for _, tier := range s.slow {
		names = append(names, tier.Name())
	}
	return names
}

func (s *Store[V]) Get(ctx context.Context, key string) (V, bool) {
	if v, ok := s.memory.Get(key); ok {
		return v, true
	}

	for _, tier := range s.slow {
		res := tierGet(ctx, tier, key)
		switch res.Status {
		case StatusOK:
			// the remaining lifetime in the slow tier is not known here, so
			// the promoted copy gets the default ttl.
			s.memory.Set(key, res.Value, 0)
			s.promotions.Inc(ctx, attribute.String("tier", tier.Name()))
			log.Ctx(ctx).Trace().Str("key", key).Str("tier", tier.Name()).Msg("promoted cache entry")
			return res.Value, true
		case StatusUnavailable:
			s.unavailable(ctx, opGet, tier, res.Err)
		case StatusAbsent:
		}
	}

	var zero V
	return zero, false
}

// Set writes value to every tier. A ttl <= 0 uses the configured default.
func (s *Store[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.ttl
	}

	s.memory.Set(key, value, ttl)
	for _, tier := range s.slow {
		if res := tierSet(ctx, tier, key, value, ttl); res.Status == StatusUnavailable {
			s.unavailable(ctx, opSet, tier, res.Err)
		}
	}
}

// Delete removes key from every tier and reports whether any tier held it.
func (s *Store[V]) Delete(ctx context.Context, key string) bool {
	deleted := s.memory.Delete(key)
	for _, tier := range s.slow {
		res := tierDelete(ctx, tier, key)
		switch res.Status {
		case StatusOK:
			deleted = true
		case StatusUnavailable:
			s.unavailable(ctx, opDelete, tier, res.Err)
		case StatusAbsent:
		}
	}
	return deleted
}

// Has reports whether any tier holds a live value for key. It stops at the
// first tier that does and never promotes.
func (s *Store[V]) Has(ctx context.Context, key string) bool {
	if s.memory.Has(key) {
		return true
	}
	for _, tier := range s.slow {
		res := tierHas(ctx, tier, key)
		switch res.Status {
		case StatusOK:
			return true
		case StatusUnavailable:
			s.unavailable(ctx, opHas, tier, res.Err)
		case StatusAbsent:
		}
	}
	return false
}

func (s *Store[V]) Clear(ctx context.Context) {
	s.memory.Clear()
	for _, tier := range s.slow {
		if res := tierClear(ctx, tier); res.Status == StatusUnavailable {
			s.unavailable(ctx, opClear, tier, res.Err)
		}
	}
}

// Stats reports the in-memory tier only. Slower tiers do not take part in
// hit rate accounting.
func (s *Store[V]) Stats() cache.Stats {
	return s.memory.Stats()
}

// Cleanup sweeps expired entries out of the in-memory tier.
func (s *Store[V]) Cleanup() int {
	return s.memory.Cleanup()
}

func (s *Store[V]) unavailable(ctx context.Context, operation string, tier cache.Tier[V], err error) {
	s.tierErrors.Inc(ctx,
		attribute.String("tier", tier.Name()),
		attribute.String("operation", operation),
	)
	log.Ctx(ctx).Warn().Err(err).
		Str("operation", operation).
		Str("tier", tier.Name()).
		Msg("cache tier unavailable, continuing without it")
}

var _ cache.Cache[string] = (*Store[string])(nil)
