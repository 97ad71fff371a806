package tiered

import (
	"context"
	"fmt"
	"time"

	"github.com/bacalhau-project/tiercache/pkg/cache"
)

// Status is the outcome of a single call into a slower tier.
type Status int

const (
	// StatusAbsent means the tier answered and does not hold the key.
	StatusAbsent Status = iota
	// StatusOK means the tier answered and the call did what was asked.
	StatusOK
	// StatusUnavailable means the tier failed to answer. The orchestrator
	// moves on to the next tier.
	StatusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusAbsent:
		return "absent"
	case StatusOK:
		return "ok"
	case StatusUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Result is the tagged outcome of a tier call.
type Result[T any] struct {
	Status Status
	Value  T
	Err    error
}

func ok[T any](v T) Result[T] {
	return Result[T]{Status: StatusOK, Value: v}
}

func absent[T any]() Result[T] {
	return Result[T]{Status: StatusAbsent}
}

func unavailable[T any](err error) Result[T] {
	return Result[T]{Status: StatusUnavailable, Err: err}
}

func found[T any](v T, present bool, err error) Result[T] {
	switch {
	case err != nil:
		return unavailable[T](err)
	case !present:
		return absent[T]()
	default:
		return ok(v)
	}
}

func done(err error) Result[struct{}] {
	if err != nil {
		return unavailable[struct{}](err)
	}
	return ok(struct{}{})
}

// guard runs call and turns a panic inside a tier implementation into an
// unavailable result.
func guard[T any](call func() Result[T]) (res Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			res = unavailable[T](fmt.Errorf("tier panicked: %v", r))
		}
	}()
	return call()
}

func tierGet[V any](ctx context.Context, tier cache.Tier[V], key string) Result[V] {
	return guard(func() Result[V] {
		return found[V](tier.Get(ctx, key))
	})
}

func tierSet[V any](ctx context.Context, tier cache.Tier[V], key string, value V, ttl time.Duration) Result[struct{}] {
	return guard(func() Result[struct{}] {
		return done(tier.Set(ctx, key, value, ttl))
	})
}

func tierDelete[V any](ctx context.Context, tier cache.Tier[V], key string) Result[bool] {
	return guard(func() Result[bool] {
		removed, err := tier.Delete(ctx, key)
		return found(removed, removed, err)
	})
}

func tierHas[V any](ctx context.Context, tier cache.Tier[V], key string) Result[bool] {
	return guard(func() Result[bool] {
		present, err := tier.Has(ctx, key)
		return found(present, present, err)
	})
}

func tierClear[V any](ctx context.Context, tier cache.Tier[V]) Result[struct{}] {
	return guard(func() Result[struct{}] {
		return done(tier.Clear(ctx))
	})
}
