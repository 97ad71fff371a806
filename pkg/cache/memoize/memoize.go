// Package memoize wraps functions with a cache-aside lookup.
package memoize

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Cache is the part of a cache a memoized function needs. Both the tiered
// store and the manager satisfy it.
type Cache[R any] interface {
	Get(ctx context.Context, key string) (R, bool)
	Set(ctx context.Context, key string, value R, ttl time.Duration)
}

type options[A any] struct {
	keyFunc   func(A) (string, error)
	ttl       time.Duration
	namespace string
}

type Option[A any] func(*options[A])

// WithKeyFunc replaces the default key derivation. The returned key is used
// as is, without a namespace.
func WithKeyFunc[A any](fn func(A) (string, error)) Option[A] {
	return func(o *options[A]) {
		o.keyFunc = fn
	}
}

// WithTTL sets the lifetime of stored results. Zero uses the cache default.
func WithTTL[A any](ttl time.Duration) Option[A] {
	return func(o *options[A]) {
		o.ttl = ttl
	}
}

// WithNamespace sets the prefix of default keys. Two functions sharing a
// namespace and a cache share results for equal arguments.
func WithNamespace[A any](namespace string) Option[A] {
	return func(o *options[A]) {
		o.namespace = namespace
	}
}

// Func returns fn wrapped with a lookup in c. A hit returns the cached value
// without calling fn. A miss calls fn and stores a successful result; errors
// are returned and never cached. Concurrent misses on the same key share one
// call to fn. That call does not stop when one of the callers sharing it
// gives up; each caller returns as soon as its own ctx is done.
//
// The default key is the namespace followed by the JSON encoding of the
// argument, and the namespace defaults to a value unique to this call of
// Func. When the argument cannot be encoded, fn is called uncached.
func Func[A, R any](c Cache[R], fn func(context.Context, A) (R, error), opts ...Option[A]) func(context.Context, A) (R, error) {
	o := &options[A]{
		namespace: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(o)
	}
	keyFunc := o.keyFunc
	if keyFunc == nil {
		keyFunc = JSONKey[A](o.namespace)
	}

	var group singleflight.Group
	return func(ctx context.Context, arg A) (R, error) {
		key, err := keyFunc(arg)
		if err != nil {
			log.Ctx(ctx).Debug().Err(err).Msg("cannot derive cache key, calling through")
			return fn(ctx, arg)
		}

		if v, ok := c.Get(ctx, key); ok {
			return v, nil
		}

		callCtx := context.WithoutCancel(ctx)
		ch := group.DoChan(key, func() (any, error) {
			v, err := fn(callCtx, arg)
			if err != nil {
				return nil, err
			}
			c.Set(callCtx, key, v, o.ttl)
			return v, nil
		})

		var zero R
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				return zero, res.Err
			}
			if res.Shared {
				log.Ctx(ctx).Trace().Str("key", key).Msg("shared in-flight call")
			}
			v, _ := res.Val.(R)
			return v, nil
		}
	}
}

// JSONKey builds keys of the form "<namespace>:<json(arg)>".
func JSONKey[A any](namespace string) func(A) (string, error) {
	return func(arg A) (string, error) {
		b, err := json.Marshal(arg)
		if err != nil {
			return "", errors.Wrap(err, "failed to encode arguments")
		}
		return namespace + ":" + string(b), nil
	}
}
