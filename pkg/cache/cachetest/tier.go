// Package cachetest provides test doubles for cache tiers.
package cachetest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bacalhau-project/tiercache/pkg/cache"
)

// ErrTierDown is returned by a Tier whose Fail flag is set.
var ErrTierDown = errors.New("tier is down")

// Tier is an in-memory cache.Tier that counts calls per operation and can be
// switched into a failing mode. Entries never expire.
type Tier[V any] struct {
	name string

	mu     sync.Mutex
	values map[string]V
	ttls   map[string]time.Duration
	calls  map[string]int
	fail   bool
}

func NewTier[V any](name string) *Tier[V] {
	return &Tier[V]{
		name:   name,
		values: make(map[string]V),
		ttls:   make(map[string]time.Duration),
		calls:  make(map[string]int),
	}
}

// SetFailing makes every following call return ErrTierDown.
func (t *Tier[V]) SetFailing(fail bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fail = fail
}

// Calls returns how many times operation was invoked.
func (t *Tier[V]) Calls(operation string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls[operation]
}

// Put stores a value directly, bypassing call counting.
func (t *Tier[V]) Put(key string, value V) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.values[key] = value
}

// Peek reads a value directly, bypassing call counting.
func (t *Tier[V]) Peek(key string) (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.values[key]
	return v, ok
}

// TTL returns the ttl the last Set for key was called with.
func (t *Tier[V]) TTL(key string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ttls[key]
}

func (t *Tier[V]) Name() string {
	return t.name
}

func (t *Tier[V]) record(operation string) error {
	t.calls[operation]++
	if t.fail {
		return ErrTierDown
	}
	return nil
}

func (t *Tier[V]) Get(_ context.Context, key string) (V, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var zero V
	if err := t.record("get"); err != nil {
		return zero, false, err
	}
	v, ok := t.values[key]
	return v, ok, nil
}

func (t *Tier[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.record("set"); err != nil {
		return err
	}
	t.values[key] = value
	t.ttls[key] = ttl
	return nil
}

func (t *Tier[V]) Delete(_ context.Context, key string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.record("delete"); err != nil {
		return false, err
	}
	_, ok := t.values[key]
	delete(t.values, key)
	return ok, nil
}

func (t *Tier[V]) Has(_ context.Context, key string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.record("has"); err != nil {
		return false, err
	}
	_, ok := t.values[key]
	return ok, nil
}

func (t *Tier[V]) Clear(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.record("clear"); err != nil {
		return err
	}
	t.values = make(map[string]V)
	return nil
}

var _ cache.Tier[string] = (*Tier[string])(nil)
