package memory

import (
	"time"

	sync "github.com/bacalhau-project/golang-mutex-tracer"
	"github.com/benbjohnson/clock"
	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/bacalhau-project/tiercache/pkg/cache"
)

// Store is the fastest tier: a bounded map with per-entry expiry and least
// recently used eviction. All methods are safe for concurrent use.
type Store[V any] struct {
	mu      sync.Mutex
	entries *simplelru.LRU[string, *cache.Entry[V]]
	maxSize int
	ttl     time.Duration
	clock   clock.Clock
	onEvict func(key string)

	hits      uint64
	misses    uint64
	sets      uint64
	deletes   uint64
	evictions uint64
}

func NewStore[V any](options ...Option) (*Store[V], error) {
	config := defaultConfig()
	for _, opt := range options {
		opt(config)
	}

	if config.maxSize <= 0 {
		return nil, errors.Errorf("max size must be greater than zero, got %d", config.maxSize)
	}
	if config.ttl <= 0 {
		return nil, errors.Errorf("default ttl must be greater than zero, got %s", config.ttl)
	}
	if config.clock == nil {
		return nil, errors.New("clock cannot be nil")
	}

	// eviction is driven explicitly from Set, so the LRU is given one slot of
	// headroom and never evicts on its own.
	entries, err := simplelru.NewLRU[string, *cache.Entry[V]](config.maxSize+1, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create lru")
	}

	s := &Store[V]{
		entries: entries,
		maxSize: config.maxSize,
		ttl:     config.ttl,
		clock:   config.clock,
		onEvict: config.onEvict,
	}
	s.mu.EnableTracerWithOpts(sync.Opts{
		Threshold: 10 * time.Millisecond,
		Id:        "MemoryStore.mu",
	})
	return s, nil
}

// Name identifies the tier in logs and metrics.
func (s *Store[V]) Name() string {
	return "memory"
}

// TTL returns the default time-to-live of the store.
func (s *Store[V]) TTL() time.Duration {
	return s.ttl
}

func (s *Store[V]) Get(key string) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries.Peek(key)
	if !ok {
		s.misses++
		var zero V
		return zero, false
	}
	if entry.ExpiredAt(s.clock.Now()) {
		s.entries.Remove(key)
		s.misses++
		var zero V
		return zero, false
	}

	// Get moves the key to the most recently used position.
	s.entries.Get(key)
	entry.Hits++
	s.hits++
	return entry.Value, true
}

// Set stores value under key. A ttl <= 0 uses the store's default ttl.
func (s *Store[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.ttl
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if !s.entries.Contains(key) && s.entries.Len() >= s.maxSize {
		if evicted, _, ok := s.entries.RemoveOldest(); ok {
			s.evictions++
			log.Trace().Str("key", evicted).Msg("evicted least recently used cache entry")
			if s.onEvict != nil {
				s.onEvict(evicted)
			}
		}
	}

	s.entries.Add(key, &cache.Entry[V]{
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	})
	s.sets++
}

func (s *Store[V]) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.entries.Remove(key) {
		return false
	}
	s.deletes++
	return true
}

// Has reports whether a live entry exists for key. It neither changes the
// recency of the key nor counts as a hit or a miss.
func (s *Store[V]) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries.Peek(key)
	if !ok {
		return false
	}
	if entry.ExpiredAt(s.clock.Now()) {
		s.entries.Remove(key)
		return false
	}
	return true
}

// Clear drops every entry and resets all counters.
func (s *Store[V]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries.Purge()
	s.hits, s.misses, s.sets, s.deletes, s.evictions = 0, 0, 0, 0, 0
}

func (s *Store[V]) Stats() cache.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return cache.Stats{
		Hits:      s.hits,
		Misses:    s.misses,
		Sets:      s.sets,
		Deletes:   s.deletes,
		Evictions: s.evictions,
		Size:      s.entries.Len(),
		HitRate:   cache.HitRate(s.hits, s.misses),
	}
}

// Cleanup removes every expired entry and returns how many were removed.
// Counters are not affected.
func (s *Store[V]) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	removed := 0
	for _, key := range s.entries.Keys() {
		entry, ok := s.entries.Peek(key)
		if ok && entry.ExpiredAt(now) {
			s.entries.Remove(key)
			removed++
		}
	}
	return removed
}

func (s *Store[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries.Len()
}

// Keys returns the held keys ordered from least to most recently used,
// including entries that expired but were not swept yet.
func (s *Store[V]) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries.Keys()
}
