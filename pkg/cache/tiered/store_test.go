//go:build unit || !integration

package tiered_test

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/suite"

	"github.com/bacalhau-project/tiercache/pkg/cache"
	"github.com/bacalhau-project/tiercache/pkg/cache/cachetest"
	"github.com/bacalhau-project/tiercache/pkg/cache/tiered"
	"github.com/bacalhau-project/tiercache/pkg/logger"
)

type TieredStoreSuite struct {
	suite.Suite
	ctx    context.Context
	clock  *clock.Mock
	remote *cachetest.Tier[string]
	local  *cachetest.Tier[string]
	store  *tiered.Store[string]
}

func TestTieredStoreSuite(t *testing.T) {
	suite.Run(t, new(TieredStoreSuite))
}

func (s *TieredStoreSuite) SetupTest() {
	logger.ConfigureTestLogging(s.T())
	s.ctx = context.Background()
	s.clock = clock.NewMock()
	s.remote = cachetest.NewTier[string]("remote")
	s.local = cachetest.NewTier[string]("local")

	var err error
	s.store, err = tiered.NewStore[string](
		tiered.Config{TTL: time.Minute, MaxSize: 2},
		tiered.WithRemoteTier[string](s.remote),
		tiered.WithLocalTier[string](s.local),
		tiered.WithClock[string](s.clock),
	)
	s.Require().NoError(err)
}

func (s *TieredStoreSuite) TestTiers() {
	s.Equal([]string{"memory", "remote", "local"}, s.store.Tiers())

	memoryOnly, err := tiered.NewStore[string](tiered.DefaultConfig())
	s.Require().NoError(err)
	s.Equal([]string{"memory"}, memoryOnly.Tiers())
}

func (s *TieredStoreSuite) TestInvalidConfig() {
	_, err := tiered.NewStore[string](tiered.Config{TTL: time.Minute})
	s.Error(err)
}

func (s *TieredStoreSuite) TestMemoryHitSkipsSlowTiers() {
	s.store.Set(s.ctx, "k", "v", 0)

	v, ok := s.store.Get(s.ctx, "k")
	s.True(ok)
	s.Equal("v", v)
	s.Zero(s.remote.Calls("get"))
	s.Zero(s.local.Calls("get"))
}

func (s *TieredStoreSuite) TestPromotionFromRemote() {
	s.remote.Put("k", "remote-value")

	v, ok := s.store.Get(s.ctx, "k")
	s.True(ok)
	s.Equal("remote-value", v)
	s.Equal(1, s.remote.Calls("get"))
	s.Zero(s.local.Calls("get"))

	v, ok = s.store.Get(s.ctx, "k")
	s.True(ok)
	s.Equal("remote-value", v)
	s.Equal(1, s.remote.Calls("get"), "second read must be served from memory")
	s.Equal(uint64(1), s.store.Stats().Hits)
}

func (s *TieredStoreSuite) TestPromotionUsesDefaultTTL() {
	s.remote.Put("k", "v")
	_, ok := s.store.Get(s.ctx, "k")
	s.Require().True(ok)

	s.clock.Add(59 * time.Second)
	s.True(s.store.Has(s.ctx, "k"))
	s.Equal(0, s.remote.Calls("has"))

	s.clock.Add(time.Second)
	s.remote.SetFailing(true)
	s.local.SetFailing(true)
	_, ok = s.store.Get(s.ctx, "k")
	s.False(ok)
}

func (s *TieredStoreSuite) TestPromotionFromLocal() {
	s.local.Put("k", "local-value")

	v, ok := s.store.Get(s.ctx, "k")
	s.True(ok)
	s.Equal("local-value", v)
	s.Equal(1, s.remote.Calls("get"))
	s.Equal(1, s.local.Calls("get"))

	_, ok = s.store.Get(s.ctx, "k")
	s.True(ok)
	s.Equal(1, s.local.Calls("get"))
}

func (s *TieredStoreSuite) TestRemoteBeforeLocal() {
	s.remote.Put("k", "remote")
	s.local.Put("k", "local")

	v, ok := s.store.Get(s.ctx, "k")
	s.True(ok)
	s.Equal("remote", v)
	s.Zero(s.local.Calls("get"))
}

func (s *TieredStoreSuite) TestMissEverywhere() {
	_, ok := s.store.Get(s.ctx, "missing")
	s.False(ok)
	s.Equal(1, s.remote.Calls("get"))
	s.Equal(1, s.local.Calls("get"))
	s.Equal(uint64(1), s.store.Stats().Misses)
}

func (s *TieredStoreSuite) TestWriteThrough() {
	s.store.Set(s.ctx, "k", "v", 10*time.Second)

	v, ok := s.remote.Peek("k")
	s.True(ok)
	s.Equal("v", v)
	v, ok = s.local.Peek("k")
	s.True(ok)
	s.Equal("v", v)

	s.Equal(10*time.Second, s.remote.TTL("k"))
	s.Equal(10*time.Second, s.local.TTL("k"))
}

func (s *TieredStoreSuite) TestWriteThroughResolvesDefaultTTL() {
	s.store.Set(s.ctx, "k", "v", 0)
	s.Equal(time.Minute, s.remote.TTL("k"))
	s.Equal(time.Minute, s.local.TTL("k"))
}

func (s *TieredStoreSuite) TestRemoteFailureTolerance() {
	s.remote.SetFailing(true)

	s.store.Set(s.ctx, "k", "v", 0)
	v, ok := s.store.Get(s.ctx, "k")
	s.True(ok)
	s.Equal("v", v)

	v, ok = s.local.Peek("k")
	s.True(ok, "a failing remote tier must not stop the write to the local tier")
	s.Equal("v", v)
}

func (s *TieredStoreSuite) TestFailingTierIsSkippedOnRead() {
	s.remote.SetFailing(true)
	s.local.Put("k", "local")

	v, ok := s.store.Get(s.ctx, "k")
	s.True(ok)
	s.Equal("local", v)
}

func (s *TieredStoreSuite) TestPanickingTierIsSkipped() {
	store, err := tiered.NewStore[string](
		tiered.Config{TTL: time.Minute, MaxSize: 2},
		tiered.WithRemoteTier[string](panickingTier{}),
		tiered.WithLocalTier[string](s.local),
	)
	s.Require().NoError(err)
	s.local.Put("k", "local")

	s.NotPanics(func() {
		store.Set(s.ctx, "other", "v", 0)
		v, ok := store.Get(s.ctx, "k")
		s.True(ok)
		s.Equal("local", v)
		s.True(store.Has(s.ctx, "k"))
		s.True(store.Delete(s.ctx, "k"))
		store.Clear(s.ctx)
	})
}

func (s *TieredStoreSuite) TestDelete() {
	s.store.Set(s.ctx, "k", "v", 0)

	s.True(s.store.Delete(s.ctx, "k"))
	_, ok := s.remote.Peek("k")
	s.False(ok)
	_, ok = s.local.Peek("k")
	s.False(ok)

	s.False(s.store.Delete(s.ctx, "k"))
}

func (s *TieredStoreSuite) TestDeleteOnlyInSlowTier() {
	s.local.Put("k", "v")
	s.True(s.store.Delete(s.ctx, "k"))
	s.Zero(s.store.Stats().Deletes)
}

func (s *TieredStoreSuite) TestDeleteWithFailingTier() {
	s.store.Set(s.ctx, "k", "v", 0)
	s.remote.SetFailing(true)

	s.True(s.store.Delete(s.ctx, "k"))
	_, ok := s.local.Peek("k")
	s.False(ok)
}

func (s *TieredStoreSuite) TestHasShortCircuits() {
	s.store.Set(s.ctx, "k", "v", 0)
	s.True(s.store.Has(s.ctx, "k"))
	s.Zero(s.remote.Calls("has"))

	s.local.Put("slow", "v")
	s.True(s.store.Has(s.ctx, "slow"))
	s.Equal(1, s.remote.Calls("has"))
	s.Equal(1, s.local.Calls("has"))

	s.False(s.store.Has(s.ctx, "missing"))
}

func (s *TieredStoreSuite) TestHasDoesNotPromote() {
	s.remote.Put("k", "v")
	s.True(s.store.Has(s.ctx, "k"))
	s.Equal(0, s.store.Stats().Size)
}

func (s *TieredStoreSuite) TestClear() {
	for _, k := range []string{"a", "b"} {
		s.store.Set(s.ctx, k, k, 0)
	}
	s.store.Clear(s.ctx)

	s.Equal(0, s.store.Stats().Size)
	for _, k := range []string{"a", "b"} {
		_, ok := s.store.Get(s.ctx, k)
		s.False(ok)
	}
	s.Equal(1, s.remote.Calls("clear"))
	s.Equal(1, s.local.Calls("clear"))
}

func (s *TieredStoreSuite) TestStatsAreMemoryOnly() {
	s.remote.Put("k", "v")
	s.store.Get(s.ctx, "k")
	s.store.Get(s.ctx, "k")

	stats := s.store.Stats()
	s.Equal(uint64(1), stats.Hits)
	s.Equal(uint64(1), stats.Misses)
	s.Equal(uint64(1), stats.Sets, "promotion writes into memory")
	s.InDelta(0.5, stats.HitRate, 1e-9)
}

func (s *TieredStoreSuite) TestCleanupDelegatesToMemory() {
	s.store.Set(s.ctx, "k", "v", time.Second)
	s.clock.Add(2 * time.Second)

	s.Equal(1, s.store.Cleanup())
	_, ok := s.remote.Peek("k")
	s.True(ok, "cleanup only sweeps the in-memory tier")
}

type panickingTier struct{}

func (panickingTier) Name() string { return "panicking" }
func (panickingTier) Get(context.Context, string) (string, bool, error) {
	panic("boom")
}
func (panickingTier) Set(context.Context, string, string, time.Duration) error {
	panic("boom")
}
func (panickingTier) Delete(context.Context, string) (bool, error) { panic("boom") }
func (panickingTier) Has(context.Context, string) (bool, error)    { panic("boom") }
func (panickingTier) Clear(context.Context) error                  { panic("boom") }

var _ cache.Tier[string] = panickingTier{}
