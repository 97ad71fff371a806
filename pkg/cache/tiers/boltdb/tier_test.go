//go:build unit || !integration

package boltdb_test

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/c2h5oh/datasize"
	"github.com/stretchr/testify/suite"
	"go.etcd.io/bbolt"

	"github.com/bacalhau-project/tiercache/pkg/cache/tiers/boltdb"
)

type BoltTierSuite struct {
	suite.Suite
	ctx   context.Context
	path  string
	db    *bbolt.DB
	clock *clock.Mock
	tier  *boltdb.Tier[string]
}

func TestBoltTierSuite(t *testing.T) {
	suite.Run(t, new(BoltTierSuite))
}

func (s *BoltTierSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = clock.NewMock()
	s.clock.Set(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s.path = filepath.Join(s.T().TempDir(), "nested", "cache.db")

	var err error
	s.db, err = boltdb.OpenDB(s.path)
	s.Require().NoError(err)

	s.tier, err = boltdb.NewTier[string](s.db, boltdb.WithClock(s.clock))
	s.Require().NoError(err)
}

func (s *BoltTierSuite) TearDownTest() {
	if s.db != nil {
		s.NoError(s.db.Close())
	}
}

func (s *BoltTierSuite) TestRequiresDB() {
	_, err := boltdb.NewTier[string](nil)
	s.Error(err)
}

func (s *BoltTierSuite) TestRequiresBucket() {
	_, err := boltdb.NewTier[string](s.db, boltdb.WithBucket(""))
	s.Error(err)
}

func (s *BoltTierSuite) TestSetAndGet() {
	s.Require().NoError(s.tier.Set(s.ctx, "user:1", "alice", time.Minute))

	got, ok, err := s.tier.Get(s.ctx, "user:1")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal("alice", got)
}

func (s *BoltTierSuite) TestGetMissing() {
	got, ok, err := s.tier.Get(s.ctx, "user:404")
	s.Require().NoError(err)
	s.False(ok)
	s.Empty(got)
}

func (s *BoltTierSuite) TestExpiry() {
	s.Require().NoError(s.tier.Set(s.ctx, "session", "token", time.Second))

	s.clock.Add(999 * time.Millisecond)
	ok, err := s.tier.Has(s.ctx, "session")
	s.Require().NoError(err)
	s.True(ok)

	s.clock.Add(time.Millisecond)
	_, ok, err = s.tier.Get(s.ctx, "session")
	s.Require().NoError(err)
	s.False(ok)

	// the expired record is removed, not just hidden
	s.Require().NoError(s.db.View(func(tx *bbolt.Tx) error {
		s.Nil(tx.Bucket([]byte(boltdb.DefaultBucketName)).Get([]byte(boltdb.DefaultKeyPrefix + "session")))
		return nil
	}))
}

func (s *BoltTierSuite) TestDelete() {
	s.Require().NoError(s.tier.Set(s.ctx, "k", "v", time.Minute))

	removed, err := s.tier.Delete(s.ctx, "k")
	s.Require().NoError(err)
	s.True(removed)

	removed, err = s.tier.Delete(s.ctx, "k")
	s.Require().NoError(err)
	s.False(removed)

	ok, err := s.tier.Has(s.ctx, "k")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *BoltTierSuite) TestDeleteExpiredReportsFalse() {
	s.Require().NoError(s.tier.Set(s.ctx, "k", "v", time.Second))
	s.clock.Add(time.Second)

	removed, err := s.tier.Delete(s.ctx, "k")
	s.Require().NoError(err)
	s.False(removed)
}

// A reader removing an expired record must not remove a fresh one written
// between its read and its delete.
func (s *BoltTierSuite) TestExpiredRemovalKeepsConcurrentWrite() {
	past := clock.NewMock()
	past.Set(s.clock.Now().Add(-time.Hour))
	writer, err := boltdb.NewTier[string](s.db, boltdb.WithClock(past))
	s.Require().NoError(err)

	for i := 0; i < 2000; i++ {
		s.Require().NoError(writer.Set(s.ctx, "k", "stale", time.Second))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _, _ = s.tier.Get(s.ctx, "k")
		}()
		go func() {
			defer wg.Done()
			s.NoError(s.tier.Set(s.ctx, "k", "fresh", time.Minute))
		}()
		wg.Wait()

		got, ok, err := s.tier.Get(s.ctx, "k")
		s.Require().NoError(err)
		s.Require().True(ok, "fresh write lost in round %d", i)
		s.Equal("fresh", got)
	}
}

func (s *BoltTierSuite) TestDeleteRemovesExpiredRecord() {
	s.Require().NoError(s.tier.Set(s.ctx, "k", "v", time.Second))
	s.clock.Add(time.Second)

	removed, err := s.tier.Delete(s.ctx, "k")
	s.Require().NoError(err)
	s.False(removed)

	s.Require().NoError(s.db.View(func(tx *bbolt.Tx) error {
		s.Nil(tx.Bucket([]byte(boltdb.DefaultBucketName)).Get([]byte(boltdb.DefaultKeyPrefix + "k")))
		return nil
	}))
}

func (s *BoltTierSuite) TestValueQuota() {
	tier, err := boltdb.NewTier[string](s.db,
		boltdb.WithClock(s.clock),
		boltdb.WithMaxValueSize(128*datasize.B),
	)
	s.Require().NoError(err)

	s.NoError(tier.Set(s.ctx, "small", "fits", time.Minute))
	err = tier.Set(s.ctx, "big", strings.Repeat("x", 256), time.Minute)
	s.ErrorIs(err, boltdb.ErrValueTooLarge)

	ok, err := tier.Has(s.ctx, "big")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *BoltTierSuite) TestQuotaDisabled() {
	tier, err := boltdb.NewTier[string](s.db, boltdb.WithClock(s.clock), boltdb.WithMaxValueSize(0))
	s.Require().NoError(err)
	s.NoError(tier.Set(s.ctx, "big", strings.Repeat("x", 1024), time.Minute))
}

func (s *BoltTierSuite) TestClearIsPrefixScoped() {
	other, err := boltdb.NewTier[string](s.db, boltdb.WithClock(s.clock), boltdb.WithPrefix("other:"))
	s.Require().NoError(err)

	for _, k := range []string{"a", "b", "c"} {
		s.Require().NoError(s.tier.Set(s.ctx, k, k, time.Minute))
	}
	s.Require().NoError(other.Set(s.ctx, "a", "kept", time.Minute))

	s.Require().NoError(s.tier.Clear(s.ctx))

	keys, err := s.tier.Keys(s.ctx)
	s.Require().NoError(err)
	s.Empty(keys)

	got, ok, err := other.Get(s.ctx, "a")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal("kept", got)
}

func (s *BoltTierSuite) TestKeysSkipsExpired() {
	s.Require().NoError(s.tier.Set(s.ctx, "short", "v", time.Second))
	s.Require().NoError(s.tier.Set(s.ctx, "long", "v", time.Hour))
	s.clock.Add(time.Minute)

	keys, err := s.tier.Keys(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"long"}, keys)
}

func (s *BoltTierSuite) TestSurvivesReopen() {
	s.Require().NoError(s.tier.Set(s.ctx, "persisted", "yes", time.Hour))
	s.Require().NoError(s.db.Close())

	var err error
	s.db, err = boltdb.OpenDB(s.path)
	s.Require().NoError(err)
	s.tier, err = boltdb.NewTier[string](s.db, boltdb.WithClock(s.clock))
	s.Require().NoError(err)

	got, ok, err := s.tier.Get(s.ctx, "persisted")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal("yes", got)
}
