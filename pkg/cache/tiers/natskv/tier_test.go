//go:build unit || !integration

package natskv_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/nats-io/nats-server/v2/server"
	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/suite"

	"github.com/bacalhau-project/tiercache/pkg/cache/tiers/natskv"
)

type product struct {
	SKU   string  `json:"sku"`
	Price float64 `json:"price"`
}

type NATSTierSuite struct {
	suite.Suite
	ctx    context.Context
	server *server.Server
	client *nats.Conn
	clock  *clock.Mock
	tier   *natskv.Tier[product]
}

func TestNATSTierSuite(t *testing.T) {
	suite.Run(t, new(NATSTierSuite))
}

func (s *NATSTierSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = clock.NewMock()
	s.clock.Set(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	opts := natsserver.DefaultTestOptions
	opts.Port = server.RANDOM_PORT
	opts.JetStream = true
	opts.StoreDir = s.T().TempDir()
	s.server = natsserver.RunServer(&opts)

	var err error
	s.client, err = nats.Connect(s.server.ClientURL())
	s.Require().NoError(err)

	s.tier, err = natskv.NewTier[product](s.ctx, natskv.Params{
		Client:     s.client,
		BucketName: "test_cache",
		Clock:      s.clock,
	})
	s.Require().NoError(err)
}

func (s *NATSTierSuite) TearDownTest() {
	s.client.Close()
	s.server.Shutdown()
}

func (s *NATSTierSuite) TestRequiresClient() {
	_, err := natskv.NewTier[product](s.ctx, natskv.Params{})
	s.Error(err)
}

func (s *NATSTierSuite) TestSetAndGet() {
	want := product{SKU: "tee-black-m", Price: 19.5}
	s.Require().NoError(s.tier.Set(s.ctx, "product:tee-black-m", want, time.Minute))

	got, ok, err := s.tier.Get(s.ctx, "product:tee-black-m")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(want, got)
}

func (s *NATSTierSuite) TestGetMissing() {
	_, ok, err := s.tier.Get(s.ctx, "missing")
	s.NoError(err)
	s.False(ok)
}

func (s *NATSTierSuite) TestKeysOutsideNATSAlphabet() {
	key := "products?page=2&sort=price desc"
	s.Require().NoError(s.tier.Set(s.ctx, key, product{SKU: "a"}, time.Minute))

	got, ok, err := s.tier.Get(s.ctx, key)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal("a", got.SKU)
}

func (s *NATSTierSuite) TestEmptyKeyIsAnError() {
	s.Error(s.tier.Set(s.ctx, "", product{}, time.Minute))
	_, _, err := s.tier.Get(s.ctx, "")
	s.Error(err)
}

func (s *NATSTierSuite) TestExpiry() {
	s.Require().NoError(s.tier.Set(s.ctx, "k", product{SKU: "k"}, time.Second))

	has, err := s.tier.Has(s.ctx, "k")
	s.Require().NoError(err)
	s.True(has)

	s.clock.Add(time.Second)
	_, ok, err := s.tier.Get(s.ctx, "k")
	s.NoError(err)
	s.False(ok)

	has, err = s.tier.Has(s.ctx, "k")
	s.NoError(err)
	s.False(has)
}

func (s *NATSTierSuite) TestDelete() {
	s.Require().NoError(s.tier.Set(s.ctx, "k", product{SKU: "k"}, time.Minute))

	deleted, err := s.tier.Delete(s.ctx, "k")
	s.Require().NoError(err)
	s.True(deleted)

	deleted, err = s.tier.Delete(s.ctx, "k")
	s.Require().NoError(err)
	s.False(deleted)

	_, ok, err := s.tier.Get(s.ctx, "k")
	s.NoError(err)
	s.False(ok)
}

func (s *NATSTierSuite) TestClear() {
	s.NoError(s.tier.Clear(s.ctx), "clearing an empty bucket is fine")

	for _, k := range []string{"a", "b", "c"} {
		s.Require().NoError(s.tier.Set(s.ctx, k, product{SKU: k}, time.Minute))
	}
	s.Require().NoError(s.tier.Clear(s.ctx))

	for _, k := range []string{"a", "b", "c"} {
		has, err := s.tier.Has(s.ctx, k)
		s.NoError(err)
		s.False(has)
	}
}

func (s *NATSTierSuite) TestSharedBucket() {
	other, err := natskv.NewTier[product](s.ctx, natskv.Params{
		Client:     s.client,
		BucketName: "test_cache",
		Clock:      s.clock,
	})
	s.Require().NoError(err)

	s.Require().NoError(s.tier.Set(s.ctx, "shared", product{SKU: "shared"}, time.Minute))
	got, ok, err := other.Get(s.ctx, "shared")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal("shared", got.SKU)
}

func (s *NATSTierSuite) TestUnreachableServer() {
	s.server.Shutdown()

	ctx, cancel := context.WithTimeout(s.ctx, 500*time.Millisecond)
	defer cancel()
	_, _, err := s.tier.Get(ctx, "k")
	s.Error(err)
}

func (s *NATSTierSuite) TestReopenWithDifferentMaxAge() {
	first, err := natskv.NewTier[product](s.ctx, natskv.Params{
		Client:     s.client,
		BucketName: "aged",
		MaxAge:     time.Hour,
		Clock:      s.clock,
	})
	s.Require().NoError(err)
	s.Require().NoError(first.Set(s.ctx, "k", product{SKU: "k"}, time.Minute))

	reopened, err := natskv.NewTier[product](s.ctx, natskv.Params{
		Client:     s.client,
		BucketName: "aged",
		MaxAge:     2 * time.Hour,
		Clock:      s.clock,
	})
	s.Require().NoError(err)

	got, ok, err := reopened.Get(s.ctx, "k")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal("k", got.SKU)
}

// An expired value purged by a reader must not take a concurrent fresh write
// down with it.
func (s *NATSTierSuite) TestExpiredPurgeKeepsConcurrentWrite() {
	past := clock.NewMock()
	past.Set(s.clock.Now().Add(-time.Hour))
	writer, err := natskv.NewTier[product](s.ctx, natskv.Params{
		Client:     s.client,
		BucketName: "test_cache",
		Clock:      past,
	})
	s.Require().NoError(err)

	for i := 0; i < 200; i++ {
		s.Require().NoError(writer.Set(s.ctx, "k", product{SKU: "stale"}, time.Second))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _, _ = s.tier.Get(s.ctx, "k")
		}()
		go func() {
			defer wg.Done()
			s.NoError(s.tier.Set(s.ctx, "k", product{SKU: "fresh"}, time.Minute))
		}()
		wg.Wait()

		got, ok, err := s.tier.Get(s.ctx, "k")
		s.Require().NoError(err)
		s.Require().True(ok, "fresh write lost in round %d", i)
		s.Equal("fresh", got.SKU)
	}
}
