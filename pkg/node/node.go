// Package node assembles a cache from configuration: it connects the
// configured tiers, builds the tiered store behind a manager and registers
// everything it opens with a cleanup manager.
package node

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/bacalhau-project/tiercache/pkg/cache/manager"
	"github.com/bacalhau-project/tiercache/pkg/cache/tiered"
	"github.com/bacalhau-project/tiercache/pkg/cache/tiers/boltdb"
	"github.com/bacalhau-project/tiercache/pkg/cache/tiers/natskv"
	"github.com/bacalhau-project/tiercache/pkg/config/types"
	tiercachenats "github.com/bacalhau-project/tiercache/pkg/nats"
	"github.com/bacalhau-project/tiercache/pkg/system"
)

// JetStreamDirName is the directory, inside the config directory, holding the
// data of the embedded NATS server.
const JetStreamDirName = "jetstream"

// Value is the value type served by a node: any JSON document.
type Value = json.RawMessage

type NodeConfig struct {
	Config types.Config
	// ConfigDir anchors files the node creates, such as the embedded NATS
	// server's store.
	ConfigDir      string
	CleanupManager *system.CleanupManager
	// Clock defaults to the system clock.
	Clock clock.Clock
}

type Node struct {
	Cache *manager.Manager[Value]
	// RemoteURL is the NATS address of the remote tier, empty when the tier
	// is not configured.
	RemoteURL string
	// Local is the local tier, nil when no path is configured.
	Local *boltdb.Tier[Value]
}

// NewNode builds the cache described by config. Resources opened before a
// failure are registered with the cleanup manager, so callers clean up on
// error as well as on success.
func NewNode(ctx context.Context, config NodeConfig) (*Node, error) {
	if config.CleanupManager == nil {
		return nil, errors.New("cleanup manager cannot be nil")
	}
	if config.Clock == nil {
		config.Clock = clock.New()
	}
	cfg := config.Config.Cache
	n := &Node{}

	opts := []tiered.Option[Value]{tiered.WithClock[Value](config.Clock)}

	remote, url, err := setupRemoteTier(ctx, config)
	if err != nil {
		return nil, err
	}
	if remote != nil {
		n.RemoteURL = url
		opts = append(opts, tiered.WithRemoteTier[Value](remote))
	}

	local, err := setupLocalTier(config)
	if err != nil {
		return nil, err
	}
	if local != nil {
		n.Local = local
		opts = append(opts, tiered.WithLocalTier[Value](local))
	}

	store, err := tiered.NewStore[Value](tiered.Config{
		TTL:     cfg.TTL.AsTimeDuration(),
		MaxSize: cfg.MaxSize,
	}, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create tiered store")
	}

	n.Cache, err = manager.New[Value](store,
		manager.WithCleanupInterval(cfg.CleanupInterval.AsTimeDuration()),
		manager.WithClock(config.Clock),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cache manager")
	}
	config.CleanupManager.RegisterCallback("cache manager", n.Cache.Close)

	log.Ctx(ctx).Info().Strs("tiers", store.Tiers()).Msg("cache ready")
	return n, nil
}

// Start runs the background maintenance of the cache until ctx is done or
// the node is cleaned up.
func (n *Node) Start(ctx context.Context) {
	n.Cache.Start(ctx)
}

// setupRemoteTier returns a nil tier when neither a URL nor the embedded
// server is configured.
func setupRemoteTier(ctx context.Context, config NodeConfig) (*natskv.Tier[Value], string, error) {
	cfg := config.Config.Cache.Remote
	url := cfg.URL
	cm := config.CleanupManager

	if url == "" && cfg.Embedded {
		sm, err := tiercachenats.NewServerManager(ctx, tiercachenats.ServerManagerParams{
			Port:     cfg.EmbeddedPort,
			StoreDir: filepath.Join(config.ConfigDir, JetStreamDirName),
		})
		if err != nil {
			return nil, "", err
		}
		cm.RegisterCallback("embedded nats server", func() error {
			sm.Stop()
			return nil
		})
		url = sm.ClientURL()
	}
	if url == "" {
		return nil, "", nil
	}

	client, err := tiercachenats.NewClientManager(ctx, url)
	if err != nil {
		return nil, "", err
	}
	cm.RegisterCallback("nats client", func() error {
		client.Stop()
		return nil
	})

	tier, err := natskv.NewTier[Value](ctx, natskv.Params{
		Client:     client.Client,
		BucketName: cfg.Bucket,
		MaxAge:     cfg.MaxAge.AsTimeDuration(),
		Clock:      config.Clock,
	})
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to create remote tier")
	}
	return tier, url, nil
}

// setupLocalTier returns a nil tier when no path is configured.
func setupLocalTier(config NodeConfig) (*boltdb.Tier[Value], error) {
	cfg := config.Config.Cache.Local
	if cfg.Path == "" {
		return nil, nil
	}

	db, err := boltdb.OpenDB(cfg.Path)
	if err != nil {
		return nil, err
	}
	config.CleanupManager.RegisterCallback("bolt database", db.Close)

	tier, err := boltdb.NewTier[Value](db,
		boltdb.WithBucket(cfg.Bucket),
		boltdb.WithPrefix(cfg.Prefix),
		boltdb.WithMaxValueSize(cfg.MaxValueSize),
		boltdb.WithClock(config.Clock),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create local tier")
	}
	return tier, nil
}
