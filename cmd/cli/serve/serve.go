package serve

import (
	"context"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/bacalhau-project/tiercache/cmd/util"
	"github.com/bacalhau-project/tiercache/cmd/util/output"
	"github.com/bacalhau-project/tiercache/pkg/node"
	"github.com/bacalhau-project/tiercache/pkg/publicapi"
	"github.com/bacalhau-project/tiercache/pkg/publicapi/endpoint/agent"
	cacheendpoint "github.com/bacalhau-project/tiercache/pkg/publicapi/endpoint/cache"
)

// DefaultShutdownTimeout bounds how long in-flight requests may take once a
// shutdown signal arrives.
const DefaultShutdownTimeout = 10 * time.Second

type ServeOptions struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
}

func NewServeOptions() *ServeOptions {
	return &ServeOptions{
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

func NewCmd() *cobra.Command {
	o := NewServeOptions()

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the cache and serve it over HTTP",
		Long: `Run the cache described by the configuration and serve it over HTTP
until interrupted. Expired entries are swept in the background.`,
		Example: `  tiercache serve
  TIERCACHE_CACHE_REMOTE_EMBEDDED=true tiercache serve --port 9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.run(cmd)
		},
	}
	serveCmd.Flags().StringVar(&o.Host, "host", o.Host,
		`The host to serve the API on. Overrides API.Host from the configuration.`)
	serveCmd.Flags().IntVar(&o.Port, "port", o.Port,
		`The port to serve the API on. Overrides API.Port from the configuration.`)
	serveCmd.Flags().DurationVar(&o.ShutdownTimeout, "shutdown-timeout", o.ShutdownTimeout,
		`How long to wait for in-flight requests on shutdown.`)
	return serveCmd
}

func (o *ServeOptions) run(cmd *cobra.Command) error {
	ctx := cmd.Context()
	cm := util.GetCleanupManager(ctx)

	cfg, err := util.LoadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("host") {
		cfg.API.Host = o.Host
	}
	if cmd.Flags().Changed("port") {
		cfg.API.Port = o.Port
	}

	n, err := node.NewNode(ctx, node.NodeConfig{
		Config:         cfg,
		ConfigDir:      util.ConfigDir(cmd),
		CleanupManager: cm,
	})
	if err != nil {
		return err
	}
	n.Start(ctx)

	router := echo.New()
	agent.NewEndpoint(agent.EndpointParams{
		Router:        router,
		Config:        cfg,
		TiersProvider: n.Cache,
	})
	cacheendpoint.NewEndpoint(cacheendpoint.EndpointParams{
		Router: router,
		Cache:  n.Cache,
	})

	server, err := publicapi.NewAPIServer(publicapi.ServerParams{
		Router:  router,
		Address: cfg.API.Host,
		Port:    cfg.API.Port,
		Config:  *publicapi.NewConfig(),
	})
	if err != nil {
		return err
	}
	if err = server.Listen(); err != nil {
		return err
	}

	output.KeyValue(cmd, []lo.Entry[string, any]{
		{Key: "API", Value: server.GetURI()},
		{Key: "NATS", Value: n.RemoteURL},
		{Key: "Tiers", Value: strings.Join(n.Cache.Tiers(), ",")},
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ctx)
	}()

	select {
	case err = <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Ctx(ctx).Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), o.ShutdownTimeout)
	defer cancel()
	if err = server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
