package cli

import (
	"context"
	"os"
	"os/signal"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/bacalhau-project/tiercache/cmd/cli/cache"
	configcmd "github.com/bacalhau-project/tiercache/cmd/cli/config"
	"github.com/bacalhau-project/tiercache/cmd/cli/serve"
	"github.com/bacalhau-project/tiercache/cmd/cli/version"
	"github.com/bacalhau-project/tiercache/cmd/util"
	"github.com/bacalhau-project/tiercache/cmd/util/flags"
	"github.com/bacalhau-project/tiercache/pkg/config"
	"github.com/bacalhau-project/tiercache/pkg/logger"
	"github.com/bacalhau-project/tiercache/pkg/system"
	"github.com/bacalhau-project/tiercache/pkg/telemetry"
)

type RootOptions struct {
	ConfigDir string
	LogMode   logger.LogMode
	LogLevel  string
}

func NewRootOptions() *RootOptions {
	return &RootOptions{
		ConfigDir: config.DefaultDir(),
		LogMode:   logger.ModeFromEnv(),
	}
}

func NewRootCmd() *cobra.Command {
	o := NewRootOptions()

	rootCmd := &cobra.Command{
		Use:           "tiercache",
		Short:         "A multi-tier key-value cache",
		Long:          `A key-value cache that keeps hot entries in memory and falls back to a shared NATS tier and a local bbolt file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.ConfigureLogging(o.LogMode, o.LogLevel); err != nil {
				return err
			}
			telemetry.SetupFromEnvs()
			util.GetCleanupManager(cmd.Context()).RegisterCallback("telemetry", telemetry.Cleanup)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&o.ConfigDir, util.ConfigDirFlag, o.ConfigDir,
		`Directory holding config.yaml and the data of the embedded NATS server.
Defaults to $TIERCACHE_DIR or ~/.tiercache.`)
	rootCmd.PersistentFlags().Var(flags.LoggingFlag(&o.LogMode), util.LogModeFlag,
		`Log format: 'default','json','combined','event'`)
	rootCmd.PersistentFlags().Var(flags.LogLevelFlag(&o.LogLevel), util.LogLevelFlag,
		`Log level: 'trace','debug','info','warn','error'. Defaults to $LOG_LEVEL or info.`)

	// ====== Run a server
	rootCmd.AddCommand(serve.NewCmd())

	// ====== One-shot cache operations
	rootCmd.AddCommand(cache.NewGetCmd())
	rootCmd.AddCommand(cache.NewSetCmd())
	rootCmd.AddCommand(cache.NewDeleteCmd())
	rootCmd.AddCommand(cache.NewHasCmd())
	rootCmd.AddCommand(cache.NewKeysCmd())
	rootCmd.AddCommand(cache.NewClearCmd())
	rootCmd.AddCommand(cache.NewCleanupCmd())
	rootCmd.AddCommand(cache.NewStatsCmd())

	rootCmd.AddCommand(configcmd.NewCmd())
	rootCmd.AddCommand(version.NewCmd())
	return rootCmd
}

func Execute() {
	rootCmd := NewRootCmd()

	// Ensure commands are able to stop cleanly if someone presses ctrl+c
	ctx, cancel := signal.NotifyContext(context.Background(), util.ShutdownSignals...)
	defer cancel()

	// Use stdout, not stderr for cmd.Print output, so that
	// e.g. VALUE=$(tiercache get key) works
	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)

	if err := ExecuteContext(ctx, rootCmd); err != nil {
		util.Fatal(rootCmd, err, 1)
	}
}

// ExecuteContext runs cmd with a fresh cleanup manager in its context. The
// callbacks registered by the command run once it returns, whether it failed
// or not.
func ExecuteContext(ctx context.Context, cmd *cobra.Command) error {
	cm := system.NewCleanupManager()
	err := cmd.ExecuteContext(context.WithValue(ctx, util.SystemManagerKey, cm))
	if cleanupErr := cm.Cleanup(ctx); cleanupErr != nil {
		log.Ctx(ctx).Warn().Err(cleanupErr).Msg("failed to clean up")
	}
	return err
}
