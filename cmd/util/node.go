package util

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bacalhau-project/tiercache/pkg/config"
	"github.com/bacalhau-project/tiercache/pkg/config/types"
	"github.com/bacalhau-project/tiercache/pkg/logger"
	"github.com/bacalhau-project/tiercache/pkg/node"
)

// Persistent flags of the root command.
const (
	ConfigDirFlag = "config-dir"
	LogModeFlag   = "log-mode"
	LogLevelFlag  = "log-level"
)

// ConfigDir returns the value of the --config-dir flag.
func ConfigDir(cmd *cobra.Command) string {
	dir, err := cmd.Flags().GetString(ConfigDirFlag)
	if err != nil {
		return config.DefaultDir()
	}
	return dir
}

// LoadConfig loads the configuration from the directory named by
// --config-dir. Logging settings found in the configuration are applied
// unless the matching flag was given.
func LoadConfig(cmd *cobra.Command) (types.Config, error) {
	cfg, err := config.Load(ConfigDir(cmd))
	if err != nil {
		return types.Config{}, err
	}
	if err = applyLoggingConfig(cmd, cfg.Logging); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}

func applyLoggingConfig(cmd *cobra.Command, cfg types.Logging) error {
	// both values were validated by config.Load
	mode, _ := logger.ParseLogMode(cfg.Mode)
	level := cfg.Level
	if mode == "" && level == "" {
		return nil
	}
	if f := cmd.Flags().Lookup(LogModeFlag); f != nil && (f.Changed || mode == "") {
		mode = logger.LogMode(f.Value.String())
	}
	if f := cmd.Flags().Lookup(LogLevelFlag); f != nil && (f.Changed || level == "") {
		level = f.Value.String()
	}
	return logger.ConfigureLogging(mode, level)
}

// NewClientNode builds a node for a one-shot command. Resources it opens are
// released by the cleanup manager of the command's context.
//
// A one-shot command never starts its own embedded NATS server. It connects
// to the one a running `serve` process exposes instead, so both share the
// remote tier.
func NewClientNode(cmd *cobra.Command) (*node.Node, error) {
	cfg, err := LoadConfig(cmd)
	if err != nil {
		return nil, err
	}
	remote := &cfg.Cache.Remote
	if remote.URL == "" && remote.Embedded {
		remote.URL = fmt.Sprintf("nats://%s", net.JoinHostPort("127.0.0.1", strconv.Itoa(remote.EmbeddedPort)))
		remote.Embedded = false
	}

	ctx := cmd.Context()
	return node.NewNode(ctx, node.NodeConfig{
		Config:         cfg,
		ConfigDir:      ConfigDir(cmd),
		CleanupManager: GetCleanupManager(ctx),
	})
}
