package config

import (
	"github.com/spf13/cobra"

	"github.com/bacalhau-project/tiercache/cmd/util/flags/cliflags"
	"github.com/bacalhau-project/tiercache/cmd/util/output"
	"github.com/bacalhau-project/tiercache/pkg/config/types"
)

func newDefaultCmd() *cobra.Command {
	o := output.NonTabularOutputOptions{Format: output.YAMLFormat}

	defaultCmd := &cobra.Command{
		Use:   "default",
		Short: "Show the default configuration.",
		Long: `Show the default configuration. The output is a valid config.yaml to start
from.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return output.OutputOneNonTabular(cmd, o, types.Default)
		},
	}
	defaultCmd.Flags().AddFlagSet(cliflags.OutputNonTabularFormatFlags(&o))
	return defaultCmd
}
