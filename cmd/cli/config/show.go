package config

import (
	"github.com/spf13/cobra"

	"github.com/bacalhau-project/tiercache/cmd/util"
	"github.com/bacalhau-project/tiercache/cmd/util/flags/cliflags"
	"github.com/bacalhau-project/tiercache/cmd/util/output"
)

func newShowCmd() *cobra.Command {
	o := output.NonTabularOutputOptions{Format: output.YAMLFormat}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration.",
		Long: `Show the configuration a command would run with: the defaults, overridden
by config.yaml in the config directory, overridden by TIERCACHE_ environment
variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := util.LoadConfig(cmd)
			if err != nil {
				return err
			}
			return output.OutputOneNonTabular(cmd, o, cfg)
		},
	}
	showCmd.Flags().AddFlagSet(cliflags.OutputNonTabularFormatFlags(&o))
	return showCmd
}
