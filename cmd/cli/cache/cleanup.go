package cache

import (
	"github.com/spf13/cobra"

	"github.com/bacalhau-project/tiercache/cmd/util"
	"github.com/bacalhau-project/tiercache/cmd/util/flags/cliflags"
)

func NewCleanupCmd() *cobra.Command {
	o := cliflags.APIOptions{}

	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Sweep expired entries from a running server's in-memory tier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := util.GetAPIClient(cmd, o)
			if err != nil {
				return err
			}
			res, err := api.Cleanup(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("removed %d expired entries\n", res.Removed)
			return nil
		},
	}
	cleanupCmd.Flags().AddFlagSet(cliflags.APIFlags(&o))
	return cleanupCmd
}
