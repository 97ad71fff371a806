package cache

import (
	"github.com/spf13/cobra"

	"github.com/bacalhau-project/tiercache/cmd/util"
)

func NewClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every entry from every tier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := util.NewClientNode(cmd)
			if err != nil {
				return err
			}
			n.Cache.Clear(cmd.Context())
			return nil
		},
	}
}
