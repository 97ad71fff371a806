package cache

import (
	"github.com/spf13/cobra"

	"github.com/bacalhau-project/tiercache/cmd/util"
)

func NewDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete KEY",
		Short: "Remove a key from every tier",
		Long: `Remove a key from every tier.

Prints true when a live value was removed and false otherwise.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := util.NewClientNode(cmd)
			if err != nil {
				return err
			}
			cmd.Println(n.Cache.Delete(cmd.Context(), args[0]))
			return nil
		},
	}
}
