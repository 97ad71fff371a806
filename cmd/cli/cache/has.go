package cache

import (
	"github.com/spf13/cobra"

	"github.com/bacalhau-project/tiercache/cmd/util"
)

func NewHasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "has KEY",
		Short: "Report whether a live value is stored under a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := util.NewClientNode(cmd)
			if err != nil {
				return err
			}
			cmd.Println(n.Cache.Has(cmd.Context(), args[0]))
			return nil
		},
	}
}
