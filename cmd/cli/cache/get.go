// Package cache holds the one-shot commands that read and write the
// configured tiers directly.
package cache

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bacalhau-project/tiercache/cmd/util"
)

func NewGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Print the JSON value stored under a key",
		Long: `Print the JSON value stored under a key.

The command fails when no live value is stored under the key in any tier.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return get(cmd, args[0])
		},
	}
}

func get(cmd *cobra.Command, key string) error {
	n, err := util.NewClientNode(cmd)
	if err != nil {
		return err
	}
	value, ok := n.Cache.Get(cmd.Context(), key)
	if !ok {
		return fmt.Errorf("key %s not found", key)
	}
	cmd.Println(string(value))
	return nil
}
