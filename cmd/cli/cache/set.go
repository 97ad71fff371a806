package cache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/bacalhau-project/tiercache/cmd/util"
	"github.com/bacalhau-project/tiercache/cmd/util/flags"
	"github.com/bacalhau-project/tiercache/pkg/node"
)

type SetOptions struct {
	TTL time.Duration
}

func NewSetCmd() *cobra.Command {
	o := &SetOptions{}

	setCmd := &cobra.Command{
		Use:   "set KEY [JSON]",
		Short: "Store a JSON value under a key in every tier",
		Long: `Store a JSON value under a key in every tier.

The value is read from standard input when it is not given as an argument.`,
		Example: `  tiercache set user:1 '{"name":"ada"}' --ttl 10m
  echo '[1,2,3]' | tiercache set numbers`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, args)
		},
	}
	setCmd.Flags().Var(flags.TTLFlag(&o.TTL), "ttl",
		`How long the value lives, e.g. 30s or 1h. Defaults to the configured TTL.`)
	return setCmd
}

func (o *SetOptions) run(cmd *cobra.Command, args []string) error {
	key := args[0]

	var raw []byte
	if len(args) == 2 {
		raw = []byte(args[1])
	} else {
		var err error
		raw, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read value from stdin: %w", err)
		}
	}
	var value bytes.Buffer
	if err := json.Compact(&value, raw); err != nil {
		return fmt.Errorf("value for key %s is not valid JSON: %w", key, err)
	}

	n, err := util.NewClientNode(cmd)
	if err != nil {
		return err
	}
	n.Cache.Set(cmd.Context(), key, node.Value(value.Bytes()), o.TTL)
	return nil
}
