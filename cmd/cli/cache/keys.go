package cache

import (
	"errors"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/bacalhau-project/tiercache/cmd/util"
	"github.com/bacalhau-project/tiercache/cmd/util/flags/cliflags"
	"github.com/bacalhau-project/tiercache/cmd/util/output"
)

type KeysOptions struct {
	OutputOpts output.OutputOptions
}

func NewKeysCmd() *cobra.Command {
	o := &KeysOptions{
		OutputOpts: output.OutputOptions{Format: output.TableFormat},
	}

	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "List the live keys of the local tier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := util.NewClientNode(cmd)
			if err != nil {
				return err
			}
			if n.Local == nil {
				return errors.New("no local tier configured, set Cache.Local.Path")
			}
			keys, err := n.Local.Keys(cmd.Context())
			if err != nil {
				return err
			}
			return output.Output(cmd, keysColumns, o.OutputOpts, keys)
		},
	}
	keysCmd.Flags().AddFlagSet(cliflags.OutputFormatFlags(&o.OutputOpts))
	return keysCmd
}

var keysColumns = []output.TableColumn[string]{
	{
		ColumnConfig: table.ColumnConfig{Name: "key"},
		Value:        func(k string) string { return k },
	},
}
