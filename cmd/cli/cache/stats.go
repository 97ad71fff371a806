package cache

import (
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/bacalhau-project/tiercache/cmd/util"
	"github.com/bacalhau-project/tiercache/cmd/util/flags/cliflags"
	"github.com/bacalhau-project/tiercache/cmd/util/output"
	"github.com/bacalhau-project/tiercache/pkg/publicapi/apimodels"
)

type StatsOptions struct {
	APIOpts    cliflags.APIOptions
	OutputOpts output.OutputOptions
}

func NewStatsCmd() *cobra.Command {
	o := &StatsOptions{
		OutputOpts: output.OutputOptions{Format: output.TableFormat},
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the counters of a running server's in-memory tier",
		Long: `Print the counters of the in-memory tier of a running 'tiercache serve',
together with the tiers it is configured with.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := util.GetAPIClient(cmd, o.APIOpts)
			if err != nil {
				return err
			}
			stats, err := api.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return output.OutputOne(cmd, statsColumns, o.OutputOpts, *stats)
		},
	}
	statsCmd.Flags().AddFlagSet(cliflags.APIFlags(&o.APIOpts))
	statsCmd.Flags().AddFlagSet(cliflags.OutputFormatFlags(&o.OutputOpts))
	return statsCmd
}

func uintColumn(name string, value func(apimodels.GetStatsResponse) uint64) output.TableColumn[apimodels.GetStatsResponse] {
	return output.TableColumn[apimodels.GetStatsResponse]{
		ColumnConfig: table.ColumnConfig{Name: name, Align: text.AlignRight},
		Value: func(s apimodels.GetStatsResponse) string {
			return strconv.FormatUint(value(s), 10)
		},
	}
}

var statsColumns = []output.TableColumn[apimodels.GetStatsResponse]{
	{
		ColumnConfig: table.ColumnConfig{Name: "tiers"},
		Value:        func(s apimodels.GetStatsResponse) string { return strings.Join(s.Tiers, ",") },
	},
	{
		ColumnConfig: table.ColumnConfig{Name: "size", Align: text.AlignRight},
		Value:        func(s apimodels.GetStatsResponse) string { return strconv.Itoa(s.Size) },
	},
	uintColumn("hits", func(s apimodels.GetStatsResponse) uint64 { return s.Hits }),
	uintColumn("misses", func(s apimodels.GetStatsResponse) uint64 { return s.Misses }),
	uintColumn("sets", func(s apimodels.GetStatsResponse) uint64 { return s.Sets }),
	uintColumn("deletes", func(s apimodels.GetStatsResponse) uint64 { return s.Deletes }),
	uintColumn("evictions", func(s apimodels.GetStatsResponse) uint64 { return s.Evictions }),
	{
		ColumnConfig: table.ColumnConfig{Name: "hit rate", Align: text.AlignRight},
		Value:        func(s apimodels.GetStatsResponse) string { return strconv.FormatFloat(s.HitRate, 'f', 2, 64) },
	},
}
