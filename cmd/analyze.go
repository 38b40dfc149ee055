package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/pintmap/internal/model"
	"github.com/sells-group/pintmap/internal/pipeline"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run one aggregation pass and write all artifacts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		noRender, _ := cmd.Flags().GetBool("no-render")
		noStore, _ := cmd.Flags().GetBool("no-store")
		offline, _ := cmd.Flags().GetBool("offline")
		if out, _ := cmd.Flags().GetString("output"); out != "" {
			cfg.Output.Dir = out
		}

		var opts []pipeline.Option
		if !offline {
			src := newGuindexSource(cfg)
			opts = append(opts, pipeline.WithObservationSource(src), pipeline.WithPointSource(src))
		}
		if cfg.Render.Enabled && !noRender {
			opts = append(opts, pipeline.WithRenderer(newRenderer(cfg)))
		}
		if !noStore {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			if st != nil {
				defer st.Close() //nolint:errcheck
				opts = append(opts, pipeline.WithStore(st))
			}
		}

		res, err := pipeline.New(cfg, opts...).Run(ctx)
		if err != nil {
			return eris.Wrap(err, "analyze")
		}

		formatStatsTable(os.Stdout, res.Table.Stats)
		_, _ = fmt.Fprintf(os.Stdout, "\nrun %s: %d observations, %d points (%d unassigned), %d artifacts in %s\n",
			res.Run.ID, res.Run.Observations, res.Run.Points, res.Run.UnassignedPoints,
			len(res.Artifacts), cfg.Output.Dir)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().Bool("no-render", false, "skip PNG rendering")
	analyzeCmd.Flags().Bool("no-store", false, "do not record the run in the store")
	analyzeCmd.Flags().Bool("offline", false, "use local caches only")
	analyzeCmd.Flags().String("output", "", "output directory (default from config)")
	rootCmd.AddCommand(analyzeCmd)
}

// formatStatsTable writes the per-region table to w. Undefined values print as "-".
func formatStatsTable(out io.Writer, stats []model.RegionStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CODE\tNAME\tN_OBS\tAVG\tMEDIAN\tMIN\tMAX\tN_POINTS\tCOVERAGE")
	for _, s := range stats {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%s\t%d\t%s\n",
			s.Code, s.Name, s.Observations,
			price(s.AvgPrice), price(s.MedianPrice), price(s.MinPrice), price(s.MaxPrice),
			s.DistinctPoints, percent(s.CoveragePct),
		)
	}
	_ = w.Flush()
}

func price(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}

func percent(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", *v)
}
