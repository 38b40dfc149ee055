package main

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/pintmap/internal/assign"
	"github.com/sells-group/pintmap/internal/dataset"
	"github.com/sells-group/pintmap/internal/model"
	"github.com/sells-group/pintmap/internal/pipeline"
)

var assignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Print the region each cached point falls in, as CSV",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		regions, err := pipeline.LoadRegions(cfg)
		if err != nil {
			return eris.Wrap(err, "assign")
		}
		obs, err := dataset.LoadObservations(ctx, cfg.Data.PintsPath(), nil)
		if err != nil {
			return eris.Wrap(err, "assign")
		}
		points := dataset.DistinctPoints(dataset.FilterYears(obs, cfg.Area.Years))

		a, err := pipeline.AssignPoints(ctx, points, regions, cfg.Assign, cfg.Projection.TargetCRS)
		if err != nil {
			return eris.Wrap(err, "assign")
		}

		unassignedOnly, _ := cmd.Flags().GetBool("unassigned")
		if err := writeAssignments(os.Stdout, points, a, unassignedOnly); err != nil {
			return eris.Wrap(err, "assign")
		}
		zap.L().Info("points assigned",
			zap.Int("points", a.Len()),
			zap.Int("unassigned", len(a.Unassigned())),
		)
		return nil
	},
}

func init() {
	assignCmd.Flags().Bool("unassigned", false, "only print points outside every region")
	rootCmd.AddCommand(assignCmd)
}

type assignmentRow struct {
	PointID   string  `csv:"pub_id"`
	Name      string  `csv:"name"`
	Latitude  float64 `csv:"latitude"`
	Longitude float64 `csv:"longitude"`
	Region    string  `csv:"region"`
}

func writeAssignments(out io.Writer, points []model.Point, a assign.Assignment, unassignedOnly bool) error {
	w := csv.NewWriter(out)
	enc := csvutil.NewEncoder(w)
	if err := enc.EncodeHeader(assignmentRow{}); err != nil {
		return err
	}
	for _, p := range points {
		name, ok := a.Lookup(p.ID)
		if unassignedOnly && ok {
			continue
		}
		if err := enc.Encode(assignmentRow{
			PointID:   p.ID,
			Name:      p.Name,
			Latitude:  p.Latitude,
			Longitude: p.Longitude,
			Region:    name,
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
