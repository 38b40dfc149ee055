// Package render draws the ridgeline price plot and choropleth maps.
package render

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gonum.org/v1/plot/vg"

	"github.com/sells-group/pintmap/internal/aggregate"
	"github.com/sells-group/pintmap/internal/export"
	"github.com/sells-group/pintmap/internal/model"
)

// Renderer produces image artifacts for one run.
type Renderer interface {
	Render(regions []model.Region, table *aggregate.Table) ([]export.Artifact, error)
}

// Options configures the PlotRenderer.
type Options struct {
	Dir    string
	Labels bool
	// Width and Height are in inches.
	Width  float64
	Height float64
	// MinRidgelineObservations excludes regions with this many observations or fewer
	// from the ridgeline plot.
	MinRidgelineObservations int
	// Area is used in titles, e.g. "Dublin".
	Area string
}

// PlotRenderer renders with gonum/plot.
type PlotRenderer struct {
	opts Options
}

// NewPlotRenderer returns a PlotRenderer with defaults applied.
func NewPlotRenderer(opts Options) *PlotRenderer {
	if opts.Width <= 0 {
		opts.Width = 16
	}
	if opts.Height <= 0 {
		opts.Height = 9
	}
	return &PlotRenderer{opts: opts}
}

// Render writes the ridgeline plot and one choropleth per map metric.
func (r *PlotRenderer) Render(regions []model.Region, table *aggregate.Table) ([]export.Artifact, error) {
	if err := os.MkdirAll(r.opts.Dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "render: create output dir %s", r.opts.Dir)
	}
	w, h := vg.Length(r.opts.Width)*vg.Inch, vg.Length(r.opts.Height)*vg.Inch

	var out []export.Artifact

	series := table.Ridgeline(r.opts.MinRidgelineObservations)
	if len(series) > 0 {
		p, err := Ridgeline(series, r.title())
		if err != nil {
			return nil, err
		}
		path := filepath.Join(r.opts.Dir, "ridgeline_pints.png")
		if err := p.Save(w, h, path); err != nil {
			return nil, eris.Wrapf(err, "render: save %s", path)
		}
		out = append(out, export.Artifact{Kind: "ridgeline", Path: path})
	} else {
		zap.L().Warn("render: no region has enough observations for a ridgeline plot",
			zap.Int("min_observations", r.opts.MinRidgelineObservations),
		)
	}

	for _, m := range Maps {
		p, err := Choropleth(regions, table, m, r.opts.Labels)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(r.opts.Dir, m.File)
		if err := p.Save(w, h, path); err != nil {
			return nil, eris.Wrapf(err, "render: save %s", path)
		}
		out = append(out, export.Artifact{Kind: "map_" + string(m.Metric), Path: path})
	}
	return out, nil
}

func (r *PlotRenderer) title() string {
	if r.opts.Area == "" {
		return "Pint Prices by Postal Region"
	}
	return "Pint Prices in " + r.opts.Area + " by Postal Region"
}
