package render

import (
	"image/color"
	"math"

	"github.com/rotisserie/eris"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/sells-group/pintmap/internal/aggregate"
)

const (
	gridPoints = 200
	// overlap is how far each curve may rise into the row above, as a fraction of
	// the row height.
	overlap = 0.8
)

// Curve is the evaluated density of one region on the shared price grid.
type Curve struct {
	Name    string
	Xs      []float64
	Density []float64
}

// Curves evaluates a KDE for each series on one grid spanning every sample, padded by
// three bandwidths either side.
func Curves(series []aggregate.RidgelineSeries) []Curve {
	lo, hi := math.Inf(1), math.Inf(-1)
	bws := make([]float64, len(series))
	for i, s := range series {
		bws[i] = SilvermanBandwidth(s.Prices)
		for _, x := range s.Prices {
			lo = math.Min(lo, x-3*bws[i])
			hi = math.Max(hi, x+3*bws[i])
		}
	}
	if math.IsInf(lo, 1) {
		return nil
	}

	grid := linspace(lo, hi, gridPoints)
	out := make([]Curve, len(series))
	for i, s := range series {
		out[i] = Curve{Name: s.Name, Xs: grid, Density: Density(s.Prices, bws[i], grid)}
	}
	return out
}

// Ridgeline draws one filled density per series, first series at the top, with
// curves overlapping the row above.
func Ridgeline(series []aggregate.RidgelineSeries, title string) (*plot.Plot, error) {
	curves := Curves(series)
	if len(curves) == 0 {
		return nil, eris.New("render: ridgeline needs at least one non-empty series")
	}

	pal, err := brewer.GetPalette(brewer.TypeSequential, "YlOrBr", 3)
	if err != nil {
		return nil, eris.Wrap(err, "render: ridgeline palette")
	}
	fill := pal.Colors()[1]

	peak := 0.0
	for _, c := range curves {
		for _, d := range c.Density {
			peak = math.Max(peak, d)
		}
	}
	if peak == 0 {
		peak = 1
	}
	scale := (1 + overlap) / peak

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Price, €"
	p.Y.Label.Text = "Postal Region"

	n := len(curves)
	ticks := make([]plot.Tick, n)
	// Top rows are drawn first so lower curves sit in front.
	for i, c := range curves {
		base := float64(n - 1 - i)
		ticks[i] = plot.Tick{Value: base, Label: c.Name}

		xys := make(plotter.XYs, 0, len(c.Xs)+2)
		xys = append(xys, plotter.XY{X: c.Xs[0], Y: base})
		for k, x := range c.Xs {
			xys = append(xys, plotter.XY{X: x, Y: base + c.Density[k]*scale})
		}
		xys = append(xys, plotter.XY{X: c.Xs[len(c.Xs)-1], Y: base})

		poly, err := plotter.NewPolygon(xys)
		if err != nil {
			return nil, eris.Wrapf(err, "render: ridgeline %s", c.Name)
		}
		poly.Color = fill
		poly.LineStyle.Color = color.Black
		poly.LineStyle.Width = vg.Points(0.75)
		p.Add(poly)
	}
	p.Y.Tick.Marker = plot.ConstantTicks(ticks)
	p.Y.Min = -0.1
	p.Y.Max = float64(n) + overlap

	return p, nil
}
