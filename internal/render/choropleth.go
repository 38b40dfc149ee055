package render

import (
	"fmt"
	"image/color"
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/sells-group/pintmap/internal/aggregate"
	"github.com/sells-group/pintmap/internal/model"
)

// Map describes one choropleth.
type Map struct {
	Metric  model.Metric
	Palette string
	Label   string
	File    string
}

// Maps are the choropleths Render draws.
var Maps = []Map{
	{Metric: model.MetricAvgPrice, Palette: "YlOrRd", Label: "Average Pint Price, €", File: "average_price_map.png"},
	{Metric: model.MetricObservations, Palette: "YlGnBu", Label: "Number of Pints Submitted", File: "n_pints_map.png"},
	{Metric: model.MetricPoints, Palette: "YlGn", Label: "Number of Pubs with Pint Submissions", File: "n_pubs_map.png"},
	{Metric: model.MetricCoverage, Palette: "PuBu", Label: "Pubs with Submissions, %", File: "coverage_map.png"},
}

const numClasses = 7

// NoData fills regions without a defined value.
var NoData = color.RGBA{R: 211, G: 211, B: 211, A: 255}

// Classes bins defined values into n equal-width classes between the minimum and
// maximum. It returns the class index per value, -1 for undefined, and the class
// boundaries.
func Classes(values []float64, defined []bool, n int) ([]int, []float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, v := range values {
		if defined[i] {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	idx := make([]int, len(values))
	if math.IsInf(lo, 1) {
		for i := range idx {
			idx[i] = -1
		}
		return idx, nil
	}

	breaks := make([]float64, n+1)
	for i := range breaks {
		breaks[i] = lo + (hi-lo)*float64(i)/float64(n)
	}
	for i, v := range values {
		if !defined[i] {
			idx[i] = -1
			continue
		}
		if hi == lo {
			idx[i] = n - 1
			continue
		}
		c := int(float64(n) * (v - lo) / (hi - lo))
		idx[i] = min(c, n-1)
	}
	return idx, breaks
}

// Choropleth draws regions filled by the class of their metric value.
func Choropleth(regions []model.Region, table *aggregate.Table, m Map, labels bool) (*plot.Plot, error) {
	pal, err := brewer.GetPalette(brewer.TypeSequential, m.Palette, numClasses)
	if err != nil {
		return nil, eris.Wrapf(err, "render: palette %s", m.Palette)
	}
	colors := pal.Colors()

	values := make([]float64, len(regions))
	defined := make([]bool, len(regions))
	for i, r := range regions {
		if s, ok := table.ByCode(r.Code); ok {
			values[i], defined[i] = s.Value(m.Metric)
		}
	}
	classes, breaks := Classes(values, defined, numClasses)

	p := plot.New()
	p.Title.Text = m.Label
	p.HideAxes()

	var (
		labelXYs  plotter.XYs
		labelText []string
	)
	for i, r := range regions {
		if r.Geometry == nil {
			continue
		}
		fill := color.Color(NoData)
		if classes[i] >= 0 {
			fill = colors[classes[i]]
		}
		for j := range r.Geometry.NumPolygons() {
			poly, err := polygonPlotter(r.Geometry.Polygon(j), fill)
			if err != nil {
				return nil, eris.Wrapf(err, "render: region %s", r.Code)
			}
			p.Add(poly)
		}
		if labels {
			if c, ok := RepresentativePoint(r.Geometry); ok {
				labelXYs = append(labelXYs, plotter.XY{X: c.X(), Y: c.Y()})
				labelText = append(labelText, ShortName(r.Name))
			}
		}
	}

	if len(labelXYs) > 0 {
		l, err := plotter.NewLabels(plotter.XYLabels{XYs: labelXYs, Labels: labelText})
		if err != nil {
			return nil, eris.Wrap(err, "render: labels")
		}
		for i := range l.TextStyle {
			l.TextStyle[i].XAlign = draw.XCenter
			l.TextStyle[i].YAlign = draw.YCenter
			l.TextStyle[i].Font.Size = vg.Points(8)
		}
		p.Add(l)
	}

	addLegend(p, colors, breaks)
	return p, nil
}

func addLegend(p *plot.Plot, colors []color.Color, breaks []float64) {
	p.Legend.Top = true
	for i := 0; i+1 < len(breaks); i++ {
		p.Legend.Add(fmt.Sprintf("%.4g - %.4g", breaks[i], breaks[i+1]), swatch(colors[i]))
	}
	p.Legend.Add("No data", swatch(NoData))
}

func swatch(c color.Color) *plotter.Polygon {
	poly, _ := plotter.NewPolygon(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}})
	poly.Color = c
	return poly
}

func polygonPlotter(pg *geom.Polygon, fill color.Color) (*plotter.Polygon, error) {
	rings := make([]plotter.XYer, pg.NumLinearRings())
	for i := range rings {
		ring := pg.LinearRing(i)
		xys := make(plotter.XYs, ring.NumCoords())
		for k := range xys {
			c := ring.Coord(k)
			xys[k] = plotter.XY{X: c.X(), Y: c.Y()}
		}
		rings[i] = xys
	}
	poly, err := plotter.NewPolygon(rings...)
	if err != nil {
		return nil, err
	}
	poly.Color = fill
	poly.LineStyle.Color = color.Black
	poly.LineStyle.Width = vg.Points(0.5)
	return poly, nil
}
