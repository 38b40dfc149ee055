package render

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy/location"

	"github.com/sells-group/pintmap/internal/region"
)

// ShortName abbreviates a postal district name for map labels by collapsing the town
// to its initial: "Dublin 2" becomes "D2" and "Dublin 6 West" becomes "D6 West".
// Names without a district number are kept.
func ShortName(name string) string {
	words := strings.Fields(name)
	if len(words) < 2 || !isNumber(words[1]) {
		return name
	}
	short := string(firstRune(words[0])) + words[1]
	return strings.Join(append([]string{short}, words[2:]...), " ")
}

func isNumber(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

func firstRune(s string) rune {
	for _, r := range s {
		return unicode.ToUpper(r)
	}
	return 0
}

// RepresentativePoint returns a point guaranteed to lie inside mp, for placing a
// label. It scans the horizontal line through the middle of the largest polygon's
// bounding box and takes the midpoint of the widest interior span.
func RepresentativePoint(mp *geom.MultiPolygon) (geom.Coord, bool) {
	if mp == nil || mp.NumPolygons() == 0 {
		return nil, false
	}

	var best *geom.Polygon
	bestArea := -1.0
	for i := range mp.NumPolygons() {
		p := mp.Polygon(i)
		if a := p.Area(); a > bestArea {
			best, bestArea = p, a
		}
	}

	b := best.Bounds()
	y := (b.Min(1) + b.Max(1)) / 2
	xs := crossings(best, y)
	sort.Float64s(xs)

	var (
		found bool
		out   geom.Coord
		width float64
	)
	for i := 0; i+1 < len(xs); i += 2 {
		w := xs[i+1] - xs[i]
		mid := geom.Coord{(xs[i] + xs[i+1]) / 2, y}
		if w > width && region.Locate(mp, mid) == location.Interior {
			out, width, found = mid, w, true
		}
	}
	if found {
		return out, true
	}

	// Degenerate shapes fall back to the first vertex.
	c := best.LinearRing(0).Coord(0)
	return geom.Coord{c.X(), c.Y()}, true
}

// crossings returns the x values where the rings of p cross the line at y.
func crossings(p *geom.Polygon, y float64) []float64 {
	var xs []float64
	for r := range p.NumLinearRings() {
		ring := p.LinearRing(r)
		n := ring.NumCoords()
		for i := 0; i+1 < n; i++ {
			a, b := ring.Coord(i), ring.Coord(i+1)
			if (a.Y() > y) == (b.Y() > y) {
				continue
			}
			t := (y - a.Y()) / (b.Y() - a.Y())
			x := a.X() + t*(b.X()-a.X())
			if !math.IsNaN(x) {
				xs = append(xs, x)
			}
		}
	}
	return xs
}
