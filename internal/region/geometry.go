package region

import (
	"github.com/jonas-p/go-shp"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geom/xy/location"
	"go.uber.org/zap"

	"github.com/sells-group/pintmap/internal/crs"
)

// polygonParts splits a polygon shape into its rings. Only polygon shape types are
// accepted; the Z and M variants are flattened to XY.
func polygonParts(shape shp.Shape) ([][]shp.Point, bool) {
	var parts []int32
	var points []shp.Point

	switch s := shape.(type) {
	case *shp.Polygon:
		parts, points = s.Parts, s.Points
	case *shp.PolygonZ:
		parts, points = s.Parts, s.Points
	case *shp.PolygonM:
		parts, points = s.Parts, s.Points
	default:
		return nil, false
	}
	if len(parts) == 0 || len(points) == 0 {
		return nil, false
	}

	rings := make([][]shp.Point, 0, len(parts))
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || end > int32(len(points)) || start >= end {
			continue
		}
		rings = append(rings, points[start:end])
	}
	return rings, len(rings) > 0
}

// ring is a closed flat XY coordinate sequence.
type ring []float64

func closeRing(pts []shp.Point) ring {
	flat := make(ring, 0, 2*len(pts)+2)
	for _, p := range pts {
		flat = append(flat, p.X, p.Y)
	}
	n := len(flat)
	if n >= 2 && (flat[0] != flat[n-2] || flat[1] != flat[n-1]) {
		flat = append(flat, flat[0], flat[1])
	}
	return flat
}

// usable reports whether r has at least three distinct vertices plus the closing one.
func (r ring) usable() bool {
	return len(r) >= 8
}

func (r ring) first() geom.Coord {
	return geom.Coord{r[0], r[1]}
}

type shell struct {
	outer ring
	holes []ring
}

// buildPolygons groups rings into polygons. Shapefiles store shells clockwise and holes
// counter-clockwise; a hole is attached to the first shell that contains its first
// vertex, and a hole that no shell contains is promoted to a shell. Orientation is
// decided on source coordinates, then every vertex is passed through transform.
func buildPolygons(parts [][]shp.Point, transform crs.Transform) []*geom.Polygon {
	var shells []*shell
	var holes []ring

	for i, pts := range parts {
		r := closeRing(pts)
		if !r.usable() {
			zap.L().Debug("region: skipping degenerate ring", zap.Int("part", i), zap.Int("coords", len(r)/2))
			continue
		}
		if xy.IsRingCounterClockwise(geom.XY, r) {
			holes = append(holes, r)
		} else {
			shells = append(shells, &shell{outer: r})
		}
	}

	for _, h := range holes {
		placed := false
		for _, s := range shells {
			if xy.IsPointInRing(geom.XY, h.first(), s.outer) {
				s.holes = append(s.holes, h)
				placed = true
				break
			}
		}
		if !placed {
			shells = append(shells, &shell{outer: h})
		}
	}

	polys := make([]*geom.Polygon, 0, len(shells))
	for _, s := range shells {
		var flat []float64
		var ends []int
		for _, r := range append([]ring{s.outer}, s.holes...) {
			for j := 0; j < len(r); j += 2 {
				x, y := transform(r[j], r[j+1])
				flat = append(flat, x, y)
			}
			ends = append(ends, len(flat))
		}
		polys = append(polys, geom.NewPolygonFlat(geom.XY, flat, ends))
	}
	return polys
}

// Locate classifies c against a multipolygon. A coordinate is Interior when it lies
// inside a shell and outside every hole of that shell, Boundary when it lies on any
// ring edge of a polygon it is not interior to, and Exterior otherwise.
func Locate(mp *geom.MultiPolygon, c geom.Coord) location.Type {
	if mp == nil {
		return location.Exterior
	}
	onBoundary := false
	for i := 0; i < mp.NumPolygons(); i++ {
		switch locatePolygon(mp.Polygon(i), c) {
		case location.Interior:
			return location.Interior
		case location.Boundary:
			onBoundary = true
		}
	}
	if onBoundary {
		return location.Boundary
	}
	return location.Exterior
}

func locatePolygon(p *geom.Polygon, c geom.Coord) location.Type {
	if p.NumLinearRings() == 0 {
		return location.Exterior
	}
	if !inBounds(p.Bounds(), c) {
		return location.Exterior
	}

	loc := xy.LocatePointInRing(geom.XY, c, p.LinearRing(0).FlatCoords())
	if loc != location.Interior {
		return loc
	}
	for i := 1; i < p.NumLinearRings(); i++ {
		switch xy.LocatePointInRing(geom.XY, c, p.LinearRing(i).FlatCoords()) {
		case location.Interior:
			return location.Exterior
		case location.Boundary:
			return location.Boundary
		}
	}
	return location.Interior
}

// inBounds is an inclusive bounding box check.
func inBounds(b *geom.Bounds, c geom.Coord) bool {
	return c[0] >= b.Min(0) && c[0] <= b.Max(0) && c[1] >= b.Min(1) && c[1] <= b.Max(1)
}
