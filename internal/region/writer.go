package region

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/sells-group/pintmap/internal/model"
)

// Save writes regions to a polygon shapefile with code and name attributes, one record
// per region. Shells are written clockwise and holes counter-clockwise so the file
// round-trips through Load.
func Save(path string, regions []model.Region, opts Options) error {
	opts.setDefaults()

	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return eris.Wrapf(err, "region: create shapefile %s", path)
	}
	defer w.Close()

	if err := w.SetFields([]shp.Field{
		shp.StringField(opts.CodeField, 10),
		shp.StringField(opts.NameField, 64),
	}); err != nil {
		return eris.Wrap(err, "region: set shapefile fields")
	}

	for _, r := range regions {
		parts := shapeParts(r.Geometry)
		if len(parts) == 0 {
			return eris.Errorf("region: %s has no geometry", r.Code)
		}
		poly := shp.Polygon(*shp.NewPolyLine(parts))
		row := int(w.Write(&poly))
		if err := w.WriteAttribute(row, 0, r.Code); err != nil {
			return eris.Wrapf(err, "region: write code for %s", r.Code)
		}
		if err := w.WriteAttribute(row, 1, r.Name); err != nil {
			return eris.Wrapf(err, "region: write name for %s", r.Code)
		}
	}
	return nil
}

func shapeParts(mp *geom.MultiPolygon) [][]shp.Point {
	if mp == nil {
		return nil
	}
	var parts [][]shp.Point
	for i := 0; i < mp.NumPolygons(); i++ {
		p := mp.Polygon(i)
		for j := 0; j < p.NumLinearRings(); j++ {
			flat := p.LinearRing(j).FlatCoords()
			ccw := xy.IsRingCounterClockwise(geom.XY, flat)
			// shells clockwise, holes counter-clockwise
			reverse := (j == 0 && ccw) || (j > 0 && !ccw)
			parts = append(parts, toShpPoints(flat, reverse))
		}
	}
	return parts
}

func toShpPoints(flat []float64, reverse bool) []shp.Point {
	n := len(flat) / 2
	pts := make([]shp.Point, n)
	for i := 0; i < n; i++ {
		k := i
		if reverse {
			k = n - 1 - i
		}
		pts[i] = shp.Point{X: flat[2*k], Y: flat[2*k+1]}
	}
	return pts
}
