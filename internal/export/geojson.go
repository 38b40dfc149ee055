package export

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/pintmap/internal/aggregate"
	"github.com/sells-group/pintmap/internal/crs"
	"github.com/sells-group/pintmap/internal/model"
)

// FeatureCollection builds one feature per region with its statistics as
// properties. Geometry in sourceCRS is reprojected to EPSG:4326; missing statistics
// are JSON null.
func FeatureCollection(regions []model.Region, table *aggregate.Table, sourceCRS string) (*geojson.FeatureCollection, error) {
	if sourceCRS == "" {
		sourceCRS = crs.WGS84
	}
	toWGS84, err := crs.NewTransform(sourceCRS, crs.WGS84)
	if err != nil {
		return nil, eris.Wrap(err, "export: geojson projection")
	}

	fc := &geojson.FeatureCollection{}
	for _, r := range regions {
		stats, ok := table.ByCode(r.Code)
		if !ok {
			stats = model.RegionStats{Code: r.Code, Name: r.Name}
		}
		f := &geojson.Feature{
			ID:         r.Code,
			Properties: statsProperties(stats),
		}
		if r.Geometry != nil {
			f.Geometry = transformMultiPolygon(r.Geometry, toWGS84)
		}
		fc.Features = append(fc.Features, f)
	}
	return fc, nil
}

// WriteGeoJSON writes the FeatureCollection to path.
func WriteGeoJSON(path string, regions []model.Region, table *aggregate.Table, sourceCRS string) error {
	fc, err := FeatureCollection(regions, table, sourceCRS)
	if err != nil {
		return err
	}
	data, err := json.Marshal(fc)
	if err != nil {
		return eris.Wrap(err, "export: marshal geojson")
	}

	f, err := createFile(path)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return eris.Wrapf(err, "export: write %s", path)
	}
	return eris.Wrap(f.Close(), "export: close geojson")
}

func transformMultiPolygon(mp *geom.MultiPolygon, t crs.Transform) *geom.MultiPolygon {
	flat := append([]float64(nil), mp.FlatCoords()...)
	stride := mp.Stride()
	for i := 0; i+1 < len(flat); i += stride {
		flat[i], flat[i+1] = t(flat[i], flat[i+1])
	}
	return geom.NewMultiPolygonFlat(mp.Layout(), flat, mp.Endss())
}

func statsProperties(s model.RegionStats) map[string]any {
	return map[string]any{
		"code":           s.Code,
		"name":           s.Name,
		"n_observations": s.Observations,
		"avg_price":      s.AvgPrice,
		"median_price":   s.MedianPrice,
		"min_price":      s.MinPrice,
		"max_price":      s.MaxPrice,
		"n_points":       s.DistinctPoints,
		"n_known_points": s.KnownPoints,
		"coverage_pct":   s.CoveragePct,
	}
}
