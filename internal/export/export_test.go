package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/pintmap/internal/aggregate"
	"github.com/sells-group/pintmap/internal/assign"
	"github.com/sells-group/pintmap/internal/crs"
	"github.com/sells-group/pintmap/internal/model"
)

func square(code, name string, minX, minY, maxX, maxY float64) model.Region {
	p := geom.NewPolygonFlat(geom.XY, []float64{
		minX, minY, minX, maxY, maxX, maxY, maxX, minY, minX, minY,
	}, []int{10})
	mp := geom.NewMultiPolygon(geom.XY)
	_ = mp.Push(p)
	return model.Region{Code: code, Name: name, Geometry: mp}
}

func fixture(t *testing.T) ([]model.Region, *aggregate.Table) {
	t.Helper()
	regions := []model.Region{
		square("D02", "Dublin 2", -6.27, 53.33, -6.24, 53.35),
		square("D06", "Dublin 6", -6.31, 53.30, -6.24, 53.32),
	}
	pts := []model.Point{{ID: "a", Latitude: 53.34, Longitude: -6.26}}
	a, err := assign.Assign(pts, regions, assign.Options{})
	require.NoError(t, err)
	obs := []model.Observation{{PointID: "a", Price: 5.0}, {PointID: "a", Price: 6.0}}
	return regions, aggregate.Aggregate(regions, obs, a)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("xlsx")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = ParseFormat("pdf")
	assert.Error(t, err)
}

func TestWriteStatsCSV(t *testing.T) {
	_, table := fixture(t)
	path := filepath.Join(t.TempDir(), "out", "stats.csv")
	require.NoError(t, WriteStatsCSV(path, table))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "code,name,n_observations,avg_price,median_price,min_price,max_price,n_points,n_known_points,coverage_pct", lines[0])
	assert.Equal(t, "D02,Dublin 2,2,5.5,5.5,5,6,1,,", lines[1])
	assert.Equal(t, "D06,Dublin 6,0,,,,,0,,", lines[2])
}

func TestWriteStatsXLSX(t *testing.T) {
	_, table := fixture(t)
	path := filepath.Join(t.TempDir(), "stats.xlsx")
	require.NoError(t, WriteStatsXLSX(path, table))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	sheet, ok := f.Sheet[SheetName]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "code", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "Dublin 2", sheet.Rows[1].Cells[1].String())

	avg, err := sheet.Rows[1].Cells[3].Float()
	require.NoError(t, err)
	assert.InDelta(t, 5.5, avg, 1e-9)
	assert.Equal(t, "", sheet.Rows[2].Cells[3].String())
}

func TestWriteGeoJSON(t *testing.T) {
	regions, table := fixture(t)
	path := filepath.Join(t.TempDir(), "regions.geojson")
	require.NoError(t, WriteGeoJSON(path, regions, table, ""))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var fc geojson.FeatureCollection
	require.NoError(t, json.Unmarshal(data, &fc))
	require.Len(t, fc.Features, 2)
	assert.Equal(t, "D02", fc.Features[0].ID)
	assert.Equal(t, "Dublin 2", fc.Features[0].Properties["name"])
	assert.InDelta(t, 5.5, fc.Features[0].Properties["avg_price"], 1e-9)
	assert.Nil(t, fc.Features[1].Properties["avg_price"])
	assert.Nil(t, fc.Features[1].Properties["coverage_pct"])
	_, isMulti := fc.Features[0].Geometry.(*geom.MultiPolygon)
	assert.True(t, isMulti)
}

func TestFeatureCollection_ReprojectsToWGS84(t *testing.T) {
	itm, err := crs.NewTransform(crs.WGS84, "EPSG:2157")
	require.NoError(t, err)
	x0, y0 := itm(-6.27, 53.33)
	x1, y1 := itm(-6.24, 53.35)
	regions := []model.Region{square("D02", "Dublin 2", x0, y0, x1, y1)}
	table := aggregate.Aggregate(regions, nil, assign.Assignment{})

	fc, err := FeatureCollection(regions, table, "EPSG:2157")
	require.NoError(t, err)
	mp := fc.Features[0].Geometry.(*geom.MultiPolygon)
	first := mp.Polygon(0).LinearRing(0).Coord(0)
	assert.InDelta(t, -6.27, first.X(), 1e-6)
	assert.InDelta(t, 53.33, first.Y(), 1e-6)
}

func TestWriteAll(t *testing.T) {
	regions, table := fixture(t)
	dir := filepath.Join(t.TempDir(), "out")

	artifacts, err := WriteAll(regions, table, Options{
		Dir:     dir,
		Formats: []Format{FormatCSV, FormatXLSX, FormatGeoJSON},
	})
	require.NoError(t, err)
	require.Len(t, artifacts, 3)
	for _, a := range artifacts {
		_, err := os.Stat(a.Path)
		assert.NoError(t, err, a.Kind)
	}
	assert.Equal(t, "geojson", artifacts[2].Kind)
}

func TestManifestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	run := model.Run{
		ID:        "run-1",
		StartedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Area:      "Dublin",
		Years:     []int{2019, 2020},
		TargetCRS: "EPSG:4326",
		Regions:   2,
	}
	arts := []Artifact{{Kind: "csv", Path: "out/region_stats.csv"}}
	require.NoError(t, WriteManifest(path, run, arts))

	m, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, run.ID, m.Run.ID)
	assert.True(t, run.StartedAt.Equal(m.Run.StartedAt))
	assert.Equal(t, run.Years, m.Run.Years)
	assert.Equal(t, arts, m.Artifacts)
}
