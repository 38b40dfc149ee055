package aggregate

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/pintmap/internal/assign"
	"github.com/sells-group/pintmap/internal/model"
)

func rect(code, name string, order int, minX, minY, maxX, maxY float64) model.Region {
	p := geom.NewPolygonFlat(geom.XY, []float64{
		minX, minY, minX, maxY, maxX, maxY, maxX, minY, minX, minY,
	}, []int{10})
	mp := geom.NewMultiPolygon(geom.XY)
	_ = mp.Push(p)
	return model.Region{Code: code, Name: name, Order: order, Geometry: mp}
}

func catalog() []model.Region {
	return []model.Region{
		rect("D02", "Dublin 2", 0, -6.27, 53.33, -6.24, 53.35),
		rect("D08", "Dublin 8", 1, -6.31, 53.33, -6.27, 53.35),
		rect("D06", "Dublin 6", 2, -6.31, 53.30, -6.24, 53.32),
	}
}

func points() []model.Point {
	return []model.Point{
		{ID: "p1", Latitude: 53.34, Longitude: -6.26},
		{ID: "p2", Latitude: 53.34, Longitude: -6.25},
		{ID: "p3", Latitude: 53.34, Longitude: -6.29},
		{ID: "p0", Latitude: 0, Longitude: 0},
	}
}

func observations() []model.Observation {
	return []model.Observation{
		{PointID: "p1", Price: 5.10},
		{PointID: "p1", Price: 5.20},
		{PointID: "p2", Price: 5.40},
		{PointID: "p3", Price: 6.00},
		{PointID: "p0", Price: 4.00},
		{PointID: "ghost", Price: 9.00},
	}
}

func assigned(t *testing.T) assign.Assignment {
	t.Helper()
	a, err := assign.Assign(points(), catalog(), assign.Options{})
	require.NoError(t, err)
	return a
}

func TestAggregate_RegionScenario(t *testing.T) {
	t.Parallel()
	tbl := Aggregate(catalog(), observations(), assigned(t))

	d2, ok := tbl.Get("Dublin 2")
	require.True(t, ok)
	assert.Equal(t, "D02", d2.Code)
	assert.Equal(t, 3, d2.Observations)
	assert.Equal(t, 2, d2.DistinctPoints)
	require.NotNil(t, d2.AvgPrice)
	assert.InDelta(t, 5.2333, *d2.AvgPrice, 1e-4)
	require.NotNil(t, d2.MedianPrice)
	assert.InDelta(t, 5.20, *d2.MedianPrice, 1e-12)
	assert.InDelta(t, 5.10, *d2.MinPrice, 1e-12)
	assert.InDelta(t, 5.40, *d2.MaxPrice, 1e-12)

	d8, ok := tbl.Get("Dublin 8")
	require.True(t, ok)
	assert.Equal(t, 1, d8.Observations)
	assert.InDelta(t, 6.00, *d8.AvgPrice, 1e-12)
}

func TestAggregate_ExcludesUnassignedAndUnknown(t *testing.T) {
	t.Parallel()
	tbl := Aggregate(catalog(), observations(), assigned(t))

	assert.Equal(t, 2, tbl.Excluded)
	total := 0
	for _, s := range tbl.Stats {
		total += s.Observations
	}
	assert.Equal(t, 4, total)
}

func TestAggregate_EmptyRegionIsUndefined(t *testing.T) {
	t.Parallel()
	tbl := Aggregate(catalog(), observations(), assigned(t))

	d6, ok := tbl.Get("Dublin 6")
	require.True(t, ok)
	assert.Equal(t, 0, d6.Observations)
	assert.Equal(t, 0, d6.DistinctPoints)
	assert.Nil(t, d6.AvgPrice)
	assert.Nil(t, d6.MedianPrice)
	assert.Nil(t, d6.MinPrice)
	assert.Nil(t, d6.MaxPrice)
	assert.Nil(t, d6.KnownPoints)
	assert.Nil(t, d6.CoveragePct)
}

func TestAggregate_CatalogOrder(t *testing.T) {
	t.Parallel()
	tbl := Aggregate(catalog(), nil, assigned(t))

	require.Len(t, tbl.Stats, 3)
	assert.Equal(t, "Dublin 2", tbl.Stats[0].Name)
	assert.Equal(t, "Dublin 8", tbl.Stats[1].Name)
	assert.Equal(t, "Dublin 6", tbl.Stats[2].Name)
	assert.Equal(t, 0, tbl.Excluded)

	_, ok := tbl.Get("Dublin 99")
	assert.False(t, ok)
}

func TestAggregate_EvenMedian(t *testing.T) {
	t.Parallel()
	obs := []model.Observation{
		{PointID: "p1", Price: 5.0},
		{PointID: "p2", Price: 6.0},
	}
	tbl := Aggregate(catalog(), obs, assigned(t))

	d2, _ := tbl.Get("Dublin 2")
	require.NotNil(t, d2.MedianPrice)
	assert.InDelta(t, 5.5, *d2.MedianPrice, 1e-12)
}

func TestAggregate_OrderInvariant(t *testing.T) {
	t.Parallel()
	a := assigned(t)
	base := Aggregate(catalog(), observations(), a)

	rng := rand.New(rand.NewPCG(7, 11))
	for range 20 {
		obs := observations()
		rng.Shuffle(len(obs), func(i, j int) { obs[i], obs[j] = obs[j], obs[i] })
		got := Aggregate(catalog(), obs, a)
		assert.Equal(t, base.Stats, got.Stats)
		assert.Equal(t, base.Excluded, got.Excluded)
	}
}

func TestAggregate_Idempotent(t *testing.T) {
	t.Parallel()
	a := assigned(t)
	first := Aggregate(catalog(), observations(), a)
	second := Aggregate(catalog(), observations(), a)
	assert.Equal(t, first.Stats, second.Stats)
}

func TestAggregate_Coverage(t *testing.T) {
	t.Parallel()
	known := []string{"p1", "p2", "p3", "p0", "p1"}
	extra := append(points(), model.Point{ID: "p4", Latitude: 53.34, Longitude: -6.245})
	known = append(known, "p4")
	a, err := assign.Assign(extra, catalog(), assign.Options{})
	require.NoError(t, err)

	tbl := Aggregate(catalog(), observations(), a, WithKnownPoints(known))

	d2, _ := tbl.Get("Dublin 2")
	require.NotNil(t, d2.KnownPoints)
	assert.Equal(t, 3, *d2.KnownPoints)
	require.NotNil(t, d2.CoveragePct)
	assert.InDelta(t, 100*2.0/3.0, *d2.CoveragePct, 1e-9)

	d8, _ := tbl.Get("Dublin 8")
	assert.InDelta(t, 100.0, *d8.CoveragePct, 1e-9)

	d6, _ := tbl.Get("Dublin 6")
	require.NotNil(t, d6.KnownPoints)
	assert.Equal(t, 0, *d6.KnownPoints)
	assert.Nil(t, d6.CoveragePct)
}

func TestTable_RidgelineAndPrices(t *testing.T) {
	t.Parallel()
	tbl := Aggregate(catalog(), observations(), assigned(t))

	assert.Equal(t, []float64{5.10, 5.20, 5.40}, tbl.Prices("Dublin 2"))
	assert.Nil(t, tbl.Prices("Dublin 6"))

	series := tbl.Ridgeline(2)
	require.Len(t, series, 1)
	assert.Equal(t, "Dublin 2", series[0].Name)
	assert.Len(t, series[0].Prices, 3)

	assert.Len(t, tbl.Ridgeline(0), 2)
	assert.Empty(t, tbl.Ridgeline(3))
}

func TestAggregate_TwoPubsOneRegion(t *testing.T) {
	t.Parallel()
	regions := []model.Region{rect("D02", "Dublin 2", 0, -6.27, 53.33, -6.24, 53.35)}
	pts := []model.Point{
		{ID: "P1", Latitude: 53.34, Longitude: -6.26},
		{ID: "P2", Latitude: 53.335, Longitude: -6.25},
		{ID: "P0", Latitude: 0, Longitude: 0},
	}
	obs := []model.Observation{
		{PointID: "P1", Price: 5.00},
		{PointID: "P1", Price: 5.50},
		{PointID: "P2", Price: 5.20},
		{PointID: "P0", Price: 4.80},
	}
	a, err := assign.Assign(pts, regions, assign.Options{})
	require.NoError(t, err)

	_, ok := a.Lookup("P0")
	assert.False(t, ok)

	tbl := Aggregate(regions, obs, a)
	d2, ok := tbl.Get("Dublin 2")
	require.True(t, ok)
	assert.Equal(t, 3, d2.Observations)
	assert.Equal(t, 2, d2.DistinctPoints)
	require.NotNil(t, d2.AvgPrice)
	assert.InDelta(t, 15.70/3, *d2.AvgPrice, 1e-12)
	assert.Equal(t, 1, tbl.Excluded)
}

func TestAggregate_CoverageIgnoresObservedPointsNotKnown(t *testing.T) {
	t.Parallel()
	regions := []model.Region{rect("D02", "Dublin 2", 0, -6.27, 53.33, -6.24, 53.35)}
	pts := []model.Point{
		{ID: "P1", Latitude: 53.34, Longitude: -6.26},
		{ID: "P2", Latitude: 53.34, Longitude: -6.25},
	}
	a, err := assign.Assign(pts, regions, assign.Options{})
	require.NoError(t, err)

	obs := []model.Observation{{PointID: "P1", Price: 5.0}, {PointID: "P2", Price: 5.5}}
	tbl := Aggregate(regions, obs, a, WithKnownPoints([]string{"P1"}))

	d2, ok := tbl.ByCode("D02")
	require.True(t, ok)
	assert.Equal(t, 2, d2.DistinctPoints)
	require.NotNil(t, d2.KnownPoints)
	assert.Equal(t, 1, *d2.KnownPoints)
	require.NotNil(t, d2.CoveragePct)
	assert.InDelta(t, 100.0, *d2.CoveragePct, 1e-9)
}

func TestAggregate_RegionsSharingNameStaySeparate(t *testing.T) {
	t.Parallel()
	regions := []model.Region{
		rect("A", "Same", 0, 0, 0, 1, 1),
		rect("B", "Same", 1, 2, 0, 3, 1),
	}
	a, err := assign.Assign([]model.Point{{ID: "P1", Latitude: 0.5, Longitude: 0.5}}, regions, assign.Options{})
	require.NoError(t, err)

	code, ok := a.LookupCode("P1")
	require.True(t, ok)
	assert.Equal(t, "A", code)

	tbl := Aggregate(regions, []model.Observation{{PointID: "P1", Price: 5.0}}, a)

	sa, _ := tbl.ByCode("A")
	sb, _ := tbl.ByCode("B")
	assert.Equal(t, 1, sa.Observations)
	assert.Equal(t, 0, sb.Observations)
	assert.Nil(t, sb.AvgPrice)

	total := 0
	for _, s := range tbl.Stats {
		total += s.Observations
	}
	assert.Equal(t, 1, total)
}
