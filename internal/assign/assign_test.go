package assign

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/pintmap/internal/crs"
	"github.com/sells-group/pintmap/internal/model"
)

// rect builds a single-polygon region from a clockwise rectangle.
func rect(code, name string, order int, minX, minY, maxX, maxY float64) model.Region {
	flat := []float64{minX, minY, minX, maxY, maxX, maxY, maxX, minY, minX, minY}
	mp := geom.NewMultiPolygon(geom.XY)
	if err := mp.Push(geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})); err != nil {
		panic(err)
	}
	return model.Region{Code: code, Name: name, Order: order, Geometry: mp}
}

// grid is two adjacent regions sharing the edge lon = -6.26.
func grid() []model.Region {
	return []model.Region{
		rect("D02", "Dublin 2", 0, -6.27, 53.33, -6.26, 53.34),
		rect("D08", "Dublin 8", 1, -6.26, 53.33, -6.25, 53.34),
	}
}

func pt(id string, lat, lon float64) model.Point {
	return model.Point{ID: id, Latitude: lat, Longitude: lon}
}

func TestAssign_StrictlyInside(t *testing.T) {
	a, err := Assign([]model.Point{
		pt("P1", 53.335, -6.265),
		pt("P2", 53.338, -6.262),
		pt("P3", 53.335, -6.255),
	}, grid(), Options{})
	require.NoError(t, err)

	name, ok := a.Lookup("P1")
	assert.True(t, ok)
	assert.Equal(t, "Dublin 2", name)

	name, ok = a.Lookup("P2")
	assert.True(t, ok)
	assert.Equal(t, "Dublin 2", name)

	name, ok = a.Lookup("P3")
	assert.True(t, ok)
	assert.Equal(t, "Dublin 8", name)

	assert.Equal(t, 3, a.Len())
	assert.Empty(t, a.Unassigned())
	assert.Equal(t, map[string]int{"Dublin 2": 2, "Dublin 8": 1}, a.Counts())
}

func TestAssign_OutsideIsUnassigned(t *testing.T) {
	a, err := Assign([]model.Point{
		pt("origin", 0, 0),
		pt("north", 54.0, -6.26),
	}, grid(), Options{})
	require.NoError(t, err)

	_, ok := a.Lookup("origin")
	assert.False(t, ok)
	_, ok = a.Lookup("north")
	assert.False(t, ok)
	assert.True(t, a.Known("origin"))
	assert.False(t, a.Known("never-seen"))
	assert.Equal(t, []string{"north", "origin"}, a.Unassigned())
	assert.Equal(t, 0, a.Len())
}

func TestAssign_SharedEdgeInclusiveTakesFirstInCatalogOrder(t *testing.T) {
	edge := pt("edge", 53.335, -6.26)

	a, err := Assign([]model.Point{edge}, grid(), Options{Boundary: BoundaryInclusive})
	require.NoError(t, err)
	name, ok := a.Lookup("edge")
	require.True(t, ok)
	assert.Equal(t, "Dublin 2", name)

	// Reversing catalog order flips the tie-break.
	regions := grid()
	regions[0], regions[1] = regions[1], regions[0]
	a, err = Assign([]model.Point{edge}, regions, Options{})
	require.NoError(t, err)
	name, ok = a.Lookup("edge")
	require.True(t, ok)
	assert.Equal(t, "Dublin 8", name)
}

func TestAssign_SharedEdgeExclusiveIsUnassigned(t *testing.T) {
	a, err := Assign([]model.Point{
		pt("edge", 53.335, -6.26),
		pt("corner", 53.33, -6.27),
		pt("inside", 53.335, -6.265),
	}, grid(), Options{Boundary: BoundaryExclusive})
	require.NoError(t, err)

	_, ok := a.Lookup("edge")
	assert.False(t, ok)
	_, ok = a.Lookup("corner")
	assert.False(t, ok)
	name, ok := a.Lookup("inside")
	assert.True(t, ok)
	assert.Equal(t, "Dublin 2", name)
}

func TestAssign_OuterEdgeInclusive(t *testing.T) {
	a, err := Assign([]model.Point{pt("west-edge", 53.335, -6.27)}, grid(), Options{})
	require.NoError(t, err)
	name, ok := a.Lookup("west-edge")
	require.True(t, ok)
	assert.Equal(t, "Dublin 2", name)
}

func TestAssign_OverlapTakesFirst(t *testing.T) {
	regions := []model.Region{
		rect("A", "First", 0, 0, 0, 2, 2),
		rect("B", "Second", 1, 1, 1, 3, 3),
	}
	a, err := Assign([]model.Point{pt("both", 1.5, 1.5)}, regions, Options{})
	require.NoError(t, err)
	name, _ := a.Lookup("both")
	assert.Equal(t, "First", name)
}

func TestAssign_DuplicatePointIDFirstWins(t *testing.T) {
	a, err := Assign([]model.Point{
		pt("P1", 53.335, -6.265),
		pt("P1", 53.335, -6.255),
	}, grid(), Options{})
	require.NoError(t, err)
	name, _ := a.Lookup("P1")
	assert.Equal(t, "Dublin 2", name)
	assert.Equal(t, 1, a.Len())
}

func TestAssign_ProjectsPoints(t *testing.T) {
	itm, err := crs.Lookup("EPSG:2157")
	require.NoError(t, err)
	minX, minY := itm.Forward(-6.27, 53.33)
	maxX, maxY := itm.Forward(-6.25, 53.34)
	regions := []model.Region{rect("D02", "Dublin 2", 0, minX, minY, maxX, maxY)}

	a, err := Assign([]model.Point{pt("P1", 53.335, -6.26)}, regions, Options{TargetCRS: "EPSG:2157"})
	require.NoError(t, err)
	name, ok := a.Lookup("P1")
	require.True(t, ok)
	assert.Equal(t, "Dublin 2", name)
}

func TestAssign_Errors(t *testing.T) {
	_, err := Assign(nil, grid(), Options{Boundary: "sometimes"})
	assert.Error(t, err)

	_, err = Assign(nil, grid(), Options{TargetCRS: "EPSG:1"})
	assert.Error(t, err)
}

func TestAssign_NoRegions(t *testing.T) {
	a, err := Assign([]model.Point{pt("P1", 53.335, -6.265)}, nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"P1"}, a.Unassigned())
}

func TestParseBoundary(t *testing.T) {
	b, err := ParseBoundary("")
	require.NoError(t, err)
	assert.Equal(t, BoundaryInclusive, b)

	b, err = ParseBoundary("exclusive")
	require.NoError(t, err)
	assert.Equal(t, BoundaryExclusive, b)

	_, err = ParseBoundary("EXCLUSIVE")
	assert.Error(t, err)
}

func TestAssignParallel_MatchesSequential(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	points := make([]model.Point, 2000)
	for i := range points {
		points[i] = pt(fmt.Sprintf("P%04d", i), 53.325+rng.Float64()*0.02, -6.275+rng.Float64()*0.03)
	}

	seq, err := Assign(points, grid(), Options{})
	require.NoError(t, err)

	for _, workers := range []int{0, 1, 3, 8} {
		par, err := AssignParallel(context.Background(), points, grid(), workers, Options{})
		require.NoError(t, err)
		assert.Equal(t, seq, par, "workers=%d", workers)
	}
}

func TestAssignParallel_Cancelled(t *testing.T) {
	points := make([]model.Point, 1000)
	for i := range points {
		points[i] = pt(fmt.Sprintf("P%d", i), 53.335, -6.265)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := AssignParallel(ctx, points, grid(), 4, Options{})
	assert.Error(t, err)
}
