package crs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"EPSG:4326", "EPSG:4326"},
		{"4326", "EPSG:4326"},
		{"epsg:2157", "EPSG:2157"},
		{" EPSG:3857 ", "EPSG:3857"},
		{"EPSG:32629", "EPSG:32629"},
		{"EPSG:32733", "EPSG:32733"},
		{"EPSG:25829", "EPSG:25829"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			p, err := Lookup(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Code())
		})
	}
}

func TestLookup_Errors(t *testing.T) {
	t.Parallel()

	for _, code := range []string{"", "EPSG:", "EPSG:abc", "EPSG:-1", "EPSG:27700", "EPSG:32661"} {
		_, err := Lookup(code)
		assert.Error(t, err, "code %q", code)
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	got, err := Normalize("2157")
	require.NoError(t, err)
	assert.Equal(t, "EPSG:2157", got)

	_, err = Normalize("EPSG:9999")
	assert.Error(t, err)
}

func irishTM(t *testing.T) Projection {
	t.Helper()
	p, err := Lookup("EPSG:2157")
	require.NoError(t, err)
	return p
}

func TestIrishTM_FalseOrigin(t *testing.T) {
	t.Parallel()

	x, y := irishTM(t).Forward(-8, 53.5)
	assert.InDelta(t, 600000, x, 1e-6)
	assert.InDelta(t, 750000, y, 1e-6)
}

func TestIrishTM_KnownPoint(t *testing.T) {
	t.Parallel()

	// The Spire on O'Connell Street, Dublin.
	x, y := irishTM(t).Forward(-6.2603, 53.3498)
	assert.InDelta(t, 715826.5, x, 1.0)
	assert.InDelta(t, 734697.6, y, 1.0)
}

func TestIrishTM_Scale(t *testing.T) {
	t.Parallel()

	itm := irishTM(t)
	x0, _ := itm.Forward(-8, 53.5)
	x1, _ := itm.Forward(-7.99, 53.5)
	assert.InDelta(t, 663.47, x1-x0, 0.05)
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	points := [][2]float64{
		{-6.2603, 53.3498},
		{-6.05, 53.6},
		{-10.2, 51.9},
		{-8, 53.5},
	}
	for _, code := range []string{"EPSG:2157", "EPSG:3857", "EPSG:32629", "EPSG:25829", "EPSG:4326"} {
		p, err := Lookup(code)
		require.NoError(t, err)
		for _, pt := range points {
			x, y := p.Forward(pt[0], pt[1])
			lon, lat := p.Inverse(x, y)
			assert.InDelta(t, pt[0], lon, 1e-8, "%s lon", code)
			assert.InDelta(t, pt[1], lat, 1e-8, "%s lat", code)
		}
	}
}

func TestUTM_CentralMeridian(t *testing.T) {
	t.Parallel()

	north, err := Lookup("EPSG:32631")
	require.NoError(t, err)
	x, y := north.Forward(3, 0)
	assert.InDelta(t, 500000, x, 1e-6)
	assert.InDelta(t, 0, y, 1e-6)

	south, err := Lookup("EPSG:32731")
	require.NoError(t, err)
	x, y = south.Forward(3, 0)
	assert.InDelta(t, 500000, x, 1e-6)
	assert.InDelta(t, 10000000, y, 1e-6)
}

func TestWebMercator(t *testing.T) {
	t.Parallel()

	p, err := Lookup("EPSG:3857")
	require.NoError(t, err)

	x, y := p.Forward(0, 0)
	assert.InDelta(t, 0, x, 1e-9)
	assert.InDelta(t, 0, y, 1e-9)

	x, _ = p.Forward(180, 0)
	assert.InDelta(t, 20037508.34, x, 0.01)
}

func TestNewTransform(t *testing.T) {
	t.Parallel()

	identity, err := NewTransform("4326", "EPSG:4326")
	require.NoError(t, err)
	x, y := identity(-6.26, 53.35)
	assert.Equal(t, -6.26, x)
	assert.Equal(t, 53.35, y)

	toGeo, err := NewTransform("EPSG:2157", WGS84)
	require.NoError(t, err)
	lon, lat := toGeo(600000, 750000)
	assert.InDelta(t, -8, lon, 1e-7)
	assert.InDelta(t, 53.5, lat, 1e-7)

	itmToUTM, err := NewTransform("EPSG:2157", "EPSG:32629")
	require.NoError(t, err)
	ux, uy := itmToUTM(715826.5, 734697.6)
	back, err := NewTransform("EPSG:32629", "EPSG:2157")
	require.NoError(t, err)
	ix, iy := back(ux, uy)
	assert.InDelta(t, 715826.5, ix, 1e-3)
	assert.InDelta(t, 734697.6, iy, 1e-3)

	_, err = NewTransform("EPSG:2157", "EPSG:1")
	assert.Error(t, err)
	_, err = NewTransform("bogus", WGS84)
	assert.Error(t, err)
}
