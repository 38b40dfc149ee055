package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pintmap/internal/model"
)

type fakeSource struct {
	obs   []model.Observation
	pts   []model.Point
	err   error
	calls int
}

func (f *fakeSource) Observations(context.Context) ([]model.Observation, error) {
	f.calls++
	return f.obs, f.err
}

func (f *fakeSource) Points(context.Context) ([]model.Point, error) {
	f.calls++
	return f.pts, f.err
}

func TestLoadObservations_CacheHit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pints.csv")
	require.NoError(t, os.WriteFile(path, []byte(pintsCSV), 0o600))

	src := &fakeSource{}
	obs, err := LoadObservations(context.Background(), path, src)
	require.NoError(t, err)
	assert.Len(t, obs, 3)
	assert.Zero(t, src.calls)
}

func TestLoadObservations_CacheMissWritesCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pints.csv")
	src := &fakeSource{obs: []model.Observation{obsAt("a", 2019), obsAt("b", 2020)}}

	obs, err := LoadObservations(context.Background(), path, src)
	require.NoError(t, err)
	assert.Len(t, obs, 2)
	assert.Equal(t, 1, src.calls)

	_, err = os.Stat(path)
	require.NoError(t, err)

	again, err := LoadObservations(context.Background(), path, src)
	require.NoError(t, err)
	assert.Equal(t, obs, again)
	assert.Equal(t, 1, src.calls)
}

func TestLoadObservations_NoCacheNoSource(t *testing.T) {
	_, err := LoadObservations(context.Background(), filepath.Join(t.TempDir(), "missing.csv"), nil)
	require.Error(t, err)
	assert.True(t, model.IsDataSource(err))
}

func TestLoadObservations_RemoteFailure(t *testing.T) {
	src := &fakeSource{err: errors.New("boom")}
	path := filepath.Join(t.TempDir(), "pints.csv")

	_, err := LoadObservations(context.Background(), path, src)
	require.Error(t, err)
	assert.True(t, model.IsDataSource(err))

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestLoadObservations_ZeroRows(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadObservations(context.Background(), filepath.Join(dir, "a.csv"), &fakeSource{})
	require.Error(t, err)
	assert.True(t, model.IsDataSource(err))

	headerOnly := filepath.Join(dir, "b.csv")
	require.NoError(t, os.WriteFile(headerOnly, []byte("pub_id,name,latitude,longitude,price,creation_date\n"), 0o600))
	_, err = LoadObservations(context.Background(), headerOnly, nil)
	require.Error(t, err)
	assert.True(t, model.IsDataSource(err))
}

func TestLoadObservations_SchemaErrorFromCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pints.csv")
	require.NoError(t, os.WriteFile(path, []byte("pub_id,name\n1,a\n"), 0o600))

	_, err := LoadObservations(context.Background(), path, nil)
	require.Error(t, err)
	assert.True(t, model.IsSchema(err))
}

func TestLoadPoints(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pubs.csv")
	src := &fakeSource{pts: []model.Point{{ID: "1", Name: "Kehoes", Latitude: 53.3, Longitude: -6.2}}}

	pts, err := LoadPoints(context.Background(), path, src)
	require.NoError(t, err)
	assert.Equal(t, src.pts, pts)

	cached, err := LoadPoints(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, src.pts, cached)
}
