package dataset

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/pintmap/internal/model"
)

// ObservationSource fetches observations from a remote provider.
type ObservationSource interface {
	Observations(ctx context.Context) ([]model.Observation, error)
}

// PointSource fetches the catalog of known points from a remote provider.
type PointSource interface {
	Points(ctx context.Context) ([]model.Point, error)
}

// LoadObservations reads observations from the CSV cache at path. When the cache is
// absent, src is queried and the result written to path. src may be nil, in which case
// a missing cache is a DataSourceError. Zero rows is also a DataSourceError.
func LoadObservations(ctx context.Context, path string, src ObservationSource) ([]model.Observation, error) {
	var fetch func(context.Context) ([]model.Observation, error)
	if src != nil {
		fetch = src.Observations
	}
	return load(ctx, path, fetch, ReadObservations, WriteObservations)
}

// LoadPoints is LoadObservations for the known-point catalog.
func LoadPoints(ctx context.Context, path string, src PointSource) ([]model.Point, error) {
	var fetch func(context.Context) ([]model.Point, error)
	if src != nil {
		fetch = src.Points
	}
	return load(ctx, path, fetch, ReadPoints, WritePoints)
}

func load[T any](
	ctx context.Context,
	path string,
	fetch func(context.Context) ([]T, error),
	read func(io.Reader, string) ([]T, error),
	write func(io.Writer, []T) error,
) ([]T, error) {
	log := zap.L().With(zap.String("component", "dataset"), zap.String("path", path))

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close() //nolint:errcheck
		rows, err := read(f, path)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, model.NewDataSourceError(path, eris.New("dataset: cache has no rows"))
		}
		log.Info("dataset: loaded from cache", zap.Int("rows", len(rows)))
		return rows, nil
	case !os.IsNotExist(err):
		return nil, model.NewDataSourceError(path, eris.Wrap(err, "dataset: open cache"))
	}

	if fetch == nil {
		return nil, model.NewDataSourceError(path, eris.New("dataset: no cache and no remote source"))
	}

	log.Info("dataset: cache miss, fetching from remote source")
	rows, err := fetch(ctx)
	if err != nil {
		return nil, model.NewDataSourceError(path, eris.Wrap(err, "dataset: fetch remote"))
	}
	if len(rows) == 0 {
		return nil, model.NewDataSourceError(path, eris.New("dataset: remote source returned no rows"))
	}

	if err := writeCache(path, rows, write); err != nil {
		return nil, err
	}
	log.Info("dataset: cache written", zap.Int("rows", len(rows)))
	return rows, nil
}

// writeCache writes rows next to path and renames into place, so an interrupted run
// never leaves a truncated cache.
func writeCache[T any](path string, rows []T, write func(io.Writer, []T) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "dataset: create cache dir for %s", path)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return eris.Wrapf(err, "dataset: create temp file for %s", path)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if err := write(tmp, rows); err != nil {
		tmp.Close() //nolint:errcheck,gosec
		return err
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "dataset: close temp file")
	}
	return eris.Wrapf(os.Rename(tmp.Name(), path), "dataset: move cache into %s", path)
}
