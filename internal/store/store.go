// Package store persists run history: one row per run plus its region statistics.
package store

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/pintmap/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("store: run not found")

// Record is a stored run with its statistics in catalog order.
type Record struct {
	Run   model.Run           `json:"run"`
	Stats []model.RegionStats `json:"stats"`
}

// Store defines the persistence interface for analysis runs.
type Store interface {
	Migrate(ctx context.Context) error
	SaveRun(ctx context.Context, run model.Run, stats []model.RegionStats) error
	GetRun(ctx context.Context, id string) (*Record, error)
	LatestRun(ctx context.Context) (*Record, error)
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)
	Close() error
}

// Driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// Open connects the configured driver and runs migrations. DriverNone returns a nil
// Store and no error.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	var (
		s   Store
		err error
	)
	switch driver {
	case DriverNone, "":
		return nil, nil
	case DriverSQLite:
		s, err = NewSQLite(dsn)
	case DriverPostgres:
		s, err = NewPostgres(ctx, dsn, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// IsNotFound reports whether err is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// statsColumns are the region_stats columns after run_id, in insert order.
var statsColumns = []string{
	"run_id", "ord", "code", "name", "n_observations", "avg_price", "median_price",
	"min_price", "max_price", "n_points", "n_known_points", "coverage_pct",
}

func statsRow(runID string, ord int, s model.RegionStats) []any {
	return []any{
		runID, ord, s.Code, s.Name, s.Observations, s.AvgPrice, s.MedianPrice,
		s.MinPrice, s.MaxPrice, s.DistinctPoints, s.KnownPoints, s.CoveragePct,
	}
}
