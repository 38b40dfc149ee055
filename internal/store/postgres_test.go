package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresWithPool(mock), mock
}

var runCols = []string{
	"id", "started_at", "completed_at", "area", "years", "target_crs", "regions",
	"observations", "points", "unassigned_points", "excluded_observations",
}

var statCols = []string{
	"code", "name", "n_observations", "avg_price", "median_price", "min_price", "max_price",
	"n_points", "n_known_points", "coverage_pct",
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS runs`).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	run := sampleRun("run-1", started)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs("run-1", started, run.CompletedAt, "Dublin", []int{2017, 2018}, "EPSG:4326", 2, 10, 4, 1, 2).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"region_stats"}, statsColumns).WillReturnResult(2)
	mock.ExpectCommit()

	require.NoError(t, s.SaveRun(context.Background(), run, sampleStats()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRun_InsertFails(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO runs`).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := s.SaveRun(context.Background(), sampleRun("run-1", time.Now()), sampleStats())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert run run-1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, started_at, .* FROM runs WHERE id = \$1`).
		WithArgs("run-1").
		WillReturnRows(mock.NewRows(runCols).AddRow(
			"run-1", started, started.Add(time.Second), "Dublin", []int{2018}, "EPSG:4326", 2, 10, 4, 1, 2,
		))
	mock.ExpectQuery(`FROM region_stats WHERE run_id = \$1 ORDER BY ord`).
		WithArgs("run-1").
		WillReturnRows(mock.NewRows(statCols).
			AddRow("D02", "Dublin 2", 3, ptr(5.2333), ptr(5.2), ptr(5.1), ptr(5.4), 2, ptr(4), ptr(50.0)).
			AddRow("D06", "Dublin 6", 0, (*float64)(nil), (*float64)(nil), (*float64)(nil), (*float64)(nil), 0, (*int)(nil), (*float64)(nil)))

	rec, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", rec.Run.ID)
	assert.Equal(t, []int{2018}, rec.Run.Years)
	require.Len(t, rec.Stats, 2)
	assert.Equal(t, sampleStats(), rec.Stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM runs ORDER BY started_at DESC, id DESC LIMIT \$1`).
		WithArgs(50).
		WillReturnRows(mock.NewRows(runCols).
			AddRow("b", started.Add(time.Hour), started.Add(time.Hour), "Dublin", []int{}, "EPSG:4326", 1, 1, 1, 0, 0).
			AddRow("a", started, started, "Dublin", []int{}, "EPSG:4326", 1, 1, 1, 0, 0))

	runs, err := s.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "b", runs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
