package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/pintmap/internal/db"
	"github.com/sells-group/pintmap/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id                    TEXT PRIMARY KEY,
	started_at            TIMESTAMPTZ NOT NULL,
	completed_at          TIMESTAMPTZ NOT NULL,
	area                  TEXT NOT NULL,
	years                 INTEGER[] NOT NULL DEFAULT '{}',
	target_crs            TEXT NOT NULL,
	regions               INTEGER NOT NULL,
	observations          INTEGER NOT NULL,
	points                INTEGER NOT NULL,
	unassigned_points     INTEGER NOT NULL,
	excluded_observations INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS region_stats (
	run_id         TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	ord            INTEGER NOT NULL,
	code           TEXT NOT NULL,
	name           TEXT NOT NULL,
	n_observations INTEGER NOT NULL,
	avg_price      DOUBLE PRECISION,
	median_price   DOUBLE PRECISION,
	min_price      DOUBLE PRECISION,
	max_price      DOUBLE PRECISION,
	n_points       INTEGER NOT NULL,
	n_known_points INTEGER,
	coverage_pct   DOUBLE PRECISION,
	PRIMARY KEY (run_id, ord)
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const insertRunSQL = `INSERT INTO runs (id, started_at, completed_at, area, years, target_crs, regions,
	observations, points, unassigned_points, excluded_observations)
 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

func (s *PostgresStore) SaveRun(ctx context.Context, run model.Run, stats []model.RegionStats) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	years := run.Years
	if years == nil {
		years = []int{}
	}
	if _, err := tx.Exec(ctx, insertRunSQL,
		run.ID, run.StartedAt.UTC(), run.CompletedAt.UTC(), run.Area, years, run.TargetCRS,
		run.Regions, run.Observations, run.Points, run.UnassignedPoints, run.ExcludedObservations,
	); err != nil {
		return eris.Wrapf(err, "postgres: insert run %s", run.ID)
	}

	rows := make([][]any, len(stats))
	for i, st := range stats {
		rows[i] = statsRow(run.ID, i, st)
	}
	if _, err := db.CopyFrom(ctx, tx, "region_stats", statsColumns, rows); err != nil {
		return eris.Wrapf(err, "postgres: copy stats for %s", run.ID)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit run")
}

const pgRunColumns = `id, started_at, completed_at, area, years, target_crs, regions,
	observations, points, unassigned_points, excluded_observations`

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*Record, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pgRunColumns+` FROM runs WHERE id = $1`, id)
	return s.record(ctx, row)
}

func (s *PostgresStore) LatestRun(ctx context.Context) (*Record, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pgRunColumns+` FROM runs ORDER BY started_at DESC, id DESC LIMIT 1`)
	return s.record(ctx, row)
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgRunColumns+` FROM runs ORDER BY started_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var out []model.Run
	for rows.Next() {
		run, err := scanPgRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate runs")
}

func (s *PostgresStore) record(ctx context.Context, row pgx.Row) (*Record, error) {
	run, err := scanPgRun(row)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT code, name, n_observations, avg_price, median_price, min_price, max_price,
			n_points, n_known_points, coverage_pct
		 FROM region_stats WHERE run_id = $1 ORDER BY ord`, run.ID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: query stats for %s", run.ID)
	}
	defer rows.Close()

	rec := &Record{Run: *run}
	for rows.Next() {
		var st model.RegionStats
		if err := rows.Scan(&st.Code, &st.Name, &st.Observations, &st.AvgPrice, &st.MedianPrice,
			&st.MinPrice, &st.MaxPrice, &st.DistinctPoints, &st.KnownPoints, &st.CoveragePct); err != nil {
			return nil, eris.Wrap(err, "postgres: scan stats")
		}
		rec.Stats = append(rec.Stats, st)
	}
	return rec, eris.Wrap(rows.Err(), "postgres: iterate stats")
}

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var run model.Run
	err := row.Scan(&run.ID, &run.StartedAt, &run.CompletedAt, &run.Area, &run.Years, &run.TargetCRS,
		&run.Regions, &run.Observations, &run.Points, &run.UnassignedPoints, &run.ExcludedObservations)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get run")
	}
	run.StartedAt = run.StartedAt.UTC()
	run.CompletedAt = run.CompletedAt.UTC()
	return &run, nil
}

var _ Store = (*PostgresStore)(nil)
