package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/pintmap/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck,gosec
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id                    TEXT PRIMARY KEY,
	started_at            DATETIME NOT NULL,
	completed_at          DATETIME NOT NULL,
	area                  TEXT NOT NULL,
	years                 TEXT NOT NULL,
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
	avg_price      REAL,
	median_price   REAL,
	min_price      REAL,
	max_price      REAL,
	n_points       INTEGER NOT NULL,
	n_known_points INTEGER,
	coverage_pct   REAL,
	PRIMARY KEY (run_id, ord)
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run model.Run, stats []model.RegionStats) error {
	years, err := json.Marshal(run.Years)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal years")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, completed_at, area, years, target_crs, regions,
			observations, points, unassigned_points, excluded_observations)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC(), run.CompletedAt.UTC(), run.Area, string(years), run.TargetCRS,
		run.Regions, run.Observations, run.Points, run.UnassignedPoints, run.ExcludedObservations,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
	}

	insert := `INSERT INTO region_stats (` + strings.Join(statsColumns, ", ") + `) VALUES (` +
		strings.TrimSuffix(strings.Repeat("?, ", len(statsColumns)), ", ") + `)`
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare stats insert")
	}
	defer stmt.Close() //nolint:errcheck

	for i, st := range stats {
		if _, err := stmt.ExecContext(ctx, statsRow(run.ID, i, st)...); err != nil {
			return eris.Wrapf(err, "sqlite: insert stats %s/%s", run.ID, st.Code)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit run")
}

const sqliteRunColumns = `id, started_at, completed_at, area, years, target_crs, regions,
	observations, points, unassigned_points, excluded_observations`

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteRunColumns+` FROM runs WHERE id = ?`, id)
	return s.record(ctx, row)
}

func (s *SQLiteStore) LatestRun(ctx context.Context) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteRunColumns+` FROM runs ORDER BY started_at DESC, id DESC LIMIT 1`)
	return s.record(ctx, row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteRunColumns+` FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

func (s *SQLiteStore) record(ctx context.Context, row *sql.Row) (*Record, error) {
	run, err := scanRun(row)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT code, name, n_observations, avg_price, median_price, min_price, max_price,
			n_points, n_known_points, coverage_pct
		 FROM region_stats WHERE run_id = ? ORDER BY ord`, run.ID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query stats for %s", run.ID)
	}
	defer rows.Close() //nolint:errcheck

	rec := &Record{Run: *run}
	for rows.Next() {
		var st model.RegionStats
		if err := rows.Scan(&st.Code, &st.Name, &st.Observations, &st.AvgPrice, &st.MedianPrice,
			&st.MinPrice, &st.MaxPrice, &st.DistinctPoints, &st.KnownPoints, &st.CoveragePct); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan stats")
		}
		rec.Stats = append(rec.Stats, st)
	}
	return rec, eris.Wrap(rows.Err(), "sqlite: iterate stats")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*model.Run, error) {
	var (
		run   model.Run
		years string
	)
	err := row.Scan(&run.ID, &run.StartedAt, &run.CompletedAt, &run.Area, &years, &run.TargetCRS,
		&run.Regions, &run.Observations, &run.Points, &run.UnassignedPoints, &run.ExcludedObservations)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	if err := json.Unmarshal([]byte(years), &run.Years); err != nil {
		return nil, eris.Wrapf(err, "sqlite: parse years for %s", run.ID)
	}
	run.StartedAt = run.StartedAt.UTC()
	run.CompletedAt = run.CompletedAt.UTC()
	return &run, nil
}

var _ Store = (*SQLiteStore)(nil)
