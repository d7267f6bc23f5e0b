package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/clinic-pipeline/internal/model"
	"github.com/sells-group/clinic-pipeline/internal/provenance"
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
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS clinics (
	id                     INTEGER PRIMARY KEY,
	google_place_id        TEXT,
	yelp_business_id       TEXT,
	name                   TEXT NOT NULL,
	address                TEXT NOT NULL DEFAULT '',
	city                   TEXT NOT NULL DEFAULT '',
	state                  TEXT NOT NULL DEFAULT '',
	zip_code               TEXT NOT NULL DEFAULT '',
	phone                  TEXT NOT NULL DEFAULT '',
	website                TEXT NOT NULL DEFAULT '',
	latitude               REAL,
	longitude              REAL,
	clinic_type            TEXT NOT NULL DEFAULT '',
	categories             TEXT,
	google_rating          REAL,
	google_review_count    INTEGER,
	yelp_rating            REAL,
	yelp_review_count      INTEGER,
	combined_rating        REAL,
	combined_review_count  INTEGER,
	data_source            TEXT NOT NULL DEFAULT '',
	rating_category        TEXT NOT NULL DEFAULT '',
	review_volume_category TEXT NOT NULL DEFAULT '',
	is_active              BOOLEAN NOT NULL DEFAULT 1,
	merged_into            INTEGER,
	data_quality_score     INTEGER,
	created_at             DATETIME NOT NULL,
	updated_at             DATETIME NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_clinics_google_place_id ON clinics(google_place_id) WHERE google_place_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS idx_clinics_yelp_business_id ON clinics(yelp_business_id) WHERE yelp_business_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS reviews (
	id              INTEGER PRIMARY KEY,
	clinic_id       INTEGER NOT NULL REFERENCES clinics(id),
	source          TEXT NOT NULL DEFAULT '',
	rating          REAL NOT NULL,
	text            TEXT NOT NULL DEFAULT '',
	author          TEXT NOT NULL DEFAULT '',
	published_at    DATETIME NOT NULL,
	sentiment_label TEXT NOT NULL DEFAULT '',
	sentiment_score REAL
);

CREATE TABLE IF NOT EXISTS visibility_scores (
	id        INTEGER PRIMARY KEY,
	clinic_id INTEGER NOT NULL REFERENCES clinics(id),
	date      DATETIME NOT NULL,
	query     TEXT NOT NULL DEFAULT '',
	rank      INTEGER NOT NULL DEFAULT 0,
	score     REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS provenance (
	clinic_id       INTEGER NOT NULL,
	field           TEXT NOT NULL,
	method          TEXT NOT NULL,
	value           TEXT NOT NULL,
	distance_meters REAL,
	neighbor_count  INTEGER NOT NULL DEFAULT 0,
	confidence      REAL NOT NULL DEFAULT 0,
	run_id          TEXT NOT NULL,
	recorded_at     DATETIME NOT NULL,
	PRIMARY KEY (clinic_id, field)
);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL DEFAULT 'running',
	dry_run     BOOLEAN NOT NULL DEFAULT 0,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME,
	phases      TEXT,
	error       TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_reviews_clinic_id ON reviews(clinic_id);
CREATE INDEX IF NOT EXISTS idx_visibility_scores_clinic_id ON visibility_scores(clinic_id);
CREATE INDEX IF NOT EXISTS idx_provenance_run_id ON provenance(run_id);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) LoadDataset(ctx context.Context) (*model.Dataset, error) {
	ds := &model.Dataset{}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+strings.Join(clinicColumns, ", ")+` FROM clinics ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load clinics")
	}
	for rows.Next() {
		var cats sql.NullString
		c, err := scanClinic(rows, &cats)
		if err != nil {
			rows.Close() //nolint:errcheck
			return nil, eris.Wrap(err, "sqlite: scan clinic")
		}
		if cats.Valid && cats.String != "" {
			if err := json.Unmarshal([]byte(cats.String), &c.Categories); err != nil {
				rows.Close() //nolint:errcheck
				return nil, eris.Wrapf(err, "sqlite: unmarshal categories for clinic %d", c.ID)
			}
		}
		ds.Clinics = append(ds.Clinics, c)
	}
	if err := closeRows(rows, "sqlite: load clinics iterate"); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT `+strings.Join(reviewColumns, ", ")+` FROM reviews ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load reviews")
	}
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			rows.Close() //nolint:errcheck
			return nil, eris.Wrap(err, "sqlite: scan review")
		}
		ds.Reviews = append(ds.Reviews, r)
	}
	if err := closeRows(rows, "sqlite: load reviews iterate"); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT `+strings.Join(visibilityColumns, ", ")+` FROM visibility_scores ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load visibility scores")
	}
	for rows.Next() {
		v, err := scanVisibility(rows)
		if err != nil {
			rows.Close() //nolint:errcheck
			return nil, eris.Wrap(err, "sqlite: scan visibility score")
		}
		ds.Visibility = append(ds.Visibility, v)
	}
	if err := closeRows(rows, "sqlite: load visibility iterate"); err != nil {
		return nil, err
	}
	return ds, nil
}

// SaveDataset replaces the stored dataset with ds in one transaction.
func (s *SQLiteStore) SaveDataset(ctx context.Context, ds *model.Dataset) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"visibility_scores", "reviews", "clinics"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
				return eris.Wrapf(err, "sqlite: clear %s", table)
			}
		}

		clinics := make([][]any, 0, len(ds.Clinics))
		for _, c := range ds.Clinics {
			var cats any
			if len(c.Categories) > 0 {
				b, err := json.Marshal(c.Categories)
				if err != nil {
					return eris.Wrapf(err, "sqlite: marshal categories for clinic %d", c.ID)
				}
				cats = string(b)
			}
			clinics = append(clinics, clinicValues(c, cats))
		}
		if err := insertRows(ctx, tx, "clinics", clinicColumns, clinics); err != nil {
			return err
		}

		reviews := make([][]any, 0, len(ds.Reviews))
		for _, r := range ds.Reviews {
			reviews = append(reviews, reviewValues(r))
		}
		if err := insertRows(ctx, tx, "reviews", reviewColumns, reviews); err != nil {
			return err
		}

		vis := make([][]any, 0, len(ds.Visibility))
		for _, v := range ds.Visibility {
			vis = append(vis, visibilityValues(v))
		}
		return insertRows(ctx, tx, "visibility_scores", visibilityColumns, vis)
	})
}

func (s *SQLiteStore) LoadProvenance(ctx context.Context) ([]provenance.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+strings.Join(provenanceColumns, ", ")+` FROM provenance ORDER BY clinic_id, field`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load provenance")
	}
	defer rows.Close() //nolint:errcheck

	var out []provenance.Entry
	for rows.Next() {
		e, err := scanProvenance(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan provenance")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: load provenance iterate")
}

// SaveProvenance replaces the stored ledger with entries.
func (s *SQLiteStore) SaveProvenance(ctx context.Context, entries []provenance.Entry) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM provenance`); err != nil {
			return eris.Wrap(err, "sqlite: clear provenance")
		}
		rows := make([][]any, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, provenanceValues(e))
		}
		return insertRows(ctx, tx, "provenance", provenanceColumns, rows)
	})
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *model.Run) error {
	phases, err := json.Marshal(run.Phases)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal phases")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, dry_run, started_at, finished_at, phases, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   status = excluded.status, finished_at = excluded.finished_at,
		   phases = excluded.phases, error = excluded.error`,
		run.ID, string(run.Status), run.DryRun, run.StartedAt.UTC(), finishedAt(run.FinishedAt),
		string(phases), run.Error,
	)
	return eris.Wrapf(err, "sqlite: save run %s", run.ID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, dry_run, started_at, finished_at, phases, error FROM runs WHERE id = ?`, runID)
	r, err := scanSQLiteRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrRunNotFound, "sqlite: get run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	return r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, status, dry_run, started_at, finished_at, phases, error FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanSQLiteRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit tx")
}

// insertRows inserts rows through one prepared statement.
func insertRows(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	stmt, err := tx.PrepareContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, table, strings.Join(columns, ", "), placeholders))
	if err != nil {
		return eris.Wrapf(err, "sqlite: prepare insert %s", table)
	}
	defer stmt.Close() //nolint:errcheck

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return eris.Wrapf(err, "sqlite: insert %s", table)
		}
	}
	return nil
}

func closeRows(rows *sql.Rows, msg string) error {
	if err := rows.Err(); err != nil {
		rows.Close() //nolint:errcheck
		return eris.Wrap(err, msg)
	}
	return eris.Wrap(rows.Close(), msg)
}

func scanSQLiteRun(row scannable) (*model.Run, error) {
	var (
		r      model.Run
		status string
		phases sql.NullString
	)
	if err := row.Scan(&r.ID, &status, &r.DryRun, &r.StartedAt, &r.FinishedAt, &phases, &r.Error); err != nil {
		return nil, err
	}
	r.Status = model.RunStatus(status)
	if phases.Valid && phases.String != "" {
		if err := json.Unmarshal([]byte(phases.String), &r.Phases); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal phases")
		}
	}
	return &r, nil
}
