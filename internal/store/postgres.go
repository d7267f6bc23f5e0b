package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/clinic-pipeline/internal/db"
	"github.com/sells-group/clinic-pipeline/internal/geo"
	"github.com/sells-group/clinic-pipeline/internal/model"
	"github.com/sells-group/clinic-pipeline/internal/provenance"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
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

	maxConns := int32(10)
	minConns := int32(2)
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
	if err := db.Retry(ctx, db.DefaultRetryConfig(), "postgres: ping", pool.Ping); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE EXTENSION IF NOT EXISTS postgis;

CREATE TABLE IF NOT EXISTS clinics (
	id                     BIGINT PRIMARY KEY,
	google_place_id        TEXT,
	yelp_business_id       TEXT,
	name                   TEXT NOT NULL,
	address                TEXT NOT NULL DEFAULT '',
	city                   TEXT NOT NULL DEFAULT '',
	state                  TEXT NOT NULL DEFAULT '',
	zip_code               TEXT NOT NULL DEFAULT '',
	phone                  TEXT NOT NULL DEFAULT '',
	website                TEXT NOT NULL DEFAULT '',
	latitude               DOUBLE PRECISION,
	longitude              DOUBLE PRECISION,
	location               geometry(Point, 4326),
	clinic_type            TEXT NOT NULL DEFAULT '',
	categories             TEXT[],
	google_rating          DOUBLE PRECISION,
	google_review_count    INTEGER,
	yelp_rating            DOUBLE PRECISION,
	yelp_review_count      INTEGER,
	combined_rating        DOUBLE PRECISION,
	combined_review_count  INTEGER,
	data_source            TEXT NOT NULL DEFAULT '',
	rating_category        TEXT NOT NULL DEFAULT '',
	review_volume_category TEXT NOT NULL DEFAULT '',
	is_active              BOOLEAN NOT NULL DEFAULT true,
	merged_into            BIGINT,
	data_quality_score     INTEGER,
	created_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT clinics_google_place_id_key UNIQUE (google_place_id) DEFERRABLE INITIALLY DEFERRED,
	CONSTRAINT clinics_yelp_business_id_key UNIQUE (yelp_business_id) DEFERRABLE INITIALLY DEFERRED
);

CREATE TABLE IF NOT EXISTS reviews (
	id              BIGINT PRIMARY KEY,
	clinic_id       BIGINT NOT NULL REFERENCES clinics(id),
	source          TEXT NOT NULL DEFAULT '',
	rating          DOUBLE PRECISION NOT NULL,
	text            TEXT NOT NULL DEFAULT '',
	author          TEXT NOT NULL DEFAULT '',
	published_at    TIMESTAMPTZ NOT NULL,
	sentiment_label TEXT NOT NULL DEFAULT '',
	sentiment_score DOUBLE PRECISION
);

CREATE TABLE IF NOT EXISTS visibility_scores (
	id        BIGINT PRIMARY KEY,
	clinic_id BIGINT NOT NULL REFERENCES clinics(id),
	date      DATE NOT NULL,
	query     TEXT NOT NULL DEFAULT '',
	rank      INTEGER NOT NULL DEFAULT 0,
	score     DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS provenance (
	clinic_id       BIGINT NOT NULL,
	field           TEXT NOT NULL,
	method          TEXT NOT NULL,
	value           TEXT NOT NULL,
	distance_meters DOUBLE PRECISION,
	neighbor_count  INTEGER NOT NULL DEFAULT 0,
	confidence      DOUBLE PRECISION NOT NULL DEFAULT 0,
	run_id          TEXT NOT NULL,
	recorded_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (clinic_id, field)
);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL DEFAULT 'running',
	dry_run     BOOLEAN NOT NULL DEFAULT false,
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ,
	phases      JSONB,
	error       TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_clinics_location ON clinics USING GIST (location);
CREATE INDEX IF NOT EXISTS idx_clinics_zip_code ON clinics(zip_code);
CREATE INDEX IF NOT EXISTS idx_reviews_clinic_id ON reviews(clinic_id);
CREATE INDEX IF NOT EXISTS idx_visibility_scores_clinic_id ON visibility_scores(clinic_id);
CREATE INDEX IF NOT EXISTS idx_provenance_run_id ON provenance(run_id);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) LoadDataset(ctx context.Context) (*model.Dataset, error) {
	ds := &model.Dataset{}

	rows, err := s.pool.Query(ctx,
		`SELECT `+strings.Join(clinicColumns, ", ")+` FROM clinics ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load clinics")
	}
	for rows.Next() {
		var cats []string
		c, err := scanClinic(rows, &cats)
		if err != nil {
			rows.Close()
			return nil, eris.Wrap(err, "postgres: scan clinic")
		}
		c.Categories = cats
		ds.Clinics = append(ds.Clinics, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: load clinics iterate")
	}

	rows, err = s.pool.Query(ctx,
		`SELECT `+strings.Join(reviewColumns, ", ")+` FROM reviews ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load reviews")
	}
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			rows.Close()
			return nil, eris.Wrap(err, "postgres: scan review")
		}
		ds.Reviews = append(ds.Reviews, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: load reviews iterate")
	}

	rows, err = s.pool.Query(ctx,
		`SELECT `+strings.Join(visibilityColumns, ", ")+` FROM visibility_scores ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load visibility scores")
	}
	for rows.Next() {
		v, err := scanVisibility(rows)
		if err != nil {
			rows.Close()
			return nil, eris.Wrap(err, "postgres: scan visibility score")
		}
		ds.Visibility = append(ds.Visibility, v)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: load visibility iterate")
	}
	return ds, nil
}

// SaveDataset upserts every clinic and child record in one transaction.
// Source-identifier uniqueness is checked at commit, so identifiers can
// move between clinics within a save. Rows absent from ds are left in place.
func (s *PostgresStore) SaveDataset(ctx context.Context, ds *model.Dataset) error {
	clinicRows := make([][]any, 0, len(ds.Clinics))
	for _, c := range ds.Clinics {
		row := clinicValues(c, c.Categories)
		loc, err := clinicLocation(c)
		if err != nil {
			return err
		}
		clinicRows = append(clinicRows, append(row, loc))
	}
	reviewRows := make([][]any, 0, len(ds.Reviews))
	for _, r := range ds.Reviews {
		reviewRows = append(reviewRows, reviewValues(r))
	}
	visRows := make([][]any, 0, len(ds.Visibility))
	for _, v := range ds.Visibility {
		visRows = append(visRows, visibilityValues(v))
	}

	return db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		batches := []struct {
			cfg  db.UpsertConfig
			rows [][]any
		}{
			{db.UpsertConfig{Table: "clinics", Columns: append(append([]string(nil), clinicColumns...), "location"), ConflictKeys: []string{"id"}}, clinicRows},
			{db.UpsertConfig{Table: "reviews", Columns: reviewColumns, ConflictKeys: []string{"id"}}, reviewRows},
			{db.UpsertConfig{Table: "visibility_scores", Columns: visibilityColumns, ConflictKeys: []string{"id"}}, visRows},
		}
		for _, b := range batches {
			n, err := db.BulkUpsert(ctx, tx, b.cfg, b.rows)
			if err != nil {
				return eris.Wrapf(err, "postgres: save %s", b.cfg.Table)
			}
			zap.L().Debug("postgres: upserted rows", zap.String("table", b.cfg.Table), zap.Int64("rows", n))
		}
		return nil
	})
}

// clinicLocation encodes the clinic coordinates for the geometry column.
// Missing or invalid coordinates store NULL.
func clinicLocation(c *model.Clinic) (any, error) {
	p, ok := geo.FromPtr(c.Latitude, c.Longitude)
	if !ok || !p.Valid() {
		return nil, nil
	}
	data, err := geo.EncodeEWKB(p)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: encode location for clinic %d", c.ID)
	}
	return data, nil
}

func (s *PostgresStore) LoadProvenance(ctx context.Context) ([]provenance.Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+strings.Join(provenanceColumns, ", ")+` FROM provenance ORDER BY clinic_id, field`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load provenance")
	}
	defer rows.Close()

	var out []provenance.Entry
	for rows.Next() {
		e, err := scanProvenance(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan provenance")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "postgres: load provenance iterate")
}

// SaveProvenance replaces the stored ledger with entries using COPY.
func (s *PostgresStore) SaveProvenance(ctx context.Context, entries []provenance.Entry) error {
	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, provenanceValues(e))
	}
	return db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM provenance`); err != nil {
			return eris.Wrap(err, "postgres: clear provenance")
		}
		_, err := db.CopyFrom(ctx, tx, "provenance", provenanceColumns, rows)
		return err
	})
}

func (s *PostgresStore) SaveRun(ctx context.Context, run *model.Run) error {
	phases, err := json.Marshal(run.Phases)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal phases")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, status, dry_run, started_at, finished_at, phases, error)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
		   status = EXCLUDED.status, finished_at = EXCLUDED.finished_at,
		   phases = EXCLUDED.phases, error = EXCLUDED.error`,
		run.ID, string(run.Status), run.DryRun, run.StartedAt.UTC(), finishedAt(run.FinishedAt),
		phases, run.Error,
	)
	return eris.Wrapf(err, "postgres: save run %s", run.ID)
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, status, dry_run, started_at, finished_at, phases, error FROM runs WHERE id = $1`, runID)
	r, err := scanPostgresRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrRunNotFound, "postgres: get run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, status, dry_run, started_at, finished_at, phases, error FROM runs WHERE 1=1`
	var args []any
	argN := 1

	if filter.Status != "" {
		query += ` AND status = $` + strconv.Itoa(argN)
		args = append(args, string(filter.Status))
		argN++
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += ` LIMIT $` + strconv.Itoa(argN)
	args = append(args, limit)
	argN++

	if filter.Offset > 0 {
		query += ` OFFSET $` + strconv.Itoa(argN)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPostgresRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func scanPostgresRun(row scannable) (*model.Run, error) {
	var (
		r      model.Run
		status string
		phases []byte
	)
	if err := row.Scan(&r.ID, &status, &r.DryRun, &r.StartedAt, &r.FinishedAt, &phases, &r.Error); err != nil {
		return nil, err
	}
	r.Status = model.RunStatus(status)
	if len(phases) > 0 {
		if err := json.Unmarshal(phases, &r.Phases); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal phases")
		}
	}
	return &r, nil
}
