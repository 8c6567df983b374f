package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the tables used by PostgresStore and source.Postgres.
const Schema = `
CREATE TABLE IF NOT EXISTS index_runs (
	run_id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	kind            TEXT NOT NULL,
	category        TEXT NOT NULL DEFAULT '',
	variant         TEXT NOT NULL DEFAULT '',
	hs_code         TEXT NOT NULL DEFAULT '',
	reference       TEXT NOT NULL,
	trigger         TEXT NOT NULL,
	status          TEXT NOT NULL,
	error           TEXT NOT NULL DEFAULT '',
	error_kind      TEXT NOT NULL DEFAULT '',
	weights         JSONB,
	index_values    JSONB,
	collection_date TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS index_runs_created_at ON index_runs (created_at DESC);

CREATE TABLE IF NOT EXISTS refresh_history (
	id              UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	trigger         TEXT NOT NULL,
	status          TEXT NOT NULL,
	error           TEXT NOT NULL DEFAULT '',
	collection_date TEXT NOT NULL DEFAULT '',
	runs            INT NOT NULL DEFAULT 0,
	started_at      TIMESTAMPTZ NOT NULL,
	finished_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS factor_observations (
	factor      TEXT NOT NULL,
	entity      TEXT NOT NULL,
	value       DOUBLE PRECISION NOT NULL,
	observed_on DATE NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (factor, entity, observed_on)
);
`

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Pool exposes the connection pool so the factor source can share it.
func (s *PostgresStore) Pool() *pgxpool.Pool { return s.pool }

// Migrate applies Schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const runColumns = `run_id, kind, category, variant, hs_code, reference, trigger,
	status, error, error_kind, weights, index_values, collection_date, created_at`

func (s *PostgresStore) CreateRun(ctx context.Context, run *Run) error {
	weightsJSON, _ := json.Marshal(run.Weights)
	indexJSON, _ := json.Marshal(run.Index)

	return s.pool.QueryRow(ctx, `
		INSERT INTO index_runs (kind, category, variant, hs_code, reference, trigger,
			status, error, error_kind, weights, index_values, collection_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING run_id, created_at`,
		run.Kind, run.Category, run.Variant, run.HSCode, run.Reference, run.Trigger,
		run.Status, run.Error, run.ErrorKind, weightsJSON, indexJSON, run.CollectionDate,
	).Scan(&run.ID, &run.CreatedAt)
}

func (s *PostgresStore) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM index_runs WHERE run_id = $1`, id)
	r, err := scanRun(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error) {
	var where []string
	var args []interface{}
	argN := 1

	if filter.Kind != "" {
		where = append(where, fmt.Sprintf("kind = $%d", argN))
		args = append(args, filter.Kind)
		argN++
	}
	if filter.Category != "" {
		where = append(where, fmt.Sprintf("category = $%d", argN))
		args = append(args, filter.Category)
		argN++
	}
	if filter.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", argN))
		args = append(args, string(*filter.Status))
		argN++
	}

	query := `SELECT ` + runColumns + ` FROM index_runs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argN)
		args = append(args, filter.Limit)
		argN++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argN)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func scanRun(row pgx.Row) (*Run, error) {
	r := &Run{}
	var weightsJSON, indexJSON []byte
	err := row.Scan(
		&r.ID, &r.Kind, &r.Category, &r.Variant, &r.HSCode, &r.Reference, &r.Trigger,
		&r.Status, &r.Error, &r.ErrorKind, &weightsJSON, &indexJSON, &r.CollectionDate, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(weightsJSON) > 0 {
		_ = json.Unmarshal(weightsJSON, &r.Weights)
	}
	if len(indexJSON) > 0 {
		_ = json.Unmarshal(indexJSON, &r.Index)
	}
	return r, nil
}

func (s *PostgresStore) RecordRefresh(ctx context.Context, rec *RefreshRecord) error {
	return s.pool.QueryRow(ctx, `
		INSERT INTO refresh_history (trigger, status, error, collection_date, runs, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		rec.Trigger, rec.Status, rec.Error, rec.CollectionDate, rec.Runs, rec.StartedAt, rec.FinishedAt,
	).Scan(&rec.ID)
}

func (s *PostgresStore) ListRefreshes(ctx context.Context, limit int) ([]*RefreshRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, trigger, status, error, collection_date, runs, started_at, finished_at
		FROM refresh_history
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*RefreshRecord
	for rows.Next() {
		rec := &RefreshRecord{}
		if err := rows.Scan(&rec.ID, &rec.Trigger, &rec.Status, &rec.Error,
			&rec.CollectionDate, &rec.Runs, &rec.StartedAt, &rec.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
