package source

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeSquared-Agency/TariffIndex/internal/index"
)

// Postgres reads the latest observation per entity from the
// factor_observations table:
//
//	CREATE TABLE factor_observations (
//	    factor      TEXT NOT NULL,
//	    entity      TEXT NOT NULL,
//	    value       DOUBLE PRECISION NOT NULL,
//	    observed_on DATE NOT NULL,
//	    recorded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
//	    PRIMARY KEY (factor, entity, observed_on)
//	);
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an existing pool. The caller owns the pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres { return &Postgres{pool: pool} }

func (p *Postgres) Name() string { return "postgres" }

func (p *Postgres) Fetch(ctx context.Context, factor index.Factor) (index.Table, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT DISTINCT ON (entity) entity, value
		FROM factor_observations
		WHERE factor = $1
		ORDER BY entity, observed_on DESC`, string(factor))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", factor, err)
	}
	defer rows.Close()

	t := index.Table{}
	for rows.Next() {
		var ent string
		var v float64
		if err := rows.Scan(&ent, &v); err != nil {
			return nil, err
		}
		t[index.Entity(ent)] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(t) == 0 {
		return nil, fmt.Errorf("%s: %w", factor, ErrUnknownFactor)
	}
	return t, nil
}

// Record upserts every value of snap under its collection date.
func (p *Postgres) Record(ctx context.Context, snap Snapshot) error {
	day, err := time.Parse(time.DateOnly, snap.CollectionDate)
	if err != nil {
		return fmt.Errorf("collection date %q: %w", snap.CollectionDate, err)
	}
	batch := &pgx.Batch{}
	for _, f := range snap.Data.Factors() {
		t := snap.Data[f]
		for _, e := range t.Entities() {
			batch.Queue(`
				INSERT INTO factor_observations (factor, entity, value, observed_on)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (factor, entity, observed_on)
				DO UPDATE SET value = EXCLUDED.value, recorded_at = now()`,
				string(f), string(e), t[e], day)
		}
	}
	if batch.Len() == 0 {
		return nil
	}
	return p.pool.SendBatch(ctx, batch).Close()
}
