package callrecord

import (
	"context"
	"database/sql"
	"time"
)

// PostgresRepo persists call records via database/sql (pgx stdlib driver).
//
// Expected schema:
//
//	CREATE TABLE call_records (
//	    id               UUID PRIMARY KEY,
//	    provider_call_id TEXT UNIQUE NOT NULL,
//	    from_number      TEXT NOT NULL DEFAULT '',
//	    to_number        TEXT NOT NULL DEFAULT '',
//	    listing_id       TEXT NOT NULL DEFAULT '',
//	    status           TEXT NOT NULL,
//	    duration_seconds INT NOT NULL DEFAULT 0,
//	    started_at       TIMESTAMPTZ NOT NULL,
//	    ended_at         TIMESTAMPTZ
//	);
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Create(ctx context.Context, rec Record) error {
	// Provider retries resolve last-write-wins, matching the context store.
	const q = `
		INSERT INTO call_records (id, provider_call_id, from_number, to_number, listing_id, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (provider_call_id) DO UPDATE
		SET from_number = EXCLUDED.from_number,
		    to_number   = EXCLUDED.to_number,
		    listing_id  = EXCLUDED.listing_id
	`
	_, err := r.db.ExecContext(ctx, q, rec.ID, rec.ProviderCallID, rec.From, rec.To, rec.ListingID, rec.Status, rec.StartedAt)
	return err
}

func (r *PostgresRepo) Close(ctx context.Context, providerCallID string, status Status, durationSeconds int, endedAt time.Time) error {
	// ended_at IS NULL makes the close exactly-once at the row level.
	const q = `
		UPDATE call_records
		SET status = $2, duration_seconds = $3, ended_at = $4
		WHERE provider_call_id = $1 AND ended_at IS NULL
	`
	_, err := r.db.ExecContext(ctx, q, providerCallID, status, durationSeconds, endedAt)
	return err
}

func (r *PostgresRepo) FindByProviderCallID(ctx context.Context, providerCallID string) (Record, bool, error) {
	const q = `
		SELECT id, provider_call_id, from_number, to_number, listing_id, status, duration_seconds, started_at, ended_at
		FROM call_records
		WHERE provider_call_id = $1
	`
	var rec Record
	var endedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, q, providerCallID).Scan(
		&rec.ID, &rec.ProviderCallID, &rec.From, &rec.To, &rec.ListingID,
		&rec.Status, &rec.DurationSeconds, &rec.StartedAt, &endedAt,
	)
	if err == sql.ErrNoRows {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	if endedAt.Valid {
		rec.EndedAt = &endedAt.Time
	}
	return rec, true, nil
}
