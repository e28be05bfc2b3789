package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/briangreenhill/topicsum/internal/summary"
)

// Schema creates the table backing PGStore. Applied on startup; safe to run
// repeatedly.
const Schema = `
CREATE TABLE IF NOT EXISTS topic_summaries (
	topic_id  TEXT NOT NULL,
	day       TEXT NOT NULL,
	summary   TEXT NOT NULL,
	stored_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (topic_id, day)
)`

// PGStore implements Store on Postgres, for façade deployments where several
// instances share one result cache. Only completed summaries are stored, so
// the status column is implicit.
type PGStore struct {
	pool   *pgxpool.Pool
	expiry time.Duration
}

// NewPGStore connects to databaseURL and ensures the schema exists.
func NewPGStore(ctx context.Context, databaseURL string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if _, err := pool.Exec(ctx, Schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &PGStore{pool: pool, expiry: DefaultExpiry}, nil
}

// Close releases the connection pool.
func (ps *PGStore) Close() {
	ps.pool.Close()
}

// Get implements Store.
func (ps *PGStore) Get(topicID, day string) (summary.Result, bool) {
	ctx := context.Background()

	var text string
	var storedAt time.Time
	err := ps.pool.QueryRow(ctx,
		`SELECT summary, stored_at FROM topic_summaries WHERE topic_id = $1 AND day = $2`,
		topicID, day,
	).Scan(&text, &storedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return summary.Result{}, false
	}
	if err != nil {
		// Same contract as the file store: a failed read is a miss.
		return summary.Result{}, false
	}

	if time.Since(storedAt) > ps.expiry {
		_, _ = ps.pool.Exec(ctx,
			`DELETE FROM topic_summaries WHERE topic_id = $1 AND day = $2`,
			topicID, day)
		return summary.Result{}, false
	}
	return summary.Result{Status: summary.StatusCompleted, Summary: text}, true
}

// Put implements Store via upsert.
func (ps *PGStore) Put(topicID, day string, res summary.Result) error {
	_, err := ps.pool.Exec(context.Background(),
		`INSERT INTO topic_summaries (topic_id, day, summary, stored_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (topic_id, day)
		 DO UPDATE SET summary = EXCLUDED.summary, stored_at = EXCLUDED.stored_at`,
		topicID, day, res.Summary)
	return err
}

// SweepExpired implements Store.
func (ps *PGStore) SweepExpired() (int, error) {
	tag, err := ps.pool.Exec(context.Background(),
		`DELETE FROM topic_summaries WHERE stored_at < now() - make_interval(secs => $1)`,
		ps.expiry.Seconds())
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
