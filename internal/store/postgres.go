package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/l5yth/potato-mesh/internal/models"
)

// PostgresStore keeps the checkpoint in a single-row table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool
// and makes sure the checkpoint table exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	s := &PostgresStore{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS bridge_checkpoint (
			id         SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
			state      JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	return err
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Load reads the checkpoint row. No row is an empty checkpoint.
func (s *PostgresStore) Load(ctx context.Context) (*models.Checkpoint, error) {
	var state string
	err := s.pool.QueryRow(ctx, `SELECT state::text FROM bridge_checkpoint WHERE id = 1`).Scan(&state)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decodeCheckpoint(nil)
		}
		return nil, err
	}
	return decodeCheckpoint([]byte(state))
}

// Save upserts the checkpoint row.
func (s *PostgresStore) Save(ctx context.Context, cp *models.Checkpoint) error {
	data, err := encodeCheckpoint(cp)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO bridge_checkpoint (id, state, updated_at)
		VALUES (1, $1::jsonb, now())
		ON CONFLICT (id) DO UPDATE SET state = EXCLUDED.state, updated_at = EXCLUDED.updated_at
	`, string(data))
	return err
}
