package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/l5yth/potato-mesh/internal/models"
)

// SQLiteStore keeps the checkpoint in a single-row SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/bridge_state.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/bridge_state.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=FULL")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// initSchema creates the checkpoint table if it doesn't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS bridge_checkpoint (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		state TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Load reads the checkpoint row. No row is an empty checkpoint.
func (s *SQLiteStore) Load(ctx context.Context) (*models.Checkpoint, error) {
	var state string
	err := s.db.QueryRowContext(ctx, `SELECT state FROM bridge_checkpoint WHERE id = 1`).Scan(&state)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decodeCheckpoint(nil)
		}
		return nil, err
	}
	return decodeCheckpoint([]byte(state))
}

// Save upserts the checkpoint row.
func (s *SQLiteStore) Save(ctx context.Context, cp *models.Checkpoint) error {
	data, err := encodeCheckpoint(cp)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO bridge_checkpoint (id, state, updated_at)
		VALUES (1, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at
	`, string(data))
	return err
}
