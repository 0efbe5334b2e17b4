package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of pgxpool.Pool used by PostgresStorage.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStorage implements Storage on the cart_snapshots table.
// The table is created by the migrations package.
type PostgresStorage struct {
	db DBTX
}

// NewPostgresStorage creates a PostgreSQL-backed storage.
func NewPostgresStorage(db DBTX) *PostgresStorage {
	return &PostgresStorage{db: db}
}

const (
	getSnapshotSQL = `SELECT data FROM cart_snapshots WHERE key = $1`

	putSnapshotSQL = `
INSERT INTO cart_snapshots (key, data, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE
SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`

	deleteSnapshotSQL = `DELETE FROM cart_snapshots WHERE key = $1`
)

// Get reads the snapshot stored at key.
func (s *PostgresStorage) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	if err := s.db.QueryRow(ctx, getSnapshotSQL, key).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrKeyNotFound(key)
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return data, nil
}

// Put upserts the snapshot at key. data must be valid JSON.
func (s *PostgresStorage) Put(ctx context.Context, key string, data []byte) error {
	if _, err := s.db.Exec(ctx, putSnapshotSQL, key, data); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Delete removes the snapshot at key.
func (s *PostgresStorage) Delete(ctx context.Context, key string) error {
	if _, err := s.db.Exec(ctx, deleteSnapshotSQL, key); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}
