package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

const undefinedTable = "42P01"

type postgresStore struct {
	db *sql.DB
}

// NewPostgresStore keeps local state in the kv_store table created by db.Migrate.
func NewPostgresStore(db *sql.DB) KeyValueStore {
	return &postgresStore{db: db}
}

func (s *postgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT value FROM kv_store WHERE key = $1`

	var value []byte
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, mapPostgresError(err, "get", key)
	}
	return value, nil
}

func (s *postgresStore) Set(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`

	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return mapPostgresError(err, "set", key)
	}
	return nil
}

func (s *postgresStore) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM kv_store WHERE key = $1`

	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return mapPostgresError(err, "delete", key)
	}
	return nil
}

func mapPostgresError(err error, op, key string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == undefinedTable {
		return fmt.Errorf("%w: %s %q", ErrStoreNotReady, op, key)
	}
	return fmt.Errorf("kv %s %q: %w", op, key, err)
}
