package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/jsodeh/konvato/internal/core"
)

// Ensure PostgresStore implements PersistentStore
var _ core.PersistentStore = (*PostgresStore)(nil)

// PostgresStore is a PostgreSQL implementation of the persistent cache tier
type PostgresStore struct {
	dsn    string
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresStore creates a PostgreSQL store. No connection is made until
// Connect.
func NewPostgresStore(dsn string, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{dsn: dsn, logger: logger}
}

// Connect opens the connection pool and prepares the schema
func (s *PostgresStore) Connect(ctx context.Context) error {
	if s.db != nil {
		return nil
	}
	if s.dsn == "" {
		return fmt.Errorf("postgres DSN is required")
	}

	db, err := sql.Open("postgres", s.dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS konvato_cache (
			cache_key VARCHAR(255) PRIMARY KEY,
			kind VARCHAR(32) NOT NULL,
			payload BYTEA NOT NULL,
			created_at VARCHAR(35) NOT NULL,
			expires_at VARCHAR(35) NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_konvato_cache_expires ON konvato_cache(expires_at);
		CREATE INDEX IF NOT EXISTS idx_konvato_cache_kind_created ON konvato_cache(kind, created_at);
	`)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	s.db = db
	return nil
}

// Upsert inserts or replaces a record by key
func (s *PostgresStore) Upsert(ctx context.Context, record *core.StoreRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO konvato_cache (cache_key, kind, payload, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (cache_key) DO UPDATE SET
			kind = EXCLUDED.kind,
			payload = EXCLUDED.payload,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
	`, record.Key, record.Kind, record.Payload,
		record.CreatedAt.UTC().Format(timeFormat),
		record.ExpiresAt.UTC().Format(timeFormat))

	if err != nil {
		return fmt.Errorf("failed to upsert cache record: %w", err)
	}
	return nil
}

// Lookup returns the unexpired record for a key, if any
func (s *PostgresStore) Lookup(ctx context.Context, key string) (*core.StoreRecord, bool, error) {
	var rec core.StoreRecord
	var createdAt, expiresAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT cache_key, kind, payload, created_at, expires_at
		FROM konvato_cache
		WHERE cache_key = $1 AND expires_at > $2
	`, key, time.Now().UTC().Format(timeFormat)).Scan(&rec.Key, &rec.Kind, &rec.Payload, &createdAt, &expiresAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to query cache record: %w", err)
	}

	if rec.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return nil, false, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if rec.ExpiresAt, err = time.Parse(timeFormat, expiresAt); err != nil {
		return nil, false, fmt.Errorf("failed to parse expires_at: %w", err)
	}

	return &rec, true, nil
}

// DeletePrefix removes all records whose key starts with prefix
func (s *PostgresStore) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM konvato_cache
		WHERE cache_key LIKE $1 || '%'
	`, prefix)
	if err != nil {
		return 0, fmt.Errorf("failed to delete by prefix: %w", err)
	}
	return result.RowsAffected()
}

// DeleteOlderThan removes records of a kind created before cutoff, ignoring
// their expiry column
func (s *PostgresStore) DeleteOlderThan(ctx context.Context, kind string, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM konvato_cache
		WHERE kind = $1 AND created_at < $2
	`, kind, cutoff.UTC().Format(timeFormat))
	if err != nil {
		return 0, fmt.Errorf("failed to delete aged records: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close postgres connection: %w", err)
	}
	s.db = nil
	return nil
}
