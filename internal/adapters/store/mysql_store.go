package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/jsodeh/konvato/internal/core"
)

// Ensure MySQLStore implements PersistentStore
var _ core.PersistentStore = (*MySQLStore)(nil)

// MySQLStore is a MySQL implementation of the persistent cache tier
type MySQLStore struct {
	dsn    string
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLStore creates a MySQL store. No connection is made until Connect.
func NewMySQLStore(dsn string, logger *zap.Logger) *MySQLStore {
	return &MySQLStore{dsn: dsn, logger: logger}
}

// Connect opens the connection pool and prepares the schema
func (s *MySQLStore) Connect(ctx context.Context) error {
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("mysql", s.dsn)
	if err != nil {
		return fmt.Errorf("failed to open MySQL database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS konvato_cache (
			cache_key VARCHAR(255) PRIMARY KEY,
			kind VARCHAR(32) NOT NULL,
			payload MEDIUMBLOB NOT NULL,
			created_at VARCHAR(35) NOT NULL,
			expires_at VARCHAR(35) NOT NULL,
			INDEX idx_konvato_cache_expires (expires_at),
			INDEX idx_konvato_cache_kind_created (kind, created_at)
		)
	`)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to create table: %w", err)
	}

	s.db = db
	return nil
}

// Upsert inserts or replaces a record by key
func (s *MySQLStore) Upsert(ctx context.Context, record *core.StoreRecord) error {
	_, err := s.db.ExecContext(ctx, `
		REPLACE INTO konvato_cache (cache_key, kind, payload, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`, record.Key, record.Kind, record.Payload,
		record.CreatedAt.UTC().Format(timeFormat),
		record.ExpiresAt.UTC().Format(timeFormat))

	if err != nil {
		return fmt.Errorf("failed to upsert cache record: %w", err)
	}
	return nil
}

// Lookup returns the unexpired record for a key, if any
func (s *MySQLStore) Lookup(ctx context.Context, key string) (*core.StoreRecord, bool, error) {
	var rec core.StoreRecord
	var createdAt, expiresAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT cache_key, kind, payload, created_at, expires_at
		FROM konvato_cache
		WHERE cache_key = ? AND expires_at > ?
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
func (s *MySQLStore) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM konvato_cache
		WHERE cache_key LIKE CONCAT(?, '%')
	`, prefix)
	if err != nil {
		return 0, fmt.Errorf("failed to delete by prefix: %w", err)
	}
	return result.RowsAffected()
}

// DeleteOlderThan removes records of a kind created before cutoff, ignoring
// their expiry column
func (s *MySQLStore) DeleteOlderThan(ctx context.Context, kind string, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM konvato_cache
		WHERE kind = ? AND created_at < ?
	`, kind, cutoff.UTC().Format(timeFormat))
	if err != nil {
		return 0, fmt.Errorf("failed to delete aged records: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the connection pool
func (s *MySQLStore) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close MySQL database: %w", err)
	}
	s.db = nil
	return nil
}
