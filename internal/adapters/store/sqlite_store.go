package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/jsodeh/konvato/internal/core"
)

// Timestamps are stored as RFC3339 UTC strings in every adapter; the fixed
// format makes lexical comparison equivalent to time comparison.
const timeFormat = time.RFC3339

// Ensure SQLiteStore implements PersistentStore
var _ core.PersistentStore = (*SQLiteStore)(nil)

// SQLiteStore is a SQLite implementation of the persistent cache tier
type SQLiteStore struct {
	path   string
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore creates a SQLite store. No connection is made until Connect.
func NewSQLiteStore(path string, logger *zap.Logger) *SQLiteStore {
	return &SQLiteStore{path: path, logger: logger}
}

// Connect opens the database and prepares the schema
func (s *SQLiteStore) Connect(ctx context.Context) error {
	if s.db != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create SQLite directory: %w", err)
	}

	db, err := sql.Open("sqlite3", s.path)
	if err != nil {
		return fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS konvato_cache (
			cache_key TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			payload BLOB NOT NULL,
			created_at TEXT NOT NULL,
			expires_at TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to create table: %w", err)
	}

	for _, idx := range []string{
		`CREATE INDEX IF NOT EXISTS idx_konvato_cache_expires ON konvato_cache(expires_at)`,
		`CREATE INDEX IF NOT EXISTS idx_konvato_cache_kind_created ON konvato_cache(kind, created_at)`,
	} {
		if _, err := db.ExecContext(ctx, idx); err != nil {
			db.Close()
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	s.db = db
	return nil
}

// Upsert inserts or replaces a record by key
func (s *SQLiteStore) Upsert(ctx context.Context, record *core.StoreRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO konvato_cache (cache_key, kind, payload, created_at, expires_at)
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
func (s *SQLiteStore) Lookup(ctx context.Context, key string) (*core.StoreRecord, bool, error) {
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
func (s *SQLiteStore) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM konvato_cache
		WHERE cache_key LIKE ? || '%'
	`, prefix)
	if err != nil {
		return 0, fmt.Errorf("failed to delete by prefix: %w", err)
	}
	return result.RowsAffected()
}

// DeleteOlderThan removes records of a kind created before cutoff, ignoring
// their expiry column
func (s *SQLiteStore) DeleteOlderThan(ctx context.Context, kind string, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM konvato_cache
		WHERE kind = ? AND created_at < ?
	`, kind, cutoff.UTC().Format(timeFormat))
	if err != nil {
		return 0, fmt.Errorf("failed to delete aged records: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close SQLite database: %w", err)
	}
	s.db = nil
	return nil
}
