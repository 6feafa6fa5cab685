package core

import (
	"context"
	"time"
)

// AutomationClient defines the interface to the browser-automation
// collaborator that extracts selections from the source bookmaker and builds
// the betslip on the destination
type AutomationClient interface {
	// ConvertBetslip performs one bounded conversion attempt
	ConvertBetslip(ctx context.Context, req *ConversionRequest) (*AutomationResponse, error)
}

// ConversionCache is the slice of the cache manager the orchestrator needs.
// The orchestrator never touches storage directly.
type ConversionCache interface {
	// GetConversion looks up the cached result for a bookmaker pair
	GetConversion(ctx context.Context, source, destination string) (*ConversionRecord, bool)

	// SetConversion stores a sanitized result under the pair-only key
	SetConversion(ctx context.Context, record *ConversionRecord)

	// GetBookmakerConfig looks up the configuration for a bookmaker
	GetBookmakerConfig(ctx context.Context, bookmaker string) (*BookmakerConfig, bool)
}

// StoreRecord is the unit of persistence shared by all cache kinds
type StoreRecord struct {
	Key       string
	Kind      string
	Payload   []byte
	CreatedAt time.Time
	ExpiresAt time.Time
}

// PersistentStore defines the optional second cache tier. Its absence at
// startup degrades the cache manager to memory-only mode; it never blocks
// the system.
type PersistentStore interface {
	// Connect opens the underlying connection and prepares the schema
	Connect(ctx context.Context) error

	// Upsert inserts or replaces a record by key
	Upsert(ctx context.Context, record *StoreRecord) error

	// Lookup returns the unexpired record for a key, if any
	Lookup(ctx context.Context, key string) (*StoreRecord, bool, error)

	// DeletePrefix removes all records whose key starts with prefix
	DeletePrefix(ctx context.Context, prefix string) (int64, error)

	// DeleteOlderThan removes records of a kind created before cutoff,
	// regardless of their expiry column
	DeleteOlderThan(ctx context.Context, kind string, cutoff time.Time) (int64, error)

	// Close releases the connection
	Close() error
}
