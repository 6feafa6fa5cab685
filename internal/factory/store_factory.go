package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/jsodeh/konvato/internal/adapters/store"
	"github.com/jsodeh/konvato/internal/config"
	"github.com/jsodeh/konvato/internal/core"
)

// StoreFactory creates persistent store adapters based on configuration
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateStore creates a persistent store based on the configuration. A nil
// store (type "none") is valid: the cache manager then runs memory-only.
func (f *StoreFactory) CreateStore() (core.PersistentStore, error) {
	storeCfg, err := f.cfg.GetStore()
	if err != nil {
		return nil, fmt.Errorf("invalid store configuration: %w", err)
	}

	switch storeCfg.Type {
	case "none", "":
		f.logger.Info("No persistent store configured, cache is memory-only")
		return nil, nil
	case "sqlite":
		return store.NewSQLiteStore(storeCfg.SQLitePath, f.logger), nil
	case "mysql":
		return store.NewMySQLStore(storeCfg.MySQLDSN, f.logger), nil
	case "postgres":
		return store.NewPostgresStore(storeCfg.PostgresDSN, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", storeCfg.Type)
	}
}
