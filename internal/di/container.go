package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/jsodeh/konvato/internal/adapters/httpapi"
	"github.com/jsodeh/konvato/internal/cache"
	"github.com/jsodeh/konvato/internal/config"
	"github.com/jsodeh/konvato/internal/core"
	"github.com/jsodeh/konvato/internal/factory"
	"github.com/jsodeh/konvato/internal/logging"
	"github.com/jsodeh/konvato/internal/ratelimit"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register loggers
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}
	if err := container.Provide(logging.NewComplianceLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewAutomationFactory); err != nil {
		return nil, err
	}

	// Register the bookmaker registry
	if err := container.Provide(func(logger *zap.Logger) (*core.BookmakerRegistry, error) {
		return core.NewBookmakerRegistry(core.DefaultBookmakers(), logger)
	}); err != nil {
		return nil, err
	}

	// Register the persistent store
	if err := container.Provide(func(f *factory.StoreFactory) (core.PersistentStore, error) {
		return f.CreateStore()
	}); err != nil {
		return nil, err
	}

	// Register the automation client
	if err := container.Provide(func(f *factory.AutomationFactory) (core.AutomationClient, error) {
		return f.CreateClient()
	}); err != nil {
		return nil, err
	}

	// Register the TTL cache and the cache manager
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) (*cache.TTLCache, error) {
		sweepFreq, err := cfg.GetDuration("cache.cleanup_frequency")
		if err != nil {
			return nil, err
		}
		return cache.NewTTLCache(logger, sweepFreq), nil
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(
		cfg *config.Config,
		memory *cache.TTLCache,
		persistent core.PersistentStore,
		logger *zap.Logger,
		compliance *logging.ComplianceLogger,
	) (*cache.Manager, error) {
		retentionFreq, err := cfg.GetDuration("cache.retention_frequency")
		if err != nil {
			return nil, err
		}
		return cache.NewManager(memory, persistent, logger, compliance, retentionFreq), nil
	}); err != nil {
		return nil, err
	}

	// Register the rate limiter
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) (*ratelimit.SlidingWindow, error) {
		limitCfg, err := cfg.GetRateLimit()
		if err != nil {
			return nil, err
		}
		return ratelimit.NewSlidingWindow(limitCfg.Limit, limitCfg.Window, limitCfg.SweepFrequency, logger), nil
	}); err != nil {
		return nil, err
	}

	// Register the conversion orchestrator
	if err := container.Provide(func(
		cfg *config.Config,
		automation core.AutomationClient,
		manager *cache.Manager,
		registry *core.BookmakerRegistry,
		logger *zap.Logger,
		compliance *logging.ComplianceLogger,
	) (*core.ConversionService, error) {
		automationCfg, err := cfg.GetAutomation()
		if err != nil {
			return nil, err
		}
		return core.NewConversionService(
			automation,
			manager,
			registry,
			logger,
			compliance,
			automationCfg.AttemptTimeout,
			automationCfg.MaxAttempts,
			automationCfg.BackoffBase,
		), nil
	}); err != nil {
		return nil, err
	}

	// Register the HTTP server
	if err := container.Provide(func(
		cfg *config.Config,
		service *core.ConversionService,
		manager *cache.Manager,
		limiter *ratelimit.SlidingWindow,
		logger *zap.Logger,
	) (*httpapi.Server, error) {
		serverCfg, err := cfg.GetServer()
		if err != nil {
			return nil, err
		}
		return httpapi.NewServer(service, manager, limiter, logger, serverCfg.ListenAddress), nil
	}); err != nil {
		return nil, err
	}

	return container, nil
}
