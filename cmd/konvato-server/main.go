package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jsodeh/konvato/internal/adapters/httpapi"
	"github.com/jsodeh/konvato/internal/cache"
	"github.com/jsodeh/konvato/internal/config"
	"github.com/jsodeh/konvato/internal/core"
	"github.com/jsodeh/konvato/internal/di"
	"github.com/jsodeh/konvato/internal/ratelimit"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	cfg *config.Config,
	logger *zap.Logger,
	server *httpapi.Server,
	manager *cache.Manager,
	limiter *ratelimit.SlidingWindow,
	registry *core.BookmakerRegistry,
) error {
	defer logger.Sync()

	storeCfg, err := cfg.GetStore()
	if err != nil {
		return err
	}

	// Persistent store is optional: a failed connect degrades to memory-only
	connectCtx, cancel := context.WithTimeout(context.Background(), storeCfg.ConnectTimeout)
	if err := manager.Connect(connectCtx); err != nil {
		logger.Warn("Starting without persistent store", zap.Error(err))
	}
	cancel()

	manager.WarmUp(context.Background(), registry.All())

	if err := server.Start(); err != nil {
		logger.Fatal("Failed to start HTTP server", zap.Error(err))
		return err
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	serverCfg, err := cfg.GetServer()
	shutdownTimeout := 15 * time.Second
	if err == nil {
		shutdownTimeout = serverCfg.ShutdownTimeout
	}
	if err := server.Stop(shutdownTimeout); err != nil {
		logger.Error("Failed to stop HTTP server", zap.Error(err))
	}

	limiter.Stop()

	// Runs one final retention sweep before closing the store
	manager.Stop()

	logger.Info("Shutdown complete")
	return nil
}
