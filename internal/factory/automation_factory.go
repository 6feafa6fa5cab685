package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/jsodeh/konvato/internal/adapters/automation"
	"github.com/jsodeh/konvato/internal/config"
	"github.com/jsodeh/konvato/internal/core"
)

// AutomationFactory creates clients for the browser-automation collaborator
type AutomationFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewAutomationFactory creates a new automation factory
func NewAutomationFactory(cfg *config.Config, logger *zap.Logger) *AutomationFactory {
	return &AutomationFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateClient creates an automation client based on the configuration
func (f *AutomationFactory) CreateClient() (core.AutomationClient, error) {
	automationCfg, err := f.cfg.GetAutomation()
	if err != nil {
		return nil, fmt.Errorf("invalid automation configuration: %w", err)
	}
	if automationCfg.BaseURL == "" {
		return nil, fmt.Errorf("automation base URL is required")
	}

	return automation.NewHTTPClient(automationCfg.BaseURL, f.logger), nil
}
