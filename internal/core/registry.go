package core

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// BookmakerConfig is the typed, validated configuration for one bookmaker
// platform. Malformed entries are rejected when the registry is built, not at
// first use.
type BookmakerConfig struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	BaseURL           string            `json:"baseUrl"`
	BetslipURLPattern string            `json:"betslipUrlPattern"`
	BettingURL        string            `json:"bettingUrl"`
	MarketMappings    map[string]string `json:"marketMappings"`
	Supported         bool              `json:"supported"`
}

// Validate checks the configuration for structural completeness
func (c *BookmakerConfig) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("bookmaker config missing id")
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("bookmaker %q missing name", c.ID)
	}
	if !strings.HasPrefix(c.BaseURL, "http") {
		return fmt.Errorf("bookmaker %q has invalid base URL %q", c.ID, c.BaseURL)
	}
	if !strings.Contains(c.BetslipURLPattern, "{code}") {
		return fmt.Errorf("bookmaker %q betslip URL pattern missing {code} placeholder", c.ID)
	}
	return nil
}

// BookmakerRegistry holds the validated set of known bookmakers
type BookmakerRegistry struct {
	byID   map[string]*BookmakerConfig
	logger *zap.Logger
}

// NewBookmakerRegistry builds a registry, rejecting malformed entries at the
// boundary
func NewBookmakerRegistry(configs []*BookmakerConfig, logger *zap.Logger) (*BookmakerRegistry, error) {
	byID := make(map[string]*BookmakerConfig, len(configs))
	for _, cfg := range configs {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid bookmaker config: %w", err)
		}
		id := strings.ToLower(strings.TrimSpace(cfg.ID))
		if _, exists := byID[id]; exists {
			return nil, fmt.Errorf("duplicate bookmaker config %q", id)
		}
		byID[id] = cfg
	}

	if logger != nil {
		ids := make([]string, 0, len(byID))
		for id := range byID {
			ids = append(ids, id)
		}
		logger.Info("Initialized bookmaker registry", zap.Strings("bookmakers", ids))
	}

	return &BookmakerRegistry{byID: byID, logger: logger}, nil
}

// Lookup returns the configuration for a bookmaker identifier
func (r *BookmakerRegistry) Lookup(id string) (*BookmakerConfig, bool) {
	cfg, ok := r.byID[strings.ToLower(strings.TrimSpace(id))]
	return cfg, ok
}

// IsSupported reports whether a bookmaker is known and currently supported
func (r *BookmakerRegistry) IsSupported(id string) bool {
	cfg, ok := r.Lookup(id)
	return ok && cfg.Supported
}

// All returns every registered configuration
func (r *BookmakerRegistry) All() []*BookmakerConfig {
	configs := make([]*BookmakerConfig, 0, len(r.byID))
	for _, cfg := range r.byID {
		configs = append(configs, cfg)
	}
	return configs
}

// DefaultBookmakers returns the built-in set of supported platforms
func DefaultBookmakers() []*BookmakerConfig {
	return []*BookmakerConfig{
		{
			ID:                "bet9ja",
			Name:              "Bet9ja",
			BaseURL:           "https://www.bet9ja.com",
			BetslipURLPattern: "https://www.bet9ja.com/betslip/{code}",
			BettingURL:        "https://www.bet9ja.com/sport",
			MarketMappings: map[string]string{
				"match result":  "1X2",
				"over/under":    "Over/Under 2.5",
				"double chance": "Double Chance",
			},
			Supported: true,
		},
		{
			ID:                "sportybet",
			Name:              "SportyBet",
			BaseURL:           "https://www.sportybet.com",
			BetslipURLPattern: "https://www.sportybet.com/ng/sport/betslip/{code}",
			BettingURL:        "https://www.sportybet.com/ng/sport",
			MarketMappings: map[string]string{
				"match result":  "1x2",
				"over/under":    "Over/Under",
				"double chance": "Double Chance",
			},
			Supported: true,
		},
		{
			ID:                "betway",
			Name:              "Betway",
			BaseURL:           "https://www.betway.com",
			BetslipURLPattern: "https://www.betway.com/betslip/{code}",
			BettingURL:        "https://www.betway.com/sport",
			MarketMappings: map[string]string{
				"match result":  "Match Result",
				"over/under":    "Totals",
				"double chance": "Double Chance",
			},
			Supported: true,
		},
	}
}
