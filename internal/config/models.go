package config

import "time"

// ServerConfig represents the configuration for the HTTP surface
type ServerConfig struct {
	ListenAddress   string
	ShutdownTimeout time.Duration
}

// AutomationConfig represents the configuration for the browser-automation collaborator
type AutomationConfig struct {
	BaseURL        string
	AttemptTimeout time.Duration
	MaxAttempts    int
	BackoffBase    time.Duration
}

// StoreConfig represents the configuration for the optional persistent store
type StoreConfig struct {
	Type           string
	SQLitePath     string
	MySQLDSN       string
	PostgresDSN    string
	ConnectTimeout time.Duration
}

// RateLimitConfig represents the configuration for the sliding-window limiter
type RateLimitConfig struct {
	Limit          int
	Window         time.Duration
	SweepFrequency time.Duration
}

// GetServer returns the server configuration
func (c *Config) GetServer() (ServerConfig, error) {
	shutdown, err := c.GetDuration("server.shutdown_timeout")
	if err != nil {
		return ServerConfig{}, err
	}
	return ServerConfig{
		ListenAddress:   c.GetString("server.listen_address"),
		ShutdownTimeout: shutdown,
	}, nil
}

// GetAutomation returns the automation collaborator configuration
func (c *Config) GetAutomation() (AutomationConfig, error) {
	timeout, err := c.GetDuration("automation.attempt_timeout")
	if err != nil {
		return AutomationConfig{}, err
	}
	backoff, err := c.GetDuration("automation.backoff_base")
	if err != nil {
		return AutomationConfig{}, err
	}
	return AutomationConfig{
		BaseURL:        c.GetString("automation.base_url"),
		AttemptTimeout: timeout,
		MaxAttempts:    c.GetInt("automation.max_attempts"),
		BackoffBase:    backoff,
	}, nil
}

// GetStore returns the persistent store configuration
func (c *Config) GetStore() (StoreConfig, error) {
	connect, err := c.GetDuration("store.connect_timeout")
	if err != nil {
		return StoreConfig{}, err
	}
	return StoreConfig{
		Type:           c.GetString("store.type"),
		SQLitePath:     c.GetString("store.sqlite_path"),
		MySQLDSN:       c.GetString("store.mysql_dsn"),
		PostgresDSN:    c.GetString("store.postgres_dsn"),
		ConnectTimeout: connect,
	}, nil
}

// GetRateLimit returns the rate limiter configuration
func (c *Config) GetRateLimit() (RateLimitConfig, error) {
	window, err := c.GetDuration("ratelimit.window")
	if err != nil {
		return RateLimitConfig{}, err
	}
	sweep, err := c.GetDuration("ratelimit.sweep_frequency")
	if err != nil {
		return RateLimitConfig{}, err
	}
	return RateLimitConfig{
		Limit:          c.GetInt("ratelimit.limit"),
		Window:         window,
		SweepFrequency: sweep,
	}, nil
}
