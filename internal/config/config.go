// Package config provides configuration management for the chain tracker.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Underlyings UnderlyingsConfig `mapstructure:"underlyings"`
	Refresh     RefreshConfig     `mapstructure:"refresh"`
	Server      ServerConfig      `mapstructure:"server"`
	Journal     JournalConfig     `mapstructure:"journal"`
	Log         LogConfig         `mapstructure:"log"`
	Credentials Credentials       `mapstructure:"-"` // Loaded separately

	// ConfigDir is where the config and reference tables live.
	ConfigDir string `mapstructure:"-"`
}

// UnderlyingsConfig selects the tracked universe.
type UnderlyingsConfig struct {
	// DefaultExpiry applies to every underlying without an override
	// (YYYY-MM-DD).
	DefaultExpiry string `mapstructure:"default_expiry"`
	// Expiries overrides the expiry per underlying name.
	Expiries map[string]string `mapstructure:"expiries"`
	// Include restricts tracking to these names; empty means every name
	// in the instrument key table.
	Include []string `mapstructure:"include"`
}

// ExpiryFor returns the expiry date for an underlying.
func (u *UnderlyingsConfig) ExpiryFor(name string) string {
	if e, ok := u.Expiries[name]; ok {
		return e
	}
	return u.DefaultExpiry
}

// RefreshConfig holds the refresh schedule and fetch limits.
type RefreshConfig struct {
	QuoteInterval time.Duration `mapstructure:"quote_interval"`
	MetaInterval  time.Duration `mapstructure:"meta_interval"`
	VIXInterval   time.Duration `mapstructure:"vix_interval"`
	FetchTimeout  time.Duration `mapstructure:"fetch_timeout"`
	BatchSize     int           `mapstructure:"batch_size"`
	QuoteWorkers  int           `mapstructure:"quote_workers"`
	MetaWorkers   int           `mapstructure:"meta_workers"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
}

// ServerConfig holds the broadcast server settings.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	IndexPage    string        `mapstructure:"index_page"`
}

// JournalConfig holds the snapshot journal settings.
type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
	File    bool   `mapstructure:"file"`
	Path    string `mapstructure:"path"`
}

// Credentials holds API credentials.
type Credentials struct {
	Upstox UpstoxCredentials `mapstructure:"upstox"`
}

// UpstoxCredentials holds the Upstox API access token. Token acquisition
// is handled outside this program; the tracker only consumes the result.
type UpstoxCredentials struct {
	AccessToken string `mapstructure:"access_token"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/chainwatch"
	}
	return filepath.Join(home, ".config", "chainwatch")
}

// Load loads configuration from the specified directory. If configDir is
// empty, uses the default config directory. Missing files are created as
// templates for the user to fill in.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{ConfigDir: configDir}

	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}
	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir string, target *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateConfig(configDir)
		}
		return err
	}

	return v.Unmarshal(target)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("UPSTOX_ACCESS_TOKEN"); v != "" {
		cfg.Credentials.Upstox.AccessToken = v
	}
	if v := os.Getenv("CHAINWATCH_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
}

func (c *Config) applyDefaults() {
	if c.Refresh.QuoteInterval <= 0 {
		c.Refresh.QuoteInterval = 5 * time.Second
	}
	if c.Refresh.MetaInterval <= 0 {
		c.Refresh.MetaInterval = time.Hour
	}
	if c.Refresh.VIXInterval <= 0 {
		c.Refresh.VIXInterval = 15 * time.Second
	}
	if c.Refresh.FetchTimeout <= 0 {
		c.Refresh.FetchTimeout = 10 * time.Second
	}
	if c.Refresh.BatchSize <= 0 {
		c.Refresh.BatchSize = 400
	}
	if c.Refresh.QuoteWorkers <= 0 {
		c.Refresh.QuoteWorkers = 4
	}
	if c.Refresh.MetaWorkers <= 0 {
		c.Refresh.MetaWorkers = 5
	}
	if c.Refresh.RetryAttempts <= 0 {
		c.Refresh.RetryAttempts = 1
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Server.PollInterval <= 0 {
		c.Server.PollInterval = 500 * time.Millisecond
	}
	if c.Journal.Path == "" {
		c.Journal.Path = filepath.Join(c.ConfigDir, "snapshots.db")
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Path == "" {
		c.Log.Path = filepath.Join(c.ConfigDir, "logs", "chainwatch.log")
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Underlyings.DefaultExpiry != "" {
		if _, err := time.Parse("2006-01-02", c.Underlyings.DefaultExpiry); err != nil {
			return fmt.Errorf("default_expiry must be YYYY-MM-DD: %w", err)
		}
	}
	for name, expiry := range c.Underlyings.Expiries {
		if _, err := time.Parse("2006-01-02", expiry); err != nil {
			return fmt.Errorf("expiry for %s must be YYYY-MM-DD: %w", name, err)
		}
	}
	// The quote API rejects requests beyond 500 keys.
	if c.Refresh.BatchSize > 500 {
		return fmt.Errorf("batch_size must be at most 500, got %d", c.Refresh.BatchSize)
	}
	if c.Refresh.QuoteWorkers > 16 {
		return fmt.Errorf("quote_workers must be at most 16, got %d", c.Refresh.QuoteWorkers)
	}
	return nil
}

// Authenticated reports whether an Upstox access token is configured.
func (c *Config) Authenticated() bool {
	return c.Credentials.Upstox.AccessToken != ""
}
