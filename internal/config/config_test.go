package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadCreatesTemplates(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	for _, name := range []string{"config.toml", "credentials.toml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("template %s not created: %v", name, err)
		}
	}
	if cfg.Authenticated() {
		t.Error("template credentials must not count as authenticated")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Refresh.QuoteInterval != 5*time.Second {
		t.Errorf("quote_interval = %v", cfg.Refresh.QuoteInterval)
	}
	if cfg.Refresh.MetaInterval != time.Hour {
		t.Errorf("meta_interval = %v", cfg.Refresh.MetaInterval)
	}
	if cfg.Refresh.BatchSize != 400 || cfg.Refresh.QuoteWorkers != 4 {
		t.Errorf("fetch limits = %d/%d", cfg.Refresh.BatchSize, cfg.Refresh.QuoteWorkers)
	}
	if cfg.Server.Addr != ":8000" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Server.PollInterval != 500*time.Millisecond {
		t.Errorf("poll_interval = %v", cfg.Server.PollInterval)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
	if cfg.Journal.Path == "" {
		t.Error("journal path should default under the config dir")
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := `
[underlyings]
default_expiry = "2026-09-30"

[underlyings.expiries]
SENSEX = "2026-09-04"

[refresh]
quote_interval = "3s"
batch_size = 250

[server]
addr = ":9000"
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Underlyings.DefaultExpiry != "2026-09-30" {
		t.Errorf("default_expiry = %q", cfg.Underlyings.DefaultExpiry)
	}
	if got := cfg.Underlyings.ExpiryFor("SENSEX"); got != "2026-09-04" {
		t.Errorf("ExpiryFor(SENSEX) = %q", got)
	}
	if got := cfg.Underlyings.ExpiryFor("NIFTY"); got != "2026-09-30" {
		t.Errorf("ExpiryFor(NIFTY) = %q, want the default", got)
	}
	if cfg.Refresh.QuoteInterval != 3*time.Second {
		t.Errorf("quote_interval = %v", cfg.Refresh.QuoteInterval)
	}
	if cfg.Refresh.BatchSize != 250 {
		t.Errorf("batch_size = %d", cfg.Refresh.BatchSize)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
}

func TestEnvOverridesToken(t *testing.T) {
	t.Setenv("UPSTOX_ACCESS_TOKEN", "env-token")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Credentials.Upstox.AccessToken != "env-token" {
		t.Errorf("token = %q", cfg.Credentials.Upstox.AccessToken)
	}
	if !cfg.Authenticated() {
		t.Error("env token should authenticate the config")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad default expiry", func(c *Config) { c.Underlyings.DefaultExpiry = "30-09-2026" }},
		{"bad per-name expiry", func(c *Config) { c.Underlyings.Expiries = map[string]string{"NIFTY": "next week"} }},
		{"oversized batch", func(c *Config) { c.Refresh.BatchSize = 501 }},
		{"too many workers", func(c *Config) { c.Refresh.QuoteWorkers = 32 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.applyDefaults()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("want a validation error")
			}
		})
	}
}
