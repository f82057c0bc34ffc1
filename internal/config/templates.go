package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# chainwatch configuration

[underlyings]
# Expiry applied to every tracked underlying (YYYY-MM-DD)
default_expiry = "2026-03-30"
# Restrict tracking to these names; empty tracks every name in
# instrument_keys.json
include = []

# Per-underlying expiry overrides
[underlyings.expiries]
# "NIFTY 50" = "2026-03-02"
# "SENSEX" = "2026-03-05"

[refresh]
# Quote cache refresh period
quote_interval = "5s"
# Strike universe rebuild period
meta_interval = "1h"
# India VIX refresh period
vix_interval = "15s"
# Timeout per upstream request
fetch_timeout = "10s"
# Instrument keys per quote request (API ceiling is 500)
batch_size = 400
# Concurrent quote batch fetches
quote_workers = 4
# Concurrent option-chain fetches during metadata rebuild
meta_workers = 5

[server]
# Listen address for the dashboard and websocket feed
addr = ":8000"
# How often each subscriber is checked for a changed snapshot
poll_interval = "500ms"
# Optional static dashboard page
index_page = ""

[journal]
# Append every published snapshot to a local SQLite journal
enabled = true
# path = "~/.config/chainwatch/snapshots.db"

[log]
level = "info"
console = true
file = true
`

const credentialsTemplate = `# chainwatch credentials
# Obtain an access token via the Upstox OAuth flow and paste it here,
# or export UPSTOX_ACCESS_TOKEN instead.

[upstox]
access_token = ""
`

func createTemplateConfig(configDir string) error {
	return writeTemplate(configDir, "config.toml", configTemplate)
}

func createTemplateCredentials(configDir string) error {
	return writeTemplate(configDir, "credentials.toml", credentialsTemplate)
}

func writeTemplate(configDir, name, content string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	path := filepath.Join(configDir, name)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("writing %s template: %w", name, err)
	}
	fmt.Printf("Created template %s - please review it\n", path)
	return nil
}
