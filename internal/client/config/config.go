package config

import "time"

// Config holds runtime settings for the LedgerInk CLI.
//
// Fields:
//   - GatewayAddr: base URL of the ledger gateway.
//   - DatabasePath: path of the local SQLite cache.
//   - KeystorePath: path of the passphrase-protected wallet keystore.
//   - OnlineCheckInterval: how often the client probes gateway reachability.
//   - SponsorToken: bearer token for gas-sponsored submission; empty disables
//     the relay path entirely.
//   - GasLimitHint: gas limit hint forwarded to the relayer.
//
// Units: OnlineCheckInterval is a time.Duration (e.g., 3*time.Second).
type Config struct {
	GatewayAddr         string
	DatabasePath        string
	KeystorePath        string
	OnlineCheckInterval time.Duration
	SponsorToken        string
	GasLimitHint        int64
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.GatewayAddr = "http://127.0.0.1:8080"
	c.DatabasePath = "ledgerink.db"
	c.KeystorePath = "ledgerink.keystore"
	c.OnlineCheckInterval = 3 * time.Second
	c.GasLimitHint = 90000
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
