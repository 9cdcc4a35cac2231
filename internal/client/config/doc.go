// Package config loads runtime configuration for the LedgerInk CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the ledger gateway
//	-d string   path of the local SQLite cache
//	-k string   path of the wallet keystore file
//	-i int      online status check interval (seconds)
//	-t string   sponsor bearer token for relayed submission
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "3s" or integer nanoseconds:
//
//	{
//	  "gateway_addr": "http://127.0.0.1:8080",
//	  "database_path": "ledgerink.db",
//	  "keystore_path": "ledgerink.keystore",
//	  "online_check_interval": "3s",
//	  "sponsor_token": "",
//	  "gas_limit_hint": 90000
//	}
//
// Primary API
//
//   - type Config                     — gateway, storage and relay settings
//   - func LoadConfig() *Config       — builds Config by applying defaults, JSON, then flags
//   - func (*Config) LoadDefaults()   — sets sensible defaults
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
