package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/ledgerink/ledgerink/internal/flagx"
	"github.com/ledgerink/ledgerink/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "3s" or as integer nanoseconds. After parsing, values
// are copied into the runtime Config (which uses time.Duration).
type JsonConfig struct {
	GatewayAddr         string         `json:"gateway_addr"`
	DatabasePath        string         `json:"database_path"`
	KeystorePath        string         `json:"keystore_path"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	SponsorToken        string         `json:"sponsor_token"`
	GasLimitHint        int64          `json:"gas_limit_hint"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// Lookup order for the JSON file path:
//  1. Command-line flags (-c or -config) via flagx.JsonConfigFlags().
//  2. If empty, no JSON is loaded and the function returns.
//
// Behavior:
//   - Reads and unmarshals the JSON into JsonConfig.
//   - Copies known non-empty fields into the provided Config.
//   - Panics on read or unmarshal errors (caller should recover if desired).
//
// Intended usage is: defaults -> parseJson -> parseFlags, where later stages
// override earlier ones.
func parseJson(cfg *Config) {
	// Resolve file path from flags.
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.GatewayAddr != "" {
		cfg.GatewayAddr = jc.GatewayAddr
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.KeystorePath != "" {
		cfg.KeystorePath = jc.KeystorePath
	}
	if jc.OnlineCheckInterval.Duration != 0 {
		cfg.OnlineCheckInterval = time.Duration(jc.OnlineCheckInterval.Duration)
	}
	if jc.SponsorToken != "" {
		cfg.SponsorToken = jc.SponsorToken
	}
	if jc.GasLimitHint != 0 {
		cfg.GasLimitHint = jc.GasLimitHint
	}
}
