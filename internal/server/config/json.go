package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/ledgerink/ledgerink/internal/flagx"
	"github.com/ledgerink/ledgerink/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It uses
// timex.Duration for interval fields, which allows parsing both string
// values such as "24h" and integer nanoseconds. After unmarshalling, its
// fields are copied into the runtime Config struct.
type JsonConfig struct {
	EndpointAddr         string         `json:"endpoint_addr"`
	DatabaseDSN          string         `json:"database_dsn"`
	SecretKey            string         `json:"secret_key"`
	SponsorTokenValidity timex.Duration `json:"sponsor_token_validity"`
	RateLimitRPS         float64        `json:"rate_limit_rps"`
	RateLimitBurst       int            `json:"rate_limit_burst"`
	LogFile              string         `json:"log_file"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The lookup order for the JSON file path is:
//
//	The -c or -config command-line flags.
//	If it is not set, no JSON file is loaded.
//
// If the file cannot be read or contains invalid JSON, the function panics.
// The caller is expected to merge these values with defaults, environment
// variables and command-line flags as part of the full configuration process.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.EndpointAddr != "" {
		cfg.EndpointAddr = c.EndpointAddr
	}
	if c.DatabaseDSN != "" {
		cfg.DatabaseDSN = c.DatabaseDSN
	}
	if c.SecretKey != "" {
		cfg.SecretKey = c.SecretKey
	}
	if c.SponsorTokenValidity.Duration != 0 {
		cfg.SponsorTokenValidity = time.Duration(c.SponsorTokenValidity.Duration)
	}
	if c.RateLimitRPS != 0 {
		cfg.RateLimitRPS = c.RateLimitRPS
	}
	if c.RateLimitBurst != 0 {
		cfg.RateLimitBurst = c.RateLimitBurst
	}
	if c.LogFile != "" {
		cfg.LogFile = c.LogFile
	}
}
