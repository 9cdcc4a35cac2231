package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config with values from the process environment. An
// optional .env file in the working directory is loaded first; a missing
// file is not an error.
//
// Recognized variables:
//
//	LEDGERINK_ENDPOINT_ADDR
//	LEDGERINK_DATABASE_DSN
//	LEDGERINK_SECRET_KEY
//	LEDGERINK_LOG_FILE
//	LEDGERINK_RATE_LIMIT_RPS
//	LEDGERINK_RATE_LIMIT_BURST
func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("LEDGERINK_ENDPOINT_ADDR"); v != "" {
		cfg.EndpointAddr = v
	}
	if v := os.Getenv("LEDGERINK_DATABASE_DSN"); v != "" {
		cfg.DatabaseDSN = v
	}
	if v := os.Getenv("LEDGERINK_SECRET_KEY"); v != "" {
		cfg.SecretKey = v
	}
	if v := os.Getenv("LEDGERINK_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("LEDGERINK_RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("LEDGERINK_RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}
}
