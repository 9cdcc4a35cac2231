package config

import (
	"flag"
	"os"
	"time"

	"github.com/ledgerink/ledgerink/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the ledger gateway (default from Config)
//	-d string   path of the local SQLite cache
//	-k string   path of the wallet keystore file
//	-i int      online check interval in seconds (default from Config)
//	-t string   sponsor bearer token for relayed submission
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	// Filter args to include only those handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-k", "-i", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.GatewayAddr, "a", cfg.GatewayAddr, "base URL of the ledger gateway")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path of the local cache database")
	fs.StringVar(&cfg.KeystorePath, "k", cfg.KeystorePath, "path of the wallet keystore file")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.SponsorToken, "t", cfg.SponsorToken, "sponsor token for relayed submission")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}
