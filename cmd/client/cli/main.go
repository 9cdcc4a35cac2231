package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/ledgerink/ledgerink/internal/client/cli"
	"github.com/ledgerink/ledgerink/internal/client/config"
	"github.com/ledgerink/ledgerink/internal/logging"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	// Warnings and errors only, so log lines do not interleave with the prompt.
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	app, err := cli.NewApp(ctx, cfg, logger)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)

}
