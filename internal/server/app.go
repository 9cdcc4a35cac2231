// Package server initializes and runs the ledger gateway: it opens the
// PostgreSQL store, runs migrations, and serves the HTTP API until a
// shutdown signal arrives.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ledgerink/ledgerink/internal/logging"
	"github.com/ledgerink/ledgerink/internal/server/config"
	"github.com/ledgerink/ledgerink/internal/server/httpapi"
	"github.com/ledgerink/ledgerink/internal/server/services"
	"github.com/ledgerink/ledgerink/internal/server/storage"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	storage *storage.PostgresManager
	ledger  *services.LedgerService
}

// newLogger builds the JSON logger. When a log file is configured the
// output also goes to a size-rotated file.
func newLogger(cfg *config.Config) logging.Logger {
	var w io.Writer = os.Stdout
	if cfg.LogFile != "" {
		w = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
	}
	return logging.NewSlogLogger(slog.New(slog.NewJSONHandler(w, nil)))
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := newLogger(cfg)

	sm, err := storage.NewPostgresManager(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	svc := services.NewLedgerService(sm.Records(), logger)

	return &App{config: cfg, logger: logger, storage: sm, ledger: svc}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:    app.config.EndpointAddr,
		Handler: httpapi.NewRouter(app.config, app.ledger, app.logger),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "shutdown error", "error", err)
		}
	}()

	app.logger.Info(ctx, "listening", "addr", app.config.EndpointAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, "server error", "error", err)
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting ledger gateway")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.storage.Close(); err != nil {
		app.logger.Error(ctx, "storage close error", "error", err)
	}
	app.logger.Info(ctx, "stopped")
}
