package cli

import (
	"bufio"
	"context"
	"os"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ledgerink/ledgerink/internal/client/config"
	"github.com/ledgerink/ledgerink/internal/client/ledger"
	"github.com/ledgerink/ledgerink/internal/client/localdb"
	"github.com/ledgerink/ledgerink/internal/client/repositories/entries"
	"github.com/ledgerink/ledgerink/internal/client/services"
	"github.com/ledgerink/ledgerink/internal/logging"
	"github.com/ledgerink/ledgerink/internal/sentiment"
	"github.com/ledgerink/ledgerink/internal/wallet"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// App wires the CLI together: local cache, wallet session, ledger adapter and
// the sync coordinator. The coordinator exists only while the wallet is
// unlocked.
type App struct {
	config      *config.Config
	logger      logging.Logger
	repo        entries.Repository
	notifier    *wallet.Notifier
	analyzer    sentiment.Analyzer
	reader      *bufio.Reader
	wallet      *wallet.Wallet
	coordinator *services.Coordinator
	ledger      ledger.Client

	// mode is written by the status watcher goroutine and read from the
	// REPL goroutine.
	modeMu sync.Mutex
	mode   Mode

	stopWatch context.CancelFunc
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := localdb.Open(ctx, c.DatabasePath)
	if err != nil {
		logger.Error(ctx, "error initializing database", "error", err.Error())
		return nil, err
	}

	return &App{
		config:   c,
		logger:   logger,
		repo:     entries.NewSQLiteRepository(db),
		notifier: wallet.NewNotifier(),
		analyzer: sentiment.KeywordAnalyzer{},
		reader:   bufio.NewReader(os.Stdin),
		mode:     ModeOffline,
	}, nil
}

func (a *App) isUnlocked() bool {
	return a.coordinator != nil
}

func (a *App) currentMode() Mode {
	a.modeMu.Lock()
	defer a.modeMu.Unlock()
	return a.mode
}

// swapMode stores the mode and reports whether it changed.
func (a *App) swapMode(mode Mode) bool {
	a.modeMu.Lock()
	defer a.modeMu.Unlock()
	if a.mode == mode {
		return false
	}
	a.mode = mode
	return true
}

func (a *App) setMode(ctx context.Context, mode Mode) {
	if a.swapMode(mode) {
		a.logger.Info(ctx, "connectivity changed", "mode", string(mode))
		if mode == ModeOnline {
			a.notifier.Publish(wallet.EventOnline)
		} else {
			a.notifier.Publish(wallet.EventOffline)
		}
	}
}

// Run starts the REPL and blocks until the user exits.
func (a *App) Run(ctx context.Context) {
	printlnFn("Welcome to LedgerInk CLI (type 'help' for commands)")
	_ = a.Unlock(ctx)
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(os.Stdin))
	a.shutdown()
}

func (a *App) shutdown() {
	if a.stopWatch != nil {
		a.stopWatch()
	}
	if a.coordinator != nil {
		a.coordinator.ClearKeys()
	}
}

// StartOnlineStatusWatcher probes gateway reachability on a fixed interval
// and publishes online/offline transitions to the notifier; the coordinator
// picks them up and syncs the backlog when connectivity returns. The watcher
// holds its own ledger client reference: Lock may nil out a.ledger before
// the watcher observes cancellation.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, lc ledger.Client, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			available := lc.IsAvailable(probeCtx)
			cancel()

			if available {
				a.setMode(ctx, ModeOnline)
			} else {
				a.setMode(ctx, ModeOffline)
			}

		case <-ctx.Done():
			return
		}
	}
}
