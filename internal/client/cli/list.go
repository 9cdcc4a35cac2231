package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledgerink/ledgerink/internal/client/models"
)

// List prints the merged journal view, newest first. Works offline: when the
// gateway is unreachable the coordinator serves the local cache alone.
func (a *App) List(ctx context.Context) error {
	if !a.isUnlocked() {
		printlnFn("Unlock the wallet first.")
		return nil
	}

	list, err := a.coordinator.LoadEntries(ctx)
	if err != nil {
		a.logger.Error(ctx, "failed to load entries", "error", err.Error())
		printlnFn("Failed to load entries:", err.Error())
		return err
	}

	if len(list) == 0 {
		printlnFn("No entries yet. Try 'write'.")
		return nil
	}
	for i := range list {
		printlnFn(renderEntry(&list[i]))
	}
	return nil
}

func renderEntry(e *models.Entry) string {
	var state string
	switch e.SyncState {
	case models.SyncStateConfirmed:
		state = "✓"
	case models.SyncStateSubmitted:
		state = "…"
	default:
		state = "•"
	}

	text := e.Plaintext
	if e.Locked {
		text = "[locked: no key on this device]"
	}
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx] + " …"
	}

	return fmt.Sprintf("%s %s  %-8s  %s  %s",
		state, e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Sentiment, e.ID, text)
}
