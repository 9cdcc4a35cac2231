package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/ledgerink/ledgerink/internal/common"
)

// Show prints one cached entry in full.
func (a *App) Show(ctx context.Context) error {
	if !a.isUnlocked() {
		printlnFn("Unlock the wallet first.")
		return nil
	}

	id, err := GetSimpleText(a.reader, "Enter entry id to show", outW())
	if err != nil {
		a.logger.Error(ctx, "input error", "error", err.Error())
		return err
	}

	e, err := a.coordinator.GetEntry(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			printlnFn("No such entry.")
		} else {
			printlnFn("Error:", err.Error())
		}
		return err
	}

	printlnFn("Created: ", e.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	printlnFn("Sentiment:", e.Sentiment)
	printlnFn("State:    ", string(e.SyncState))
	if e.Ref != nil {
		printlnFn(fmt.Sprintf("Ledger:    tx %s, sequence %d", e.Ref.TxID, e.Ref.SequenceID))
	}
	if e.Plaintext != "" {
		printlnFn("")
		printlnFn(e.Plaintext)
	} else {
		printlnFn("")
		printlnFn("[no readable text on this device]")
	}
	return nil
}

// Delete removes an entry from the local cache. Ledger records are immutable;
// a confirmed entry reappears on the next list.
func (a *App) Delete(ctx context.Context) error {
	if !a.isUnlocked() {
		printlnFn("Unlock the wallet first.")
		return nil
	}

	id, err := GetSimpleText(a.reader, "Enter entry id to delete from the local cache", outW())
	if err != nil {
		a.logger.Error(ctx, "input error", "error", err.Error())
		return err
	}

	if err := a.coordinator.DeleteEntry(ctx, id); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			printlnFn("No such entry.")
		} else {
			printlnFn("Error:", err.Error())
		}
		return err
	}
	printlnFn("Removed from the local cache. The ledger record, if any, is permanent.")
	return nil
}
