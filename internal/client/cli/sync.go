package cli

import (
	"context"
	"fmt"
)

// Sync submits the local backlog to the ledger and reports per-entry results.
func (a *App) Sync(ctx context.Context) error {
	if !a.isUnlocked() {
		printlnFn("Unlock the wallet first.")
		return nil
	}

	report, err := a.coordinator.SyncPending(ctx)
	if err != nil {
		a.logger.Error(ctx, "sync failed", "error", err.Error())
		printlnFn("Sync failed:", err.Error())
		return err
	}
	if report.Skipped {
		printlnFn("A sync is already running.")
		return nil
	}

	printlnFn(fmt.Sprintf("Synced %d entries.", report.Synced))
	for _, f := range report.Failures {
		printlnFn(fmt.Sprintf("  %s: %s", f.EntryID, f.Err.Error()))
	}
	return nil
}

// Mood prints the global sentiment aggregate across all ledger owners.
func (a *App) Mood(ctx context.Context) error {
	if !a.isUnlocked() {
		printlnFn("Unlock the wallet first.")
		return nil
	}

	agg, err := a.coordinator.ReadAggregate(ctx)
	if err != nil {
		printlnFn("Aggregate unavailable:", err.Error())
		return err
	}

	total := agg.Positive + agg.Negative + agg.Neutral
	printlnFn(fmt.Sprintf("Global mood (%d entries): %d positive / %d negative / %d neutral",
		total, agg.Positive, agg.Negative, agg.Neutral))
	return nil
}
