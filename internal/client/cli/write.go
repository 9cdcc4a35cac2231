package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/ledgerink/ledgerink/internal/common"
	"github.com/ledgerink/ledgerink/internal/sentiment"
)

// Write creates a new journal entry: reads the text, labels its sentiment
// (auto-detected, user can override), encrypts it and submits it to the
// ledger. Every failure mode leaves the entry cached locally; the command
// reports what happened instead of pretending the three outcomes are one.
func (a *App) Write(ctx context.Context) error {
	if !a.isUnlocked() {
		printlnFn("Unlock the wallet first.")
		return nil
	}

	text, err := GetMultiline(a.reader, "- Enter your journal entry:", outW())
	if err != nil {
		a.logger.Error(ctx, "input error", "error", err.Error())
		return err
	}
	if text == "" {
		printlnFn("Nothing to write.")
		return nil
	}

	detected := a.analyzer.Analyze(text)
	answer, err := GetSimpleText(a.reader,
		fmt.Sprintf("- Sentiment [%s] (Enter to accept, or type positive/negative/neutral)", detected), outW())
	if err != nil {
		a.logger.Error(ctx, "input error", "error", err.Error())
		return err
	}
	label := detected
	if answer != "" {
		label, err = sentiment.ParseLabel(answer)
		if err != nil {
			printlnFn("Unknown sentiment:", answer)
			return err
		}
	}

	entry, err := a.coordinator.CreateEntry(ctx, text, string(label))
	switch {
	case err == nil:
		printlnFn(fmt.Sprintf("Confirmed on ledger: tx %s, sequence %d", entry.Ref.TxID, entry.Ref.SequenceID))
	case errors.Is(err, common.ErrUserRejected):
		printlnFn("Signature declined. Entry kept locally; run 'sync' when you change your mind.")
	case errors.Is(err, common.ErrLedgerPaused):
		printlnFn("Ledger is paused. Entry kept locally and will sync automatically.")
	case errors.Is(err, common.ErrNetworkUnavailable):
		printlnFn("Offline. Entry kept locally and will sync automatically.")
	default:
		printlnFn("Submission failed:", err.Error())
	}
	if entry != nil && entry.StorageDegraded {
		printlnFn("Warning: local cache is failing; this entry will not survive a restart until it reaches the ledger.")
	}
	return err
}
