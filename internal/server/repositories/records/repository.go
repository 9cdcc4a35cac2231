// Package records provides PostgreSQL-backed persistence for the append-only
// ledger.
package records

import (
	"context"

	"github.com/ledgerink/ledgerink/internal/server/models"
)

// Repository is the ledger store. Append is the only write path for entries;
// rows are immutable once written.
type Repository interface {
	// Append inserts the record, assigning the next per-owner sequence id
	// atomically. The record's SequenceID and SubmittedAt are filled in.
	Append(ctx context.Context, rec *models.LedgerRecord) error

	// ListByOwner returns the owner's records ordered by sequence id
	// ascending.
	ListByOwner(ctx context.Context, ownerAddress string) ([]models.LedgerRecord, error)

	// Aggregate tallies sentiment codes across all owners.
	Aggregate(ctx context.Context) (*models.SentimentAggregate, error)

	// IsPaused reports whether appends are administratively suspended.
	IsPaused(ctx context.Context) (bool, error)

	// SetPaused suspends or resumes appends.
	SetPaused(ctx context.Context, paused bool) error
}
