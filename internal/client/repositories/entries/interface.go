package entries

import (
	"context"

	"github.com/ledgerink/ledgerink/internal/client/models"
)

// Repository is the durable, owner-scoped local cache of journal entries and
// their sync status. Implementations must survive process restarts: the sync
// engine assumes a process may die between submission and confirmation and
// recovers by re-scanning ListUnsynced on the next startup.
//
// Every operation takes the owner address; no cross-owner reads are possible
// through this interface.
type Repository interface {
	// Append inserts a new entry, assigning its insertion-order position.
	Append(ctx context.Context, entry *models.Entry) error

	// Get returns a single entry by id, or common.ErrNotFound.
	Get(ctx context.Context, ownerAddress, entryID string) (*models.Entry, error)

	// ListAll returns the owner's entries newest-first by CreatedAt, with
	// later insertion positions first on ties.
	ListAll(ctx context.Context, ownerAddress string) ([]models.Entry, error)

	// ListUnsynced returns entries whose SyncState is not Confirmed, in
	// insertion order.
	ListUnsynced(ctx context.Context, ownerAddress string) ([]models.Entry, error)

	// UpdateBundle stores freshly computed encryption material for an entry.
	UpdateBundle(ctx context.Context, ownerAddress, entryID string, bundle *models.EncryptionBundle) error

	// MarkSubmitted moves an entry to SubmittedPendingConfirmation.
	MarkSubmitted(ctx context.Context, ownerAddress, entryID string) error

	// MarkLocal falls an entry back to LocalOnly (the retry-failure edge).
	// Confirmed entries are never moved backwards.
	MarkLocal(ctx context.Context, ownerAddress, entryID string) error

	// MarkConfirmed records the ledger reference and moves the entry to
	// Confirmed.
	MarkConfirmed(ctx context.Context, ownerAddress, entryID string, ref models.LedgerRef) error

	// Delete removes an entry from the local cache only; the ledger is
	// append-only and never deletes.
	Delete(ctx context.Context, ownerAddress, entryID string) error
}
