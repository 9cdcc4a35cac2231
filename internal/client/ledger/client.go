// Package ledger contains the client-side building blocks for talking to the
// append-only ledger gateway.
//
// The package provides:
//  1. A transport-agnostic contract (see the Client interface): submit an
//     encrypted entry, list a single owner's entries, read the global
//     sentiment aggregate, and probe availability.
//  2. A concrete HTTP JSON implementation (see HTTPClient) that authorizes
//     each submission through the wallet signer and maps transport and
//     gateway conditions to the sentinel errors in internal/common.
//  3. A sponsored-submission decorator (see RelayClient) that performs the
//     same Submit contract through a third-party relayer and falls back to
//     the direct path when sponsorship fails.
//
// Submission has exactly three outcomes, distinguished with errors.Is:
// confirmed (nil error, non-nil LedgerRef), rejected by the user
// (common.ErrUserRejected, not retried automatically), and failed
// (common.ErrNetworkUnavailable or common.ErrLedgerPaused, safe to retry).
package ledger

import (
	"context"
	"time"

	"github.com/ledgerink/ledgerink/internal/api"
	"github.com/ledgerink/ledgerink/internal/client/models"
	"github.com/ledgerink/ledgerink/internal/sentiment"
)

// Signer is the part of the wallet the ledger client needs: an identity and
// an interactive authorization gate for ledger-mutating payloads.
type Signer interface {
	Address() string
	PublicKey() []byte
	AuthorizeAppend(ctx context.Context, payload []byte) ([]byte, error)
}

// SubmitRequest carries one encrypted entry to append.
type SubmitRequest struct {
	Ciphertext []byte
	Sentiment  sentiment.Label
	CreatedAt  time.Time
}

// Client is the transactional interface to the remote append-only ledger.
type Client interface {
	// Submit appends one encrypted entry on behalf of the signer's owner
	// address and suspends until the ledger confirms it.
	Submit(ctx context.Context, req SubmitRequest) (*models.LedgerRef, error)

	// ListForOwner returns the owner's ledger entries ordered by sequence id
	// ascending. Callers reverse/merge with local data themselves.
	ListForOwner(ctx context.Context, ownerAddress string) ([]api.LedgerEntry, error)

	// ReadAggregate returns the global sentiment counts.
	ReadAggregate(ctx context.Context) (*api.AggregateResponse, error)

	// IsAvailable reports whether the ledger is reachable and not paused.
	IsAvailable(ctx context.Context) bool
}
