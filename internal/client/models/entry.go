// Package models defines client-side data models for the LedgerInk journal.
package models

import "time"

// SyncState tracks where an entry is in its submission lifecycle. Transitions
// run strictly forward (LocalOnly -> Submitted -> Confirmed) except for the
// retry-failure edge Submitted -> LocalOnly. Confirmed never regresses: the
// ledger is append-only.
type SyncState string

const (
	SyncStateLocalOnly SyncState = "local_only"
	SyncStateSubmitted SyncState = "submitted_pending_confirmation"
	SyncStateConfirmed SyncState = "confirmed"
)

// EncryptionBundle holds everything needed to reproduce an entry's
// ciphertext handling. The signature is sufficient to re-derive the key at
// any time without re-prompting the wallet; the fingerprint identifies the
// derived key without exposing it.
type EncryptionBundle struct {
	// Ciphertext is the nonce-prefixed AEAD output for the entry text.
	Ciphertext []byte

	// KeyFingerprint identifies the signature-derived key.
	KeyFingerprint string

	// Signature is the wallet signature the key was derived from.
	Signature []byte
}

// LedgerRef identifies a confirmed on-chain record.
type LedgerRef struct {
	// TxID is the ledger transaction identifier.
	TxID string

	// SequenceID is the ledger-assigned, per-owner monotonic counter.
	SequenceID int64
}

// Entry is a single journal record. Plaintext lives only in memory and the
// local cache; the ledger ever sees only the bundle ciphertext.
type Entry struct {
	// ID is assigned at creation time and stable for the entry's lifetime.
	ID string

	// OwnerAddress partitions all storage; no cross-owner reads exist.
	OwnerAddress string

	// CreatedAt is the client-assigned creation timestamp, the logical clock
	// for ordering. Immutable.
	CreatedAt time.Time

	// Position is the local insertion order, the stable tie-break for
	// entries sharing the same CreatedAt.
	Position int64

	Plaintext string
	Sentiment string

	// Bundle is present once encryption has occurred.
	Bundle *EncryptionBundle

	// Ref is set if and only if SyncState == SyncStateConfirmed.
	Ref *LedgerRef

	SyncState SyncState

	// Locked marks a ledger entry this device holds no key material for
	// (or whose ciphertext failed its integrity check). In-memory only.
	Locked bool

	// StorageDegraded marks an entry whose local persistence failed; it is
	// usable for the current session but will not survive a restart.
	// In-memory only.
	StorageDegraded bool
}

// Confirmed reports whether the entry has a ledger record.
func (e *Entry) Confirmed() bool {
	return e.SyncState == SyncStateConfirmed && e.Ref != nil
}
