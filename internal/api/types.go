// Package api defines the JSON wire types shared by the ledger gateway and
// the client's ledger adapter, plus the canonical byte string both sides
// sign and verify for append authorization.
package api

import "fmt"

// AppendRequest is the payload of a direct append. The ciphertext is opaque
// to the ledger; the sentiment code is a small closed enumeration validated
// at the ledger boundary.
type AppendRequest struct {
	OwnerAddress string `json:"owner_address"`
	PublicKey    string `json:"public_key"` // hex-encoded ed25519 public key
	Signature    string `json:"signature"`  // hex-encoded signature over SigningBytes
	Ciphertext   string `json:"ciphertext"` // base64
	Sentiment    int    `json:"sentiment"`
	ClientTime   int64  `json:"client_time"` // unix milliseconds, client-assigned
}

// RelayAppendRequest is the sponsored variant: the same payload plus a gas
// limit hint, authorized by a registered sponsor's bearer token rather than
// the owner funding the write.
type RelayAppendRequest struct {
	AppendRequest
	GasLimitHint int64 `json:"gas_limit_hint"`
}

// AppendResponse reports the ledger-assigned identifiers of a confirmed
// append.
type AppendResponse struct {
	TxID        string `json:"tx_id"`
	SequenceID  int64  `json:"sequence_id"`
	SubmittedAt int64  `json:"submitted_at"` // unix milliseconds, ledger-assigned
}

// LedgerEntry is a single immutable ledger record as returned by the
// list-for-owner query, ordered by SequenceID ascending.
type LedgerEntry struct {
	TxID         string `json:"tx_id"`
	SequenceID   int64  `json:"sequence_id"`
	OwnerAddress string `json:"owner_address"`
	Ciphertext   string `json:"ciphertext"` // base64
	Sentiment    int    `json:"sentiment"`
	ClientTime   int64  `json:"client_time"`
	SubmittedAt  int64  `json:"submitted_at"`
}

// ListResponse wraps a single owner's entries.
type ListResponse struct {
	Entries []LedgerEntry `json:"entries"`
}

// AggregateResponse carries global sentiment counts across all owners,
// never attributed to individuals.
type AggregateResponse struct {
	Positive int64 `json:"positive"`
	Negative int64 `json:"negative"`
	Neutral  int64 `json:"neutral"`
}

// StatusResponse reports ledger-side availability.
type StatusResponse struct {
	Paused bool `json:"paused"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Message string `json:"message"`
}

// SigningBytes is the canonical byte string an owner signs to authorize an
// append. Both the client and the gateway must build it identically.
func SigningBytes(ownerAddress, ciphertextB64 string, sentiment int, clientTime int64) []byte {
	return fmt.Appendf(nil, "ledgerink/append/v1\n%s\n%s\n%d\n%d", ownerAddress, ciphertextB64, sentiment, clientTime)
}
