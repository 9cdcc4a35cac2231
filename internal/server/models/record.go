// Package models defines the gateway-side data model of the ledger.
package models

import "time"

// LedgerRecord is one immutable row of the append-only ledger. Rows are never
// updated or deleted; the per-owner sequence id is assigned atomically at
// append time.
type LedgerRecord struct {
	TxID         string
	OwnerAddress string
	SequenceID   int64
	PublicKey    []byte
	Signature    []byte
	Ciphertext   []byte
	Sentiment    int
	ClientTime   int64 // unix milliseconds, client-assigned
	SubmittedAt  time.Time
}

// SentimentAggregate is the global anonymous mood tally.
type SentimentAggregate struct {
	Positive int64
	Negative int64
	Neutral  int64
}
