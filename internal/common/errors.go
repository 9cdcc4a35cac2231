// Package common defines shared constants and sentinel errors used across
// client and server layers of LedgerInk. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")
	ErrStorage  = errors.New("local storage failure")

	// Service-level errors (generic/internal flow control).
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")

	// Submission outcomes. ErrUserRejected is terminal for the attempt and is
	// never retried automatically; the other two are retryable.
	ErrUserRejected       = errors.New("rejected by user")
	ErrNetworkUnavailable = errors.New("network unavailable")
	ErrLedgerPaused       = errors.New("ledger paused")

	// ErrIntegrity reports an authenticated-decryption failure: the
	// ciphertext was tampered with or the wrong key was supplied. Never
	// retried with the same key.
	ErrIntegrity = errors.New("ciphertext integrity check failed")

	// Validation errors at the ledger boundary.
	ErrInvalidSentiment = errors.New("invalid sentiment label")
	ErrInvalidSignature = errors.New("invalid signature")

	// Sponsor/relay auth errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
