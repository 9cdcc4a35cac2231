// Package services implements the gateway's ledger semantics: append
// validation and authorization checks, owner queries and the global
// sentiment aggregate.
package services

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"github.com/ledgerink/ledgerink/internal/api"
	"github.com/ledgerink/ledgerink/internal/common"
	"github.com/ledgerink/ledgerink/internal/logging"
	"github.com/ledgerink/ledgerink/internal/sentiment"
	"github.com/ledgerink/ledgerink/internal/server/models"
	"github.com/ledgerink/ledgerink/internal/server/repositories/records"
	"github.com/ledgerink/ledgerink/internal/wallet"
)

// LedgerService validates and persists appends. Entry text is opaque
// ciphertext to this layer; only the envelope (owner, signature, sentiment
// code) is inspected.
type LedgerService struct {
	repo   records.Repository
	logger logging.Logger
}

func NewLedgerService(repo records.Repository, logger logging.Logger) *LedgerService {
	return &LedgerService{repo: repo, logger: logger}
}

// Append verifies the request envelope and writes one immutable ledger row.
//
// Checks, in order: ledger not paused, sentiment code in range, public key
// matches the claimed owner address, signature valid over the canonical
// signing bytes, ciphertext present. Each failure maps to a sentinel error
// the HTTP layer translates to a status code.
func (s *LedgerService) Append(ctx context.Context, req *api.AppendRequest) (*models.LedgerRecord, error) {
	paused, err := s.repo.IsPaused(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInternal, err)
	}
	if paused {
		return nil, common.ErrLedgerPaused
	}

	if _, err := sentiment.FromCode(req.Sentiment); err != nil {
		return nil, err
	}

	pub, err := hex.DecodeString(req.PublicKey)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: malformed public key", common.ErrInvalidSignature)
	}
	if wallet.DeriveAddress(pub) != req.OwnerAddress {
		return nil, fmt.Errorf("%w: public key does not match owner address", common.ErrInvalidSignature)
	}

	sig, err := hex.DecodeString(req.Signature)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed signature", common.ErrInvalidSignature)
	}
	payload := api.SigningBytes(req.OwnerAddress, req.Ciphertext, req.Sentiment, req.ClientTime)
	if !ed25519.Verify(pub, payload, sig) {
		return nil, common.ErrInvalidSignature
	}

	ciphertext, err := base64.StdEncoding.DecodeString(req.Ciphertext)
	if err != nil || len(ciphertext) == 0 {
		return nil, fmt.Errorf("%w: malformed ciphertext", common.ErrInvalidSignature)
	}

	rec := &models.LedgerRecord{
		TxID:         uuid.NewString(),
		OwnerAddress: req.OwnerAddress,
		PublicKey:    pub,
		Signature:    sig,
		Ciphertext:   ciphertext,
		Sentiment:    req.Sentiment,
		ClientTime:   req.ClientTime,
	}
	if err := s.repo.Append(ctx, rec); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInternal, err)
	}

	s.logger.Info(ctx, "entry appended",
		"tx_id", rec.TxID, "owner", rec.OwnerAddress, "sequence_id", rec.SequenceID)
	return rec, nil
}

// ListByOwner returns the owner's records, sequence id ascending.
func (s *LedgerService) ListByOwner(ctx context.Context, ownerAddress string) ([]models.LedgerRecord, error) {
	recs, err := s.repo.ListByOwner(ctx, ownerAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInternal, err)
	}
	return recs, nil
}

// Aggregate returns the global anonymous sentiment counts.
func (s *LedgerService) Aggregate(ctx context.Context) (*models.SentimentAggregate, error) {
	agg, err := s.repo.Aggregate(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInternal, err)
	}
	return agg, nil
}

// IsPaused reports the administrative pause state.
func (s *LedgerService) IsPaused(ctx context.Context) (bool, error) {
	paused, err := s.repo.IsPaused(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %v", common.ErrInternal, err)
	}
	return paused, nil
}

// SetPaused suspends or resumes appends. Reads stay available either way.
func (s *LedgerService) SetPaused(ctx context.Context, paused bool) error {
	if err := s.repo.SetPaused(ctx, paused); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInternal, err)
	}
	s.logger.Info(ctx, "ledger pause state changed", "paused", paused)
	return nil
}
