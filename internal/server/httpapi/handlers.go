// Package httpapi exposes the ledger gateway over HTTP JSON: status, append
// (direct and sponsored), per-owner listing and the sentiment aggregate.
package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerink/ledgerink/internal/api"
	"github.com/ledgerink/ledgerink/internal/common"
	"github.com/ledgerink/ledgerink/internal/logging"
	"github.com/ledgerink/ledgerink/internal/server/models"
	"github.com/ledgerink/ledgerink/internal/server/services"
)

// LedgerHandler adapts LedgerService to HTTP.
type LedgerHandler struct {
	svc    *services.LedgerService
	logger logging.Logger
}

func NewLedgerHandler(svc *services.LedgerService, logger logging.Logger) *LedgerHandler {
	return &LedgerHandler{svc: svc, logger: logger}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, api.ErrorResponse{Message: msg})
}

// writeError maps sentinel errors to HTTP statuses. The paused state uses
// 409 so clients can distinguish "try later, administratively suspended"
// from plain transport failure.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrLedgerPaused):
		writeJSONError(w, http.StatusConflict, "ledger is paused")
	case errors.Is(err, common.ErrInvalidSignature), errors.Is(err, common.ErrInvalidSentiment):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrUnauthorized), errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
		writeJSONError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, common.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "not found")
	default:
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

func encodeCiphertext(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func toWireEntry(rec *models.LedgerRecord) api.LedgerEntry {
	return api.LedgerEntry{
		TxID:         rec.TxID,
		SequenceID:   rec.SequenceID,
		OwnerAddress: rec.OwnerAddress,
		Ciphertext:   encodeCiphertext(rec.Ciphertext),
		Sentiment:    rec.Sentiment,
		ClientTime:   rec.ClientTime,
		SubmittedAt:  rec.SubmittedAt.UnixMilli(),
	}
}

// HandleStatus reports availability. Reads stay open while paused; only
// appends are refused.
func (h *LedgerHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	paused, err := h.svc.IsPaused(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.StatusResponse{Paused: paused})
}

// HandleAppend is the direct, owner-funded append path.
func (h *LedgerHandler) HandleAppend(w http.ResponseWriter, r *http.Request) {
	var req api.AppendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	rec, err := h.svc.Append(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, api.AppendResponse{
		TxID:        rec.TxID,
		SequenceID:  rec.SequenceID,
		SubmittedAt: rec.SubmittedAt.UnixMilli(),
	})
}

// HandleRelayAppend is the sponsored path: identical validation, but the
// write is authorized by the sponsor whose token passed SponsorAuth. The
// owner's signature is still required; sponsorship pays, it never signs.
func (h *LedgerHandler) HandleRelayAppend(w http.ResponseWriter, r *http.Request) {
	var req api.RelayAppendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	sponsorID, _ := SponsorIDFromContext(r.Context())

	rec, err := h.svc.Append(r.Context(), &req.AppendRequest)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info(r.Context(), "sponsored append",
		"sponsor", sponsorID, "tx_id", rec.TxID, "gas_limit_hint", req.GasLimitHint)

	writeJSON(w, http.StatusOK, api.AppendResponse{
		TxID:        rec.TxID,
		SequenceID:  rec.SequenceID,
		SubmittedAt: rec.SubmittedAt.UnixMilli(),
	})
}

// HandleList returns one owner's entries, sequence id ascending.
func (h *LedgerHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	if owner == "" {
		writeJSONError(w, http.StatusBadRequest, "missing owner address")
		return
	}

	recs, err := h.svc.ListByOwner(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := api.ListResponse{Entries: make([]api.LedgerEntry, 0, len(recs))}
	for i := range recs {
		resp.Entries = append(resp.Entries, toWireEntry(&recs[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleAggregate returns the global anonymous sentiment tally.
func (h *LedgerHandler) HandleAggregate(w http.ResponseWriter, r *http.Request) {
	agg, err := h.svc.Aggregate(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.AggregateResponse{
		Positive: agg.Positive,
		Negative: agg.Negative,
		Neutral:  agg.Neutral,
	})
}

type pauseRequest struct {
	Paused bool `json:"paused"`
}

// HandleSetPaused suspends or resumes appends. Sponsor-authenticated.
func (h *LedgerHandler) HandleSetPaused(w http.ResponseWriter, r *http.Request) {
	var req pauseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if err := h.svc.SetPaused(r.Context(), req.Paused); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.StatusResponse{Paused: req.Paused})
}
