package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerink/ledgerink/internal/logging"
	"github.com/ledgerink/ledgerink/internal/server/config"
	"github.com/ledgerink/ledgerink/internal/server/services"
)

// NewRouter assembles the gateway's routes:
//
//	GET  /health                       — liveness probe
//	GET  /api/v1/ledger/status         — paused/available
//	POST /api/v1/ledger/append         — direct append (rate limited)
//	GET  /api/v1/ledger/entries/{owner}
//	GET  /api/v1/ledger/sentiment      — global aggregate
//	POST /api/v1/relay/append          — sponsored append (sponsor JWT)
//	POST /api/v1/admin/pause           — suspend/resume appends (sponsor JWT)
func NewRouter(cfg *config.Config, svc *services.LedgerService, logger logging.Logger) chi.Router {
	h := NewLedgerHandler(svc, logger)

	r := chi.NewRouter()
	r.Use(RequestLogger(logger))
	r.Use(Recoverer(logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/api/v1/ledger/status", h.HandleStatus)
	r.Get("/api/v1/ledger/entries/{owner}", h.HandleList)
	r.Get("/api/v1/ledger/sentiment", h.HandleAggregate)

	r.Group(func(r chi.Router) {
		r.Use(RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
		r.Post("/api/v1/ledger/append", h.HandleAppend)
	})

	r.Group(func(r chi.Router) {
		r.Use(SponsorAuth([]byte(cfg.SecretKey)))
		r.Post("/api/v1/relay/append", h.HandleRelayAppend)
		r.Post("/api/v1/admin/pause", h.HandleSetPaused)
	})

	return r
}
