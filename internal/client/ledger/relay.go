package ledger

import (
	"context"
	"errors"

	"github.com/ledgerink/ledgerink/internal/api"
	"github.com/ledgerink/ledgerink/internal/client/models"
	"github.com/ledgerink/ledgerink/internal/common"
	"github.com/ledgerink/ledgerink/internal/logging"
)

// RelayClient submits through a gas-sponsorship relayer: the same Submit
// contract, but the write is authorized by a registered sponsor's bearer
// token instead of the owner funding the transaction. Any sponsorship
// failure falls back to the direct path rather than failing silently; the
// wallet is prompted once and the same signature serves both attempts.
type RelayClient struct {
	*HTTPClient
	sponsorToken string
	gasLimitHint int64
	logger       logging.Logger
}

// NewRelayClient decorates direct with the sponsored path.
func NewRelayClient(direct *HTTPClient, sponsorToken string, gasLimitHint int64, logger logging.Logger) *RelayClient {
	return &RelayClient{
		HTTPClient:   direct,
		sponsorToken: sponsorToken,
		gasLimitHint: gasLimitHint,
		logger:       logger,
	}
}

// Submit tries the sponsored endpoint first. Ledger pause and user rejection
// are terminal for the attempt either way, so only genuine sponsorship
// failures (bad token, relay outage, gateway refusal) trigger the fallback.
func (c *RelayClient) Submit(ctx context.Context, req SubmitRequest) (*models.LedgerRef, error) {
	signed, err := c.authorize(ctx, req)
	if err != nil {
		return nil, err
	}

	relayBody := &api.RelayAppendRequest{
		AppendRequest: *signed,
		GasLimitHint:  c.gasLimitHint,
	}
	headers := map[string]string{
		common.SponsorTokenHeaderName: "Bearer " + c.sponsorToken,
	}

	ref, err := c.postAppend(ctx, "/api/v1/relay/append", relayBody, headers)
	if err == nil {
		return ref, nil
	}
	if errors.Is(err, common.ErrLedgerPaused) || errors.Is(err, common.ErrUserRejected) {
		return nil, err
	}

	c.logger.Warn(ctx, "sponsored submission failed, falling back to direct path", "error", err.Error())
	return c.postAppend(ctx, "/api/v1/ledger/append", signed, nil)
}
