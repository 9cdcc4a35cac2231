package ledger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ledgerink/ledgerink/internal/api"
	"github.com/ledgerink/ledgerink/internal/client/models"
	"github.com/ledgerink/ledgerink/internal/common"
)

// HTTPClient is the direct (owner-funded) JSON adapter for the ledger
// gateway.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	signer     Signer
}

// NewHTTPClient builds a client for the gateway at baseURL, authorizing
// submissions through signer.
func NewHTTPClient(baseURL string, signer Signer) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		signer:  signer,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// IsAvailable probes the gateway status endpoint. Unreachable or paused both
// count as unavailable; Submit distinguishes the two.
func (c *HTTPClient) IsAvailable(ctx context.Context) bool {
	status, err := c.readStatus(ctx)
	return err == nil && !status.Paused
}

func (c *HTTPClient) readStatus(ctx context.Context) (*api.StatusResponse, error) {
	var status api.StatusResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/ledger/status", nil, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Submit appends one entry through the direct path. The availability check
// runs before the wallet prompt so a write the ledger would certainly refuse
// never costs the user a signature.
func (c *HTTPClient) Submit(ctx context.Context, req SubmitRequest) (*models.LedgerRef, error) {
	signed, err := c.authorize(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.postAppend(ctx, "/api/v1/ledger/append", signed, nil)
}

// authorize runs the pre-submission pipeline shared by the direct and
// relayed paths: availability short-circuit, payload construction, and the
// interactive wallet authorization.
func (c *HTTPClient) authorize(ctx context.Context, req SubmitRequest) (*api.AppendRequest, error) {
	status, err := c.readStatus(ctx)
	if err != nil {
		return nil, err
	}
	if status.Paused {
		return nil, common.ErrLedgerPaused
	}

	body := &api.AppendRequest{
		OwnerAddress: c.signer.Address(),
		PublicKey:    hex.EncodeToString(c.signer.PublicKey()),
		Ciphertext:   base64.StdEncoding.EncodeToString(req.Ciphertext),
		Sentiment:    req.Sentiment.Code(),
		ClientTime:   req.CreatedAt.UnixMilli(),
	}

	payload := api.SigningBytes(body.OwnerAddress, body.Ciphertext, body.Sentiment, body.ClientTime)
	sig, err := c.signer.AuthorizeAppend(ctx, payload)
	if err != nil {
		// common.ErrUserRejected passes through untouched: a declined
		// signature is a user decision, never a transport failure.
		return nil, err
	}
	body.Signature = hex.EncodeToString(sig)
	return body, nil
}

func (c *HTTPClient) postAppend(ctx context.Context, path string, body any, headers map[string]string) (*models.LedgerRef, error) {
	var resp api.AppendResponse
	if err := c.doRequest(ctx, http.MethodPost, path, headers, body, &resp); err != nil {
		return nil, err
	}
	return &models.LedgerRef{TxID: resp.TxID, SequenceID: resp.SequenceID}, nil
}

// ListForOwner returns the owner's entries, sequence id ascending.
func (c *HTTPClient) ListForOwner(ctx context.Context, ownerAddress string) ([]api.LedgerEntry, error) {
	var resp api.ListResponse
	path := "/api/v1/ledger/entries/" + ownerAddress
	if err := c.doRequest(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

// ReadAggregate returns the global sentiment counts.
func (c *HTTPClient) ReadAggregate(ctx context.Context) (*api.AggregateResponse, error) {
	var resp api.AggregateResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/ledger/sentiment", nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// doRequest performs one JSON request/response exchange and maps failure
// classes to sentinel errors.
func (c *HTTPClient) doRequest(ctx context.Context, method, path string, headers map[string]string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", common.ErrNetworkUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return mapStatusError(resp.StatusCode, respBody)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func mapStatusError(status int, body []byte) error {
	msg := ""
	var errResp api.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		msg = errResp.Message
	}

	switch status {
	case http.StatusConflict:
		return common.ErrLedgerPaused
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", common.ErrUnauthorized, msg)
	case http.StatusNotFound:
		return common.ErrNotFound
	default:
		return fmt.Errorf("gateway error (%d): %s", status, msg)
	}
}
