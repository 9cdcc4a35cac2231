package ledger

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerink/ledgerink/internal/api"
	"github.com/ledgerink/ledgerink/internal/common"
	"github.com/ledgerink/ledgerink/internal/logging"
	"github.com/ledgerink/ledgerink/internal/sentiment"
	"github.com/ledgerink/ledgerink/internal/wallet"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testSigner(t *testing.T) *wallet.Wallet {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	copy(seed, []byte("ledger http test seed..........!"))
	return wallet.New(ed25519.NewKeyFromSeed(seed), wallet.AutoApprove)
}

func rejectingSigner(t *testing.T) *wallet.Wallet {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	deny := wallet.ApproverFunc(func(context.Context, string, string) (bool, error) {
		return false, nil
	})
	return wallet.New(ed25519.NewKeyFromSeed(seed), deny)
}

// gatewayStub is a minimal in-process gateway: status, append, relay.
type gatewayStub struct {
	paused       bool
	relayStatus  int // 0 means accept
	directCalls  int
	relayCalls   int
	lastAppend   api.AppendRequest
	nextSequence int64
}

func (g *gatewayStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/ledger/status", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.StatusResponse{Paused: g.paused})
	})
	appendOK := func(w http.ResponseWriter) {
		g.nextSequence++
		json.NewEncoder(w).Encode(api.AppendResponse{
			TxID:        "tx-1",
			SequenceID:  g.nextSequence,
			SubmittedAt: time.Now().UnixMilli(),
		})
	}
	mux.HandleFunc("POST /api/v1/ledger/append", func(w http.ResponseWriter, r *http.Request) {
		g.directCalls++
		if g.paused {
			w.WriteHeader(http.StatusConflict)
			return
		}
		json.NewDecoder(r.Body).Decode(&g.lastAppend)
		appendOK(w)
	})
	mux.HandleFunc("POST /api/v1/relay/append", func(w http.ResponseWriter, r *http.Request) {
		g.relayCalls++
		if g.relayStatus != 0 {
			w.WriteHeader(g.relayStatus)
			json.NewEncoder(w).Encode(api.ErrorResponse{Message: "relay refused"})
			return
		}
		appendOK(w)
	})
	mux.HandleFunc("GET /api/v1/ledger/sentiment", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.AggregateResponse{Positive: 3, Negative: 1, Neutral: 2})
	})
	mux.HandleFunc("GET /api/v1/ledger/entries/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.ListResponse{Entries: []api.LedgerEntry{
			{TxID: "a", SequenceID: 1},
			{TxID: "b", SequenceID: 2},
		}})
	})
	return mux
}

func TestSubmitConfirmed(t *testing.T) {
	g := &gatewayStub{}
	srv := httptest.NewServer(g.handler())
	defer srv.Close()

	signer := testSigner(t)
	c := NewHTTPClient(srv.URL, signer)

	ct := []byte("ciphertext bytes")
	ref, err := c.Submit(context.Background(), SubmitRequest{
		Ciphertext: ct,
		Sentiment:  sentiment.LabelNeutral,
		CreatedAt:  time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, "tx-1", ref.TxID)
	assert.Equal(t, int64(1), ref.SequenceID)

	// The wire payload carries the owner identity and a verifiable signature.
	assert.Equal(t, signer.Address(), g.lastAppend.OwnerAddress)
	assert.Equal(t, base64.StdEncoding.EncodeToString(ct), g.lastAppend.Ciphertext)

	sig, err := hex.DecodeString(g.lastAppend.Signature)
	require.NoError(t, err)
	payload := api.SigningBytes(g.lastAppend.OwnerAddress, g.lastAppend.Ciphertext, g.lastAppend.Sentiment, g.lastAppend.ClientTime)
	assert.True(t, ed25519.Verify(signer.PublicKey(), payload, sig))
}

func TestSubmitPausedShortCircuit(t *testing.T) {
	g := &gatewayStub{paused: true}
	srv := httptest.NewServer(g.handler())
	defer srv.Close()

	// The rejecting signer would fail the test if the wallet were prompted:
	// the paused check must come first.
	c := NewHTTPClient(srv.URL, rejectingSigner(t))

	_, err := c.Submit(context.Background(), SubmitRequest{Ciphertext: []byte("x"), Sentiment: sentiment.LabelNeutral, CreatedAt: time.Now()})
	assert.ErrorIs(t, err, common.ErrLedgerPaused)
	assert.Zero(t, g.directCalls)
}

func TestSubmitNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // immediately unreachable

	c := NewHTTPClient(srv.URL, testSigner(t))

	_, err := c.Submit(context.Background(), SubmitRequest{Ciphertext: []byte("x"), Sentiment: sentiment.LabelNeutral, CreatedAt: time.Now()})
	assert.ErrorIs(t, err, common.ErrNetworkUnavailable)
	assert.False(t, c.IsAvailable(context.Background()))
}

func TestSubmitUserRejected(t *testing.T) {
	g := &gatewayStub{}
	srv := httptest.NewServer(g.handler())
	defer srv.Close()

	c := NewHTTPClient(srv.URL, rejectingSigner(t))

	_, err := c.Submit(context.Background(), SubmitRequest{Ciphertext: []byte("x"), Sentiment: sentiment.LabelNeutral, CreatedAt: time.Now()})
	assert.ErrorIs(t, err, common.ErrUserRejected)
	assert.NotErrorIs(t, err, common.ErrNetworkUnavailable)
	assert.Zero(t, g.directCalls)
}

func TestListForOwnerAndAggregate(t *testing.T) {
	g := &gatewayStub{}
	srv := httptest.NewServer(g.handler())
	defer srv.Close()

	c := NewHTTPClient(srv.URL, testSigner(t))

	entries, err := c.ListForOwner(context.Background(), "0xabc")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(1), entries[0].SequenceID)

	agg, err := c.ReadAggregate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), agg.Positive)
	assert.Equal(t, int64(2), agg.Neutral)
}

func TestRelayFallsBackToDirect(t *testing.T) {
	g := &gatewayStub{relayStatus: http.StatusBadGateway}
	srv := httptest.NewServer(g.handler())
	defer srv.Close()

	direct := NewHTTPClient(srv.URL, testSigner(t))
	logger := logging.NewSlogLogger(newDiscardLogger())
	relay := NewRelayClient(direct, "sponsor-token", 90000, logger)

	ref, err := relay.Submit(context.Background(), SubmitRequest{Ciphertext: []byte("x"), Sentiment: sentiment.LabelPositive, CreatedAt: time.Now()})
	require.NoError(t, err)
	assert.NotNil(t, ref)

	assert.Equal(t, 1, g.relayCalls)
	assert.Equal(t, 1, g.directCalls)
}

func TestRelayPreferredWhenHealthy(t *testing.T) {
	g := &gatewayStub{}
	srv := httptest.NewServer(g.handler())
	defer srv.Close()

	direct := NewHTTPClient(srv.URL, testSigner(t))
	logger := logging.NewSlogLogger(newDiscardLogger())
	relay := NewRelayClient(direct, "sponsor-token", 90000, logger)

	_, err := relay.Submit(context.Background(), SubmitRequest{Ciphertext: []byte("x"), Sentiment: sentiment.LabelPositive, CreatedAt: time.Now()})
	require.NoError(t, err)

	assert.Equal(t, 1, g.relayCalls)
	assert.Zero(t, g.directCalls)
}

func TestRelayDoesNotRetryUserRejection(t *testing.T) {
	g := &gatewayStub{}
	srv := httptest.NewServer(g.handler())
	defer srv.Close()

	direct := NewHTTPClient(srv.URL, rejectingSigner(t))
	logger := logging.NewSlogLogger(newDiscardLogger())
	relay := NewRelayClient(direct, "sponsor-token", 90000, logger)

	_, err := relay.Submit(context.Background(), SubmitRequest{Ciphertext: []byte("x"), Sentiment: sentiment.LabelNeutral, CreatedAt: time.Now()})
	assert.ErrorIs(t, err, common.ErrUserRejected)
	assert.Zero(t, g.relayCalls)
	assert.Zero(t, g.directCalls)
}
