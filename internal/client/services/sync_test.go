package services

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/ledgerink/ledgerink/internal/api"
	"github.com/ledgerink/ledgerink/internal/client/ledger"
	"github.com/ledgerink/ledgerink/internal/client/localdb"
	"github.com/ledgerink/ledgerink/internal/client/models"
	"github.com/ledgerink/ledgerink/internal/client/repositories/entries"
	"github.com/ledgerink/ledgerink/internal/common"
	"github.com/ledgerink/ledgerink/internal/logging"
	"github.com/ledgerink/ledgerink/internal/wallet"
)

// fakeLedger is an in-memory ledger.Client. Every confirmed submission
// becomes a ledger record visible through ListForOwner, exactly as the
// gateway would behave, so load-and-merge can be tested end to end.
type fakeLedger struct {
	mu      sync.Mutex
	nextSeq int64
	records []api.LedgerEntry

	submits   int
	submitErr error
	failFirst int // fail this many submits before succeeding
}

func (f *fakeLedger) Submit(ctx context.Context, req ledger.SubmitRequest) (*models.LedgerRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.submits++
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrNetworkUnavailable, err)
	}
	if f.submitErr != nil && (f.failFirst == 0 || f.submits <= f.failFirst) {
		return nil, f.submitErr
	}

	f.nextSeq++
	rec := api.LedgerEntry{
		TxID:         fmt.Sprintf("tx-%d", f.nextSeq),
		SequenceID:   f.nextSeq,
		Ciphertext:   base64.StdEncoding.EncodeToString(req.Ciphertext),
		Sentiment:    req.Sentiment.Code(),
		ClientTime:   req.CreatedAt.UnixMilli(),
		SubmittedAt:  time.Now().UnixMilli(),
		OwnerAddress: "",
	}
	f.records = append(f.records, rec)
	return &models.LedgerRef{TxID: rec.TxID, SequenceID: rec.SequenceID}, nil
}

func (f *fakeLedger) ListForOwner(ctx context.Context, owner string) ([]api.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]api.LedgerEntry, len(f.records))
	copy(out, f.records)
	for i := range out {
		out[i].OwnerAddress = owner
	}
	return out, nil
}

func (f *fakeLedger) ReadAggregate(ctx context.Context) (*api.AggregateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	agg := &api.AggregateResponse{}
	for _, r := range f.records {
		switch r.Sentiment {
		case 1:
			agg.Positive++
		case 2:
			agg.Negative++
		default:
			agg.Neutral++
		}
	}
	return agg, nil
}

func (f *fakeLedger) IsAvailable(ctx context.Context) bool { return true }

func (f *fakeLedger) setError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitErr = err
	f.failFirst = 0
}

func testWallet(t *testing.T, seedTag byte) *wallet.Wallet {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	seed[0] = seedTag
	return wallet.New(ed25519.NewKeyFromSeed(seed), wallet.AutoApprove)
}

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.DiscardHandler))
}

func newTestRepo(t *testing.T) entries.Repository {
	t.Helper()
	db, err := localdb.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return entries.NewSQLiteRepository(db)
}

func newTestCoordinator(t *testing.T, lc ledger.Client) (*Coordinator, entries.Repository) {
	t.Helper()
	repo := newTestRepo(t)
	c := NewCoordinator(testWallet(t, 1), repo, lc, discardLogger())
	return c, repo
}

func TestCreateEntryConfirmed(t *testing.T) {
	fl := &fakeLedger{}
	c, repo := newTestCoordinator(t, fl)
	ctx := context.Background()

	e, err := c.CreateEntry(ctx, "felt great today", "positive")
	require.NoError(t, err)

	assert.Equal(t, models.SyncStateConfirmed, e.SyncState)
	require.NotNil(t, e.Ref)
	assert.Equal(t, "tx-1", e.Ref.TxID)
	require.NotNil(t, e.Bundle)
	assert.NotContains(t, string(e.Bundle.Ciphertext), "felt great")

	// The confirmed state survived to disk.
	got, err := repo.Get(ctx, c.Owner(), e.ID)
	require.NoError(t, err)
	assert.True(t, got.Confirmed())
	assert.Equal(t, int64(1), got.Ref.SequenceID)
}

func TestCreateEntryOfflineStaysLocal(t *testing.T) {
	fl := &fakeLedger{submitErr: common.ErrNetworkUnavailable}
	c, repo := newTestCoordinator(t, fl)
	ctx := context.Background()

	e, err := c.CreateEntry(ctx, "written on a plane", "neutral")
	assert.ErrorIs(t, err, common.ErrNetworkUnavailable)

	// The entry exists, encrypted, cached, waiting for a retry.
	require.NotNil(t, e.Bundle)
	assert.Equal(t, models.SyncStateLocalOnly, e.SyncState)

	got, err := repo.Get(ctx, c.Owner(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStateLocalOnly, got.SyncState)
	assert.Nil(t, got.Ref)
}

func TestCreateEntryKeyDerivationRejected(t *testing.T) {
	deny := wallet.ApproverFunc(func(context.Context, string, string) (bool, error) {
		return false, nil
	})
	seed := make([]byte, ed25519.SeedSize)
	w := wallet.New(ed25519.NewKeyFromSeed(seed), deny)

	fl := &fakeLedger{}
	repo := newTestRepo(t)
	c := NewCoordinator(w, repo, fl, discardLogger())
	ctx := context.Background()

	e, err := c.CreateEntry(ctx, "no signature given", "neutral")
	assert.ErrorIs(t, err, common.ErrUserRejected)

	// Nothing was submitted, but the plaintext is not lost.
	assert.Zero(t, fl.submits)
	got, gerr := repo.Get(ctx, c.Owner(), e.ID)
	require.NoError(t, gerr)
	assert.Equal(t, "no signature given", got.Plaintext)
	assert.Nil(t, got.Bundle)
}

func TestSyncPendingDrainsBacklog(t *testing.T) {
	fl := &fakeLedger{submitErr: common.ErrNetworkUnavailable}
	c, _ := newTestCoordinator(t, fl)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := c.CreateEntry(ctx, fmt.Sprintf("offline note %d", i), "neutral")
		assert.ErrorIs(t, err, common.ErrNetworkUnavailable)
	}

	fl.setError(nil)
	report, err := c.SyncPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Synced)
	assert.Empty(t, report.Failures)

	// Nothing left to sync.
	report, err = c.SyncPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Synced)
}

func TestSyncPendingPartialFailure(t *testing.T) {
	fl := &fakeLedger{submitErr: common.ErrNetworkUnavailable}
	c, repo := newTestCoordinator(t, fl)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		c.CreateEntry(ctx, fmt.Sprintf("entry %d", i), "neutral")
	}

	// The first submit of the batch fails, the remaining four succeed. The
	// batch must not abort on the failure.
	fl.mu.Lock()
	fl.failFirst = fl.submits + 1
	fl.mu.Unlock()

	report, err := c.SyncPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Synced)
	require.Len(t, report.Failures, 1)
	assert.ErrorIs(t, report.Failures[0].Err, common.ErrNetworkUnavailable)

	// The failed entry is back in LocalOnly, retryable.
	got, err := repo.Get(ctx, c.Owner(), report.Failures[0].EntryID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStateLocalOnly, got.SyncState)

	// A second pass picks up exactly the straggler.
	report, err = c.SyncPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Synced)
	assert.Empty(t, report.Failures)
}

func TestSyncPendingEncryptsPlainBacklog(t *testing.T) {
	// First creation attempt happens while the user refuses to sign; the
	// plaintext is cached without a bundle. Once a key exists, SyncPending
	// finishes the job.
	approvals := 0
	flaky := wallet.ApproverFunc(func(context.Context, string, string) (bool, error) {
		approvals++
		return approvals > 1, nil
	})
	seed := make([]byte, ed25519.SeedSize)
	w := wallet.New(ed25519.NewKeyFromSeed(seed), flaky)

	fl := &fakeLedger{}
	repo := newTestRepo(t)
	c := NewCoordinator(w, repo, fl, discardLogger())
	ctx := context.Background()

	first, err := c.CreateEntry(ctx, "unsigned backlog", "neutral")
	assert.ErrorIs(t, err, common.ErrUserRejected)

	// The second creation derives a key and caches it.
	_, err = c.CreateEntry(ctx, "signed fine", "neutral")
	require.NoError(t, err)

	report, err := c.SyncPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Synced)
	assert.Empty(t, report.Failures)

	got, err := repo.Get(ctx, c.Owner(), first.ID)
	require.NoError(t, err)
	assert.True(t, got.Confirmed())
	require.NotNil(t, got.Bundle)
	assert.NotEmpty(t, got.Bundle.Ciphertext)
}

func TestSyncPendingSingleFlight(t *testing.T) {
	fl := &fakeLedger{}
	c, _ := newTestCoordinator(t, fl)

	c.syncing.Store(true)
	report, err := c.SyncPending(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	c.syncing.Store(false)
}

// gatedLedger holds every Submit at the gate, so a test can keep a
// submission in flight while exercising concurrent paths.
type gatedLedger struct {
	*fakeLedger
	entered chan struct{}
	gate    chan struct{}
}

func (g *gatedLedger) Submit(ctx context.Context, req ledger.SubmitRequest) (*models.LedgerRef, error) {
	g.entered <- struct{}{}
	<-g.gate
	return g.fakeLedger.Submit(ctx, req)
}

func TestSyncPendingSkipsInflightSubmission(t *testing.T) {
	gl := &gatedLedger{
		fakeLedger: &fakeLedger{},
		entered:    make(chan struct{}, 4),
		gate:       make(chan struct{}),
	}
	c, repo := newTestCoordinator(t, gl)
	ctx := context.Background()

	created := make(chan *models.Entry, 1)
	go func() {
		e, err := c.CreateEntry(ctx, "still in flight", "neutral")
		assert.NoError(t, err)
		created <- e
	}()

	// Wait until the creation's submission sits inside the ledger call. The
	// entry is persisted as Submitted at this point, so ListUnsynced reports
	// it.
	<-gl.entered

	// A connectivity-triggered sync arriving now must leave the in-flight
	// entry alone instead of appending its ciphertext a second time.
	report, err := c.SyncPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Synced)
	assert.Empty(t, report.Failures)

	close(gl.gate)
	e := <-created

	// Exactly one ledger record came out of one user entry.
	recs, err := gl.ListForOwner(ctx, c.Owner())
	require.NoError(t, err)
	require.Len(t, recs, 1)

	got, err := repo.Get(ctx, c.Owner(), e.ID)
	require.NoError(t, err)
	assert.True(t, got.Confirmed())
}

func TestCreateEntryInvalidLabelRejected(t *testing.T) {
	fl := &fakeLedger{}
	c, repo := newTestCoordinator(t, fl)
	ctx := context.Background()

	e, err := c.CreateEntry(ctx, "some text", "furious")
	assert.ErrorIs(t, err, common.ErrInvalidSentiment)
	assert.Nil(t, e)
	assert.Zero(t, fl.submits)

	list, err := repo.ListAll(ctx, c.Owner())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestLoadEntriesMergeAndOrder(t *testing.T) {
	fl := &fakeLedger{}
	c, _ := newTestCoordinator(t, fl)
	ctx := context.Background()

	first, err := c.CreateEntry(ctx, "first", "neutral")
	require.NoError(t, err)
	second, err := c.CreateEntry(ctx, "second", "positive")
	require.NoError(t, err)

	list, err := c.LoadEntries(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	// Newest first, plaintext intact, no duplicates from the ledger echo.
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
	assert.Equal(t, "second", list[0].Plaintext)
	assert.Equal(t, "first", list[1].Plaintext)
}

func TestLoadEntriesIdempotent(t *testing.T) {
	fl := &fakeLedger{}
	c, _ := newTestCoordinator(t, fl)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := c.CreateEntry(ctx, fmt.Sprintf("note %d", i), "neutral")
		require.NoError(t, err)
	}

	a, err := c.LoadEntries(ctx)
	require.NoError(t, err)
	b, err := c.LoadEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestLoadEntriesHealsCrashRecoveryDuplicate(t *testing.T) {
	// A process died after the ledger confirmed the write but before the
	// confirmation was persisted: the entry sits locally as LocalOnly while
	// an identical ciphertext exists on the ledger.
	fl := &fakeLedger{}
	db, err := localdb.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := entries.NewSQLiteRepository(db)
	c := NewCoordinator(testWallet(t, 1), repo, fl, discardLogger())
	ctx := context.Background()

	e, err := c.CreateEntry(ctx, "confirmed but lost", "neutral")
	require.NoError(t, err)

	// Simulate the crash by rewinding the persisted state.
	_, err = db.ExecContext(ctx,
		`UPDATE entries SET sync_state = 'local_only', tx_id = NULL, sequence_id = NULL WHERE id = ?`, e.ID)
	require.NoError(t, err)

	list, err := c.LoadEntries(ctx)
	require.NoError(t, err)

	// Exactly one entry: matched by ciphertext, upgraded, never duplicated.
	require.Len(t, list, 1)
	assert.Equal(t, e.ID, list[0].ID)
	assert.True(t, list[0].Confirmed())
	assert.Equal(t, "confirmed but lost", list[0].Plaintext)

	// The healing was persisted: the entry is no longer pending.
	report, err := c.SyncPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Synced)
	assert.Empty(t, report.Failures)
}

func TestLoadEntriesDecryptsForeignLedgerEntries(t *testing.T) {
	// Another device of the same owner wrote to the ledger; this device has
	// no local cache of the entry but holds the same derived key.
	fl := &fakeLedger{}
	ctx := context.Background()

	other := NewCoordinator(testWallet(t, 1), newTestRepo(t), fl, discardLogger())
	_, err := other.CreateEntry(ctx, "written elsewhere", "positive")
	require.NoError(t, err)

	c, _ := newTestCoordinator(t, fl)
	// Prime this device's key material (same wallet seed, same key).
	_, err = c.CreateEntry(ctx, "written here", "neutral")
	require.NoError(t, err)

	list, err := c.LoadEntries(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	var foreign *models.Entry
	for i := range list {
		if list[i].Plaintext == "written elsewhere" {
			foreign = &list[i]
		}
	}
	require.NotNil(t, foreign, "the other device's entry should decrypt with the shared derived key")
	assert.False(t, foreign.Locked)
	assert.True(t, foreign.Confirmed())
}

func TestLoadEntriesLocksUndecryptable(t *testing.T) {
	// A different owner's key wrote the record (or the key material is
	// simply absent): the entry must appear locked, and its failure must not
	// poison the rest of the list.
	fl := &fakeLedger{}
	ctx := context.Background()

	stranger := NewCoordinator(testWallet(t, 7), newTestRepo(t), fl, discardLogger())
	_, err := stranger.CreateEntry(ctx, "not yours to read", "negative")
	require.NoError(t, err)

	c, _ := newTestCoordinator(t, fl)
	mine, err := c.CreateEntry(ctx, "mine reads fine", "neutral")
	require.NoError(t, err)

	list, err := c.LoadEntries(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	for i := range list {
		e := &list[i]
		if e.ID == mine.ID {
			assert.False(t, e.Locked)
			assert.Equal(t, "mine reads fine", e.Plaintext)
		} else {
			assert.True(t, e.Locked)
			assert.Empty(t, e.Plaintext)
		}
	}
}

func TestDeleteEntryLocalOnly(t *testing.T) {
	fl := &fakeLedger{}
	c, repo := newTestCoordinator(t, fl)
	ctx := context.Background()

	e, err := c.CreateEntry(ctx, "delete me locally", "neutral")
	require.NoError(t, err)

	require.NoError(t, c.DeleteEntry(ctx, e.ID))
	_, err = repo.Get(ctx, c.Owner(), e.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	// The ledger record survives: the next load shows the entry again.
	list, err := c.LoadEntries(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Confirmed())
	assert.Equal(t, "delete me locally", list[0].Plaintext)
}

func TestReadAggregate(t *testing.T) {
	fl := &fakeLedger{}
	c, _ := newTestCoordinator(t, fl)
	ctx := context.Background()

	_, err := c.CreateEntry(ctx, "a", "positive")
	require.NoError(t, err)
	_, err = c.CreateEntry(ctx, "b", "positive")
	require.NoError(t, err)
	_, err = c.CreateEntry(ctx, "c", "negative")
	require.NoError(t, err)

	agg, err := c.ReadAggregate(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), agg.Positive)
	assert.Equal(t, int64(1), agg.Negative)
	assert.Equal(t, int64(0), agg.Neutral)
}

func TestWatchDisconnectClearsKeys(t *testing.T) {
	fl := &fakeLedger{}
	c, _ := newTestCoordinator(t, fl)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := wallet.NewNotifier()
	sub := n.Subscribe()
	done := make(chan struct{})
	go func() {
		c.Watch(ctx, sub)
		close(done)
	}()

	_, err := c.CreateEntry(ctx, "prime the cache", "neutral")
	require.NoError(t, err)
	require.NotEmpty(t, c.keys.All())

	n.Publish(wallet.EventDisconnected)
	assert.Eventually(t, func() bool {
		return len(c.keys.All()) == 0
	}, time.Second, 10*time.Millisecond)

	sub.Unsubscribe()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Watch did not exit after unsubscribe")
	}
}

func TestWatchOnlineTriggersSync(t *testing.T) {
	fl := &fakeLedger{submitErr: common.ErrNetworkUnavailable}
	c, _ := newTestCoordinator(t, fl)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := c.CreateEntry(ctx, "queued while offline", "neutral")
	assert.ErrorIs(t, err, common.ErrNetworkUnavailable)
	fl.setError(nil)

	n := wallet.NewNotifier()
	sub := n.Subscribe()
	defer sub.Unsubscribe()
	go c.Watch(ctx, sub)

	n.Publish(wallet.EventOnline)

	assert.Eventually(t, func() bool {
		pending, err := c.store.ListUnsynced(context.Background(), c.Owner())
		return err == nil && len(pending) == 0
	}, 2*time.Second, 20*time.Millisecond)
}
