// Package services implements the sync coordinator, the engine that keeps
// the local journal cache and the remote append-only ledger consistent with
// each other across offline periods, partial failures, and process restarts.
package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerink/ledgerink/internal/api"
	"github.com/ledgerink/ledgerink/internal/client/ledger"
	"github.com/ledgerink/ledgerink/internal/client/models"
	"github.com/ledgerink/ledgerink/internal/client/repositories/entries"
	"github.com/ledgerink/ledgerink/internal/common"
	"github.com/ledgerink/ledgerink/internal/cryptox"
	"github.com/ledgerink/ledgerink/internal/logging"
	"github.com/ledgerink/ledgerink/internal/sentiment"
	"github.com/ledgerink/ledgerink/internal/wallet"
)

// Session is the part of the wallet the coordinator needs: the owner
// identity and the interactive message signer used for key derivation.
type Session interface {
	Address() string
	SignMessage(ctx context.Context, msg []byte) ([]byte, error)
}

// SyncFailure records one entry a sync batch could not confirm.
type SyncFailure struct {
	EntryID string
	Err     error
}

// SyncReport summarizes one SyncPending run. Skipped is true when another
// run was already in flight and this call did nothing.
type SyncReport struct {
	Synced   int
	Failures []SyncFailure
	Skipped  bool
}

// Coordinator owns the entry lifecycle: create-and-encrypt, submit, load-and-
// merge, and retry of unsynced entries. One coordinator serves one wallet
// session (one owner address).
type Coordinator struct {
	owner   string
	session Session
	store   entries.Repository
	ledger  ledger.Client
	keys    *cryptox.KeyCache
	logger  logging.Logger

	// syncing makes SyncPending single-flight: concurrent callers are
	// turned away instead of double-submitting.
	syncing atomic.Bool

	mu             sync.Mutex
	inflightCancel context.CancelFunc
	// inflight holds the ids of entries whose submission is currently in
	// progress. ListUnsynced still reports them (they are Submitted, which a
	// crash must be able to recover), so SyncPending consults this set to
	// avoid appending the same ciphertext twice to an append-only ledger.
	inflight map[string]struct{}
}

// NewCoordinator wires a coordinator for the session's owner address.
func NewCoordinator(session Session, store entries.Repository, lc ledger.Client, logger logging.Logger) *Coordinator {
	return &Coordinator{
		owner:    session.Address(),
		session:  session,
		store:    store,
		ledger:   lc,
		keys:     cryptox.NewKeyCache(),
		logger:   logger.With("owner", session.Address()),
		inflight: make(map[string]struct{}),
	}
}

// Owner returns the owner address this coordinator serves.
func (c *Coordinator) Owner() string {
	return c.owner
}

// CreateEntry encrypts and persists a new journal entry, then attempts
// immediate submission to the ledger. The entry is returned in every case:
// a submission failure leaves it cached as LocalOnly for a later
// SyncPending, a storage failure leaves it usable in memory with
// StorageDegraded set. The returned error describes what, if anything, still
// needs attention; the ciphertext is never lost once encryption succeeded.
func (c *Coordinator) CreateEntry(ctx context.Context, plaintext string, label string) (*models.Entry, error) {
	if _, err := sentiment.ParseLabel(label); err != nil {
		return nil, err
	}

	e := &models.Entry{
		ID:           uuid.NewString(),
		OwnerAddress: c.owner,
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
		Plaintext:    plaintext,
		Sentiment:    label,
		SyncState:    models.SyncStateLocalOnly,
	}

	// Shield the new entry from a concurrent SyncPending for its whole
	// creation, including the first submission attempt.
	c.beginSubmit(e.ID)
	defer c.endSubmit(e.ID)

	mat, err := c.sessionMaterial(ctx)
	if err != nil {
		// No key, no ciphertext. Keep the plaintext locally so nothing the
		// user wrote is lost; SyncPending encrypts it once a key exists.
		c.persistNew(ctx, e)
		return e, err
	}

	ct, err := cryptox.Encrypt([]byte(plaintext), mat.Key)
	if err != nil {
		c.persistNew(ctx, e)
		return e, err
	}
	e.Bundle = &models.EncryptionBundle{
		Ciphertext:     ct,
		KeyFingerprint: cryptox.Fingerprint(mat.Key),
		Signature:      mat.Signature,
	}

	c.persistNew(ctx, e)

	if err := c.submitEntry(ctx, e); err != nil {
		return e, err
	}
	return e, nil
}

// persistNew appends the entry to the local cache. Persistence failure
// degrades the entry instead of failing the creation: the session copy stays
// fully usable, it just will not survive a restart.
func (c *Coordinator) persistNew(ctx context.Context, e *models.Entry) {
	if err := c.store.Append(ctx, e); err != nil {
		e.StorageDegraded = true
		c.logger.Warn(ctx, "local cache write failed, entry kept in memory only",
			"entry_id", e.ID, "error", err.Error())
	}
}

// submitEntry runs one submission attempt through the full state machine:
// LocalOnly -> Submitted -> Confirmed, with the Submitted -> LocalOnly edge
// on failure. State changes are persisted before and after the network call
// so a crash mid-submission is recoverable by the next SyncPending.
func (c *Coordinator) submitEntry(ctx context.Context, e *models.Entry) error {
	sctx, done := c.trackInflight(ctx)
	defer done()

	e.SyncState = models.SyncStateSubmitted
	if !e.StorageDegraded {
		if err := c.store.MarkSubmitted(ctx, c.owner, e.ID); err != nil {
			c.logger.Warn(ctx, "failed to persist submitted state", "entry_id", e.ID, "error", err.Error())
		}
	}

	ref, err := c.ledger.Submit(sctx, ledger.SubmitRequest{
		Ciphertext: e.Bundle.Ciphertext,
		Sentiment:  mustLabel(e.Sentiment),
		CreatedAt:  e.CreatedAt,
	})
	if err != nil {
		e.SyncState = models.SyncStateLocalOnly
		if !e.StorageDegraded {
			// The submit context may already be cancelled; the fallback
			// persistence must still happen or the entry sticks in Submitted.
			if serr := c.store.MarkLocal(context.WithoutCancel(ctx), c.owner, e.ID); serr != nil {
				c.logger.Warn(ctx, "failed to persist retry state", "entry_id", e.ID, "error", serr.Error())
			}
		}
		return err
	}

	e.Ref = ref
	e.SyncState = models.SyncStateConfirmed
	if !e.StorageDegraded {
		if err := c.store.MarkConfirmed(context.WithoutCancel(ctx), c.owner, e.ID, *ref); err != nil {
			// The ledger write stands. The next LoadEntries heals the local
			// record by ciphertext match.
			c.logger.Warn(ctx, "confirmation not persisted locally", "entry_id", e.ID, "error", err.Error())
		}
	}
	c.logger.Info(ctx, "entry confirmed", "entry_id", e.ID, "tx_id", ref.TxID, "sequence_id", ref.SequenceID)
	return nil
}

// LoadEntries returns the merged view of the local cache and the ledger,
// newest first. When the ledger is unreachable it degrades to the local
// cache alone. Healed confirmations and newly discovered ledger entries are
// persisted so repeated calls converge: a second call with no intervening
// writes returns the identical list.
func (c *Coordinator) LoadEntries(ctx context.Context) ([]models.Entry, error) {
	local, err := c.store.ListAll(ctx, c.owner)
	if err != nil {
		return nil, err
	}

	remote, err := c.ledger.ListForOwner(ctx, c.owner)
	if err != nil {
		c.logger.Warn(ctx, "ledger unavailable, serving local cache", "error", err.Error())
		merged, _, _ := mergeEntries(local, nil, c.tryDecrypt)
		return merged, nil
	}

	merged, healed, added := mergeEntries(local, remote, c.tryDecrypt)
	if len(healed) == 0 && len(added) == 0 {
		return merged, nil
	}

	for _, h := range healed {
		if err := c.store.MarkConfirmed(ctx, c.owner, h.EntryID, h.Ref); err != nil {
			c.logger.Warn(ctx, "failed to persist healed confirmation", "entry_id", h.EntryID, "error", err.Error())
		}
	}
	for i := range added {
		a := added[i]
		if err := c.store.Append(ctx, &a); err != nil {
			c.logger.Warn(ctx, "failed to cache ledger entry", "tx_id", a.ID, "error", err.Error())
		}
	}

	// Re-merge from the persisted state so positions and ordering match what
	// every subsequent call will see.
	local, err = c.store.ListAll(ctx, c.owner)
	if err != nil {
		return merged, nil
	}
	merged, _, _ = mergeEntries(local, remote, c.tryDecrypt)
	return merged, nil
}

// SyncPending submits every unsynced cached entry, oldest first. Entries
// without a bundle (created while key derivation was refused or failing) are
// encrypted first if the session now holds key material; they are skipped
// with a failure record otherwise rather than re-prompting the wallet
// mid-batch. Failures are isolated per entry: one rejection or outage never
// aborts the rest of the batch.
func (c *Coordinator) SyncPending(ctx context.Context) (*SyncReport, error) {
	if !c.syncing.CompareAndSwap(false, true) {
		return &SyncReport{Skipped: true}, nil
	}
	defer c.syncing.Store(false)

	pending, err := c.store.ListUnsynced(ctx, c.owner)
	if err != nil {
		return nil, err
	}

	report := &SyncReport{}
	for i := range pending {
		e := &pending[i]

		// An entry whose first submission is still in flight must not be
		// submitted again; the outcome of the in-flight attempt decides it.
		if !c.beginSubmit(e.ID) {
			continue
		}
		err := c.syncOne(ctx, e)
		c.endSubmit(e.ID)

		if err != nil {
			report.Failures = append(report.Failures, SyncFailure{EntryID: e.ID, Err: err})
			if errors.Is(err, context.Canceled) {
				break
			}
			continue
		}
		report.Synced++
	}

	c.logger.Info(ctx, "sync batch finished", "synced", report.Synced, "failed", len(report.Failures))
	return report, nil
}

// syncOne completes one backlog entry: encrypts it first if it was cached
// without a bundle, then runs one submission attempt.
func (c *Coordinator) syncOne(ctx context.Context, e *models.Entry) error {
	if e.Bundle == nil {
		mat, ok := c.keys.Get(c.owner)
		if !ok {
			return common.ErrUserRejected
		}
		ct, err := cryptox.Encrypt([]byte(e.Plaintext), mat.Key)
		if err != nil {
			return err
		}
		e.Bundle = &models.EncryptionBundle{
			Ciphertext:     ct,
			KeyFingerprint: cryptox.Fingerprint(mat.Key),
			Signature:      mat.Signature,
		}
		if err := c.store.UpdateBundle(ctx, c.owner, e.ID, e.Bundle); err != nil {
			return err
		}
	}
	return c.submitEntry(ctx, e)
}

// GetEntry returns a single cached entry by id.
func (c *Coordinator) GetEntry(ctx context.Context, entryID string) (*models.Entry, error) {
	return c.store.Get(ctx, c.owner, entryID)
}

// PendingCount reports how many cached entries still await confirmation.
func (c *Coordinator) PendingCount(ctx context.Context) (int, error) {
	pending, err := c.store.ListUnsynced(ctx, c.owner)
	if err != nil {
		return 0, err
	}
	return len(pending), nil
}

// DeleteEntry removes an entry from the local cache. The ledger record, if
// one exists, is untouched: the ledger is append-only. A deleted confirmed
// entry therefore reappears (locked or decrypted) on the next LoadEntries.
func (c *Coordinator) DeleteEntry(ctx context.Context, entryID string) error {
	return c.store.Delete(ctx, c.owner, entryID)
}

// ReadAggregate returns the global sentiment counts from the ledger.
func (c *Coordinator) ReadAggregate(ctx context.Context) (*api.AggregateResponse, error) {
	return c.ledger.ReadAggregate(ctx)
}

// ClearKeys wipes all cached key material. Cheap to call: the next operation
// that needs a key re-prompts the wallet.
func (c *Coordinator) ClearKeys() {
	c.keys.Clear()
}

// CancelInflight aborts the network call of any submission in progress. The
// aborted entry falls back to LocalOnly and is retried by a later sync.
func (c *Coordinator) CancelInflight() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflightCancel != nil {
		c.inflightCancel()
	}
}

// beginSubmit claims an entry id for submission. It returns false when the
// id is already claimed, in which case the caller must leave the entry alone.
func (c *Coordinator) beginSubmit(entryID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inflight[entryID]; busy {
		return false
	}
	c.inflight[entryID] = struct{}{}
	return true
}

func (c *Coordinator) endSubmit(entryID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, entryID)
}

func (c *Coordinator) trackInflight(ctx context.Context) (context.Context, context.CancelFunc) {
	sctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.inflightCancel = cancel
	c.mu.Unlock()
	return sctx, func() {
		c.mu.Lock()
		if c.inflightCancel != nil {
			c.inflightCancel = nil
		}
		c.mu.Unlock()
		cancel()
	}
}

// Watch reacts to wallet session and connectivity events until ctx is done
// or the subscription closes: regained connectivity triggers a background
// sync, loss of connectivity aborts in-flight submissions, and wallet
// disconnect additionally wipes cached keys.
func (c *Coordinator) Watch(ctx context.Context, sub *wallet.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			switch ev.Type {
			case wallet.EventOnline, wallet.EventConnected:
				go func() {
					if _, err := c.SyncPending(ctx); err != nil {
						c.logger.Warn(ctx, "background sync failed", "error", err.Error())
					}
				}()
			case wallet.EventOffline:
				c.CancelInflight()
			case wallet.EventDisconnected:
				c.CancelInflight()
				c.ClearKeys()
			}
		}
	}
}

// sessionMaterial returns the owner's key material, deriving and caching it
// on first use. Derivation costs one wallet signature per session; the
// signature is also kept so bundles can persist it.
func (c *Coordinator) sessionMaterial(ctx context.Context) (cryptox.Material, error) {
	if m, ok := c.keys.Get(c.owner); ok {
		return m, nil
	}

	sig, err := c.session.SignMessage(ctx, wallet.KeyDerivationMessage(c.owner))
	if err != nil {
		return cryptox.Material{}, err
	}
	key, err := cryptox.DeriveKey(sig)
	if err != nil {
		return cryptox.Material{}, err
	}

	m := cryptox.Material{Key: key, Signature: sig}
	c.keys.Put(c.owner, m)
	c.keys.Put(cryptox.Fingerprint(key), m)
	return m, nil
}

// tryDecrypt attempts every cached key against a ledger ciphertext. The AEAD
// authentication check makes trial decryption safe: a wrong key fails, it
// never yields garbage plaintext.
func (c *Coordinator) tryDecrypt(ciphertext []byte) (string, cryptox.Material, bool) {
	if len(ciphertext) == 0 {
		return "", cryptox.Material{}, false
	}
	for _, m := range c.keys.All() {
		if pt, err := cryptox.Decrypt(ciphertext, m.Key); err == nil {
			return string(pt), m, true
		}
	}
	return "", cryptox.Material{}, false
}

func mustLabel(s string) sentiment.Label {
	label, err := sentiment.ParseLabel(s)
	if err != nil {
		return sentiment.LabelNeutral
	}
	return label
}
