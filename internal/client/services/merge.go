package services

import (
	"bytes"
	"encoding/base64"
	"sort"
	"time"

	"github.com/ledgerink/ledgerink/internal/api"
	"github.com/ledgerink/ledgerink/internal/client/models"
	"github.com/ledgerink/ledgerink/internal/cryptox"
	"github.com/ledgerink/ledgerink/internal/sentiment"
)

// decryptFunc attempts to decrypt a ledger ciphertext with whatever key
// material the session has cached. ok is false when no known key opens it.
type decryptFunc func(ciphertext []byte) (plaintext string, mat cryptox.Material, ok bool)

// healedMatch records a crash-recovery repair: a local entry that the ledger
// confirmed but whose confirmation was never persisted locally.
type healedMatch struct {
	EntryID string
	Ref     models.LedgerRef
}

// mergeEntries reconciles the local cache with the remote ledger view into
// one chronologically ordered list. It is a pure function: all persistence
// side effects are returned to the caller as healed and added sets.
//
// Matching rules, in order:
//  1. A ledger record whose tx id matches a local Confirmed entry is the
//     same entry; the local plaintext wins.
//  2. A ledger record whose ciphertext equals a local unconfirmed entry's
//     bundle ciphertext is that entry, confirmed on the ledger but recorded
//     locally as LocalOnly (the process died before MarkConfirmed). The
//     local entry is upgraded in place and reported in healed; it is never
//     duplicated and never dropped silently.
//  3. Anything else is a new Confirmed entry from the ledger; it is
//     decrypted when cached key material allows, otherwise marked Locked.
//
// Ordering: CreatedAt descending, then ledger sequence id descending, then
// local insertion position descending. The sort is stable, so equal keys
// keep their input order across calls and the merge is idempotent.
func mergeEntries(local []models.Entry, remote []api.LedgerEntry, decrypt decryptFunc) (merged []models.Entry, healed []healedMatch, added []models.Entry) {
	merged = make([]models.Entry, len(local))
	copy(merged, local)

	byRef := make(map[string]*models.Entry)
	var unconfirmed []*models.Entry
	for i := range merged {
		e := &merged[i]
		if e.Confirmed() {
			byRef[e.Ref.TxID] = e
		} else if e.Bundle != nil {
			unconfirmed = append(unconfirmed, e)
		}
		// A cached ledger entry this device never held a key for: retry
		// with whatever material the session has now.
		if e.Plaintext == "" && e.Bundle != nil && len(e.Bundle.Signature) == 0 {
			if pt, _, ok := decrypt(e.Bundle.Ciphertext); ok {
				e.Plaintext = pt
			} else {
				e.Locked = true
			}
		}
	}

	matchCipher := func(ct []byte) *models.Entry {
		for _, e := range unconfirmed {
			if bytes.Equal(e.Bundle.Ciphertext, ct) {
				return e
			}
		}
		return nil
	}

	for _, r := range remote {
		ref := models.LedgerRef{TxID: r.TxID, SequenceID: r.SequenceID}

		if _, ok := byRef[r.TxID]; ok {
			continue
		}

		ct, err := base64.StdEncoding.DecodeString(r.Ciphertext)
		if err != nil {
			ct = nil
		}

		if e := matchCipher(ct); e != nil {
			e.Ref = &ref
			e.SyncState = models.SyncStateConfirmed
			byRef[r.TxID] = e
			healed = append(healed, healedMatch{EntryID: e.ID, Ref: ref})
			continue
		}

		label, err := sentiment.FromCode(r.Sentiment)
		if err != nil {
			label = sentiment.LabelNeutral
		}
		ne := models.Entry{
			ID:           r.TxID,
			OwnerAddress: r.OwnerAddress,
			CreatedAt:    time.UnixMilli(r.ClientTime).UTC(),
			Sentiment:    string(label),
			Bundle:       &models.EncryptionBundle{Ciphertext: ct},
			Ref:          &ref,
			SyncState:    models.SyncStateConfirmed,
		}
		if pt, mat, ok := decrypt(ct); ok {
			ne.Plaintext = pt
			ne.Bundle.KeyFingerprint = cryptox.Fingerprint(mat.Key)
			ne.Bundle.Signature = mat.Signature
		} else {
			ne.Locked = true
		}
		merged = append(merged, ne)
		added = append(added, ne)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		a, b := &merged[i], &merged[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		if a.Ref != nil && b.Ref != nil && a.Ref.SequenceID != b.Ref.SequenceID {
			return a.Ref.SequenceID > b.Ref.SequenceID
		}
		return a.Position > b.Position
	})

	return merged, healed, added
}
