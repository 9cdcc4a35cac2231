package entries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ledgerink/ledgerink/internal/client/models"
	"github.com/ledgerink/ledgerink/internal/common"
	"github.com/ledgerink/ledgerink/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", common.ErrStorage, op, err)
}

// Append inserts the entry. SQLite assigns the AUTOINCREMENT position, which
// is read back into entry.Position for stable tie-breaking.
func (r *SQLiteRepository) Append(ctx context.Context, entry *models.Entry) error {
	query := `INSERT INTO entries
			(id, owner_address, created_at, plaintext, sentiment,
			 ciphertext, key_fingerprint, key_signature, tx_id, sequence_id, sync_state)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	state := entry.SyncState
	if state == "" {
		state = models.SyncStateLocalOnly
	}

	var ciphertext, signature []byte
	var fingerprint sql.NullString
	if entry.Bundle != nil {
		ciphertext = entry.Bundle.Ciphertext
		signature = entry.Bundle.Signature
		fingerprint = sql.NullString{String: entry.Bundle.KeyFingerprint, Valid: true}
	}
	var txID sql.NullString
	var seqID sql.NullInt64
	if entry.Ref != nil {
		txID = sql.NullString{String: entry.Ref.TxID, Valid: true}
		seqID = sql.NullInt64{Int64: entry.Ref.SequenceID, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.OwnerAddress, entry.CreatedAt.UnixMilli(), entry.Plaintext, entry.Sentiment,
		ciphertext, fingerprint, signature, txID, seqID, string(state))
	if err != nil {
		return storageErr("append", err)
	}
	if pos, err := res.LastInsertId(); err == nil {
		entry.Position = pos
	}
	return nil
}

const entryColumns = `position, id, owner_address, created_at, plaintext, sentiment,
		ciphertext, key_fingerprint, key_signature, tx_id, sequence_id, sync_state`

func scanEntry(scan func(dest ...any) error) (*models.Entry, error) {
	var (
		e           models.Entry
		createdAt   int64
		ciphertext  []byte
		signature   []byte
		fingerprint sql.NullString
		txID        sql.NullString
		seqID       sql.NullInt64
		state       string
	)
	if err := scan(&e.Position, &e.ID, &e.OwnerAddress, &createdAt, &e.Plaintext, &e.Sentiment,
		&ciphertext, &fingerprint, &signature, &txID, &seqID, &state); err != nil {
		return nil, err
	}
	e.CreatedAt = time.UnixMilli(createdAt).UTC()
	e.SyncState = models.SyncState(state)
	if len(ciphertext) > 0 {
		e.Bundle = &models.EncryptionBundle{
			Ciphertext:     ciphertext,
			KeyFingerprint: fingerprint.String,
			Signature:      signature,
		}
	}
	if txID.Valid {
		e.Ref = &models.LedgerRef{TxID: txID.String, SequenceID: seqID.Int64}
	}
	return &e, nil
}

// Get returns a single entry or common.ErrNotFound.
func (r *SQLiteRepository) Get(ctx context.Context, ownerAddress, entryID string) (*models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE owner_address=? AND id=?`
	row := r.db.QueryRowContext(ctx, query, ownerAddress, entryID)

	e, err := scanEntry(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, storageErr("get", err)
	}
	return e, nil
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]models.Entry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("list", err)
	}
	defer rows.Close()

	var result []models.Entry
	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, storageErr("scan", err)
		}
		result = append(result, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("rows", err)
	}
	return result, nil
}

// ListAll returns the owner's entries newest-first. Ties on created_at fall
// back to insertion position so ordering is stable across calls.
func (r *SQLiteRepository) ListAll(ctx context.Context, ownerAddress string) ([]models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries
			WHERE owner_address=?
			ORDER BY created_at DESC, position DESC`
	return r.list(ctx, query, ownerAddress)
}

// ListUnsynced returns not-yet-confirmed entries in insertion order.
func (r *SQLiteRepository) ListUnsynced(ctx context.Context, ownerAddress string) ([]models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries
			WHERE owner_address=? AND sync_state != ?
			ORDER BY position ASC`
	return r.list(ctx, query, ownerAddress, string(models.SyncStateConfirmed))
}

// UpdateBundle stores encryption material computed after the initial append.
func (r *SQLiteRepository) UpdateBundle(ctx context.Context, ownerAddress, entryID string, bundle *models.EncryptionBundle) error {
	query := `UPDATE entries SET ciphertext=?, key_fingerprint=?, key_signature=?
			WHERE owner_address=? AND id=?`
	return r.exec(ctx, "update bundle", query,
		bundle.Ciphertext, bundle.KeyFingerprint, bundle.Signature, ownerAddress, entryID)
}

// MarkSubmitted moves a not-yet-confirmed entry to SubmittedPendingConfirmation.
func (r *SQLiteRepository) MarkSubmitted(ctx context.Context, ownerAddress, entryID string) error {
	query := `UPDATE entries SET sync_state=?
			WHERE owner_address=? AND id=? AND sync_state != ?`
	return r.exec(ctx, "mark submitted", query,
		string(models.SyncStateSubmitted), ownerAddress, entryID, string(models.SyncStateConfirmed))
}

// MarkLocal is the retry-failure edge. The state guard keeps Confirmed
// entries from ever regressing.
func (r *SQLiteRepository) MarkLocal(ctx context.Context, ownerAddress, entryID string) error {
	query := `UPDATE entries SET sync_state=?
			WHERE owner_address=? AND id=? AND sync_state != ?`
	return r.exec(ctx, "mark local", query,
		string(models.SyncStateLocalOnly), ownerAddress, entryID, string(models.SyncStateConfirmed))
}

// MarkConfirmed records the ledger reference and finalizes the entry.
func (r *SQLiteRepository) MarkConfirmed(ctx context.Context, ownerAddress, entryID string, ref models.LedgerRef) error {
	query := `UPDATE entries SET sync_state=?, tx_id=?, sequence_id=?
			WHERE owner_address=? AND id=?`
	return r.exec(ctx, "mark confirmed", query,
		string(models.SyncStateConfirmed), ref.TxID, ref.SequenceID, ownerAddress, entryID)
}

// Delete removes the local record. The ledger copy, if any, is untouched.
func (r *SQLiteRepository) Delete(ctx context.Context, ownerAddress, entryID string) error {
	query := `DELETE FROM entries WHERE owner_address=? AND id=?`
	return r.exec(ctx, "delete", query, ownerAddress, entryID)
}

func (r *SQLiteRepository) exec(ctx context.Context, op, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return storageErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr(op, err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
