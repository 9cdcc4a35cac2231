package records

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ledgerink/ledgerink/internal/dbx"
	"github.com/ledgerink/ledgerink/internal/server/models"
)

// PostgresRepository implements the ledger store over *sql.DB (pgx stdlib).
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository constructs a repository bound to the given database.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Append assigns the next per-owner sequence id and inserts the record in one
// transaction. A per-owner advisory lock serializes concurrent appends for
// the same owner; different owners never contend.
func (r *PostgresRepository) Append(ctx context.Context, rec *models.LedgerRecord) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx,
			`SELECT pg_advisory_xact_lock(hashtext($1))`, rec.OwnerAddress); err != nil {
			return fmt.Errorf("owner lock failed: %w", err)
		}

		row := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(sequence_id), 0) + 1 FROM ledger_entries WHERE owner_address = $1`,
			rec.OwnerAddress)
		if err := row.Scan(&rec.SequenceID); err != nil {
			return fmt.Errorf("sequence allocation failed: %w", err)
		}

		rec.SubmittedAt = time.Now().UTC()
		_, err := tx.ExecContext(ctx,
			`INSERT INTO ledger_entries
				(tx_id, owner_address, sequence_id, public_key, signature, ciphertext, sentiment, client_time, submitted_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			rec.TxID, rec.OwnerAddress, rec.SequenceID, rec.PublicKey, rec.Signature,
			rec.Ciphertext, rec.Sentiment, rec.ClientTime, rec.SubmittedAt)
		if err != nil {
			return fmt.Errorf("ledger insert failed: %w", err)
		}
		return nil
	})
}

// ListByOwner returns the owner's records, sequence id ascending.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerAddress string) ([]models.LedgerRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT tx_id, owner_address, sequence_id, public_key, signature, ciphertext, sentiment, client_time, submitted_at
		 FROM ledger_entries
		 WHERE owner_address = $1
		 ORDER BY sequence_id ASC`, ownerAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to select ledger entries: %w", err)
	}
	defer rows.Close()

	var result []models.LedgerRecord
	for rows.Next() {
		var rec models.LedgerRecord
		if err := rows.Scan(&rec.TxID, &rec.OwnerAddress, &rec.SequenceID, &rec.PublicKey,
			&rec.Signature, &rec.Ciphertext, &rec.Sentiment, &rec.ClientTime, &rec.SubmittedAt); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Aggregate tallies sentiment codes across all owners.
func (r *PostgresRepository) Aggregate(ctx context.Context) (*models.SentimentAggregate, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT sentiment, COUNT(*) FROM ledger_entries GROUP BY sentiment`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate sentiment: %w", err)
	}
	defer rows.Close()

	agg := &models.SentimentAggregate{}
	for rows.Next() {
		var code int
		var count int64
		if err := rows.Scan(&code, &count); err != nil {
			return nil, err
		}
		switch code {
		case 1:
			agg.Positive = count
		case 2:
			agg.Negative = count
		default:
			agg.Neutral += count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return agg, nil
}

// IsPaused reads the singleton ledger state row.
func (r *PostgresRepository) IsPaused(ctx context.Context) (bool, error) {
	var paused bool
	row := r.db.QueryRowContext(ctx, `SELECT paused FROM ledger_state WHERE id = 1`)
	if err := row.Scan(&paused); err != nil {
		return false, fmt.Errorf("failed to read ledger state: %w", err)
	}
	return paused, nil
}

// SetPaused flips the singleton ledger state row.
func (r *PostgresRepository) SetPaused(ctx context.Context, paused bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE ledger_state SET paused = $1 WHERE id = 1`, paused)
	if err != nil {
		return fmt.Errorf("failed to update ledger state: %w", err)
	}
	return nil
}
