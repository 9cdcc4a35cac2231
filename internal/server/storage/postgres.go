// Package storage opens the gateway's PostgreSQL database, applies the
// embedded goose migrations and hands out repositories.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/ledgerink/ledgerink/internal/server/migrations"
	"github.com/ledgerink/ledgerink/internal/server/repositories/records"
)

// PostgresManager owns the database handle and its repositories.
type PostgresManager struct {
	db      *sql.DB
	records records.Repository
}

// NewPostgresManager connects to dsn, runs migrations and wires repositories.
func NewPostgresManager(ctx context.Context, dsn string) (*PostgresManager, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	m := &PostgresManager{
		db:      db,
		records: records.NewPostgresRepository(db),
	}
	if err := m.runMigrations(ctx); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return m, nil
}

func (m *PostgresManager) runMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, m.db, ".")
}

func (m *PostgresManager) Conn() *sql.DB {
	return m.db
}

func (m *PostgresManager) Records() records.Repository {
	return m.records
}

func (m *PostgresManager) Close() error {
	return m.db.Close()
}
