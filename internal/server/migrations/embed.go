// Package migrations embeds the goose migrations for the gateway's
// PostgreSQL ledger store.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
