// Package cli provides the interactive LedgerInk command-line client.
//
// It wires configuration, the local cache, the wallet keystore, the ledger
// adapter and an interactive REPL that supports online/offline operation.
// Typical flow: unlock (or create) the wallet, start a background
// connectivity watcher, and execute user commands.
//
// Key features:
//   - Unlock / Lock the wallet keystore
//   - Write encrypted journal entries (offline writes queue locally)
//   - List / Show entries, merged local-plus-ledger view
//   - Sync the pending backlog, with per-entry failure reporting
//   - Mood: the global anonymous sentiment aggregate
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher, and runREPL for details.
package cli
