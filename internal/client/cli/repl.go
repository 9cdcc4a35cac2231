package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isUnlocked() bool
	Unlock(ctx context.Context) error
	Lock(ctx context.Context) error
	Write(ctx context.Context) error
	List(ctx context.Context) error
	Show(ctx context.Context) error
	Sync(ctx context.Context) error
	Mood(ctx context.Context) error
	Status(ctx context.Context) error
	Delete(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the LedgerInk CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Locked:
//	  - help           — show available commands
//	  - unlock         — open (or create) the wallet keystore
//	  - exit | quit    — leave the program
//
//	Unlocked:
//	  - help           — show available commands
//	  - write          — write a journal entry
//	  - list           — list entries (local merged with the ledger)
//	  - show           — show a single entry (interactive ID prompt)
//	  - sync           — submit pending entries to the ledger
//	  - mood           — show the global sentiment aggregate
//	  - status         — show connectivity and pending counts
//	  - delete         — remove an entry from the local cache
//	  - lock           — wipe key material and lock the wallet
//	  - exit | quit    — leave the program
//
// Any errors returned by command handlers are ignored here; handlers should
// log their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("ink> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "help":
			if a.isUnlocked() {
				printlnFn("Available commands: (w)rite, (l)ist, show, sync, mood, status, delete, lock, exit")
			} else {
				printlnFn("Available commands: unlock, exit")
			}

		case "unlock":
			_ = a.Unlock(ctx)

		case "lock":
			_ = a.Lock(ctx)

		case "w", "write":
			_ = a.Write(ctx)

		case "l", "list":
			_ = a.List(ctx)

		case "show":
			_ = a.Show(ctx)

		case "sync":
			_ = a.Sync(ctx)

		case "mood":
			_ = a.Mood(ctx)

		case "status":
			_ = a.Status(ctx)

		case "delete":
			_ = a.Delete(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
