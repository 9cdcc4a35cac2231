package cli

import (
	"context"
	"fmt"
)

func (a *App) getStatus() string {
	s := ""
	if a.wallet != nil {
		s = shortAddress(a.wallet.Address()) + " "
	}
	if mode := a.currentMode(); mode != "" {
		s = s + string(mode)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

func shortAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

// Status prints the wallet identity, connectivity mode and the size of the
// unsynced backlog.
func (a *App) Status(ctx context.Context) error {
	if !a.isUnlocked() {
		printlnFn("Wallet: locked")
		return nil
	}

	printlnFn("Wallet: ", a.wallet.Address())
	printlnFn("Mode:   ", string(a.currentMode()))

	pending, err := a.coordinator.PendingCount(ctx)
	if err != nil {
		printlnFn("Pending: unknown:", err.Error())
		return err
	}
	printlnFn(fmt.Sprintf("Pending: %d entries awaiting confirmation", pending))
	return nil
}
