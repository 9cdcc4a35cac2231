package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ledgerink/ledgerink/internal/client/ledger"
	"github.com/ledgerink/ledgerink/internal/client/services"
	"github.com/ledgerink/ledgerink/internal/common"
	"github.com/ledgerink/ledgerink/internal/shared"
	"github.com/ledgerink/ledgerink/internal/wallet"
)

// approver builds the interactive signature-approval prompt the wallet calls
// for every signing request.
func (a *App) approver() wallet.Approver {
	return wallet.ApproverFunc(func(ctx context.Context, action, detail string) (bool, error) {
		return Confirm(a.reader, fmt.Sprintf("Wallet request: %s (%s). Approve?", action, detail), os.Stdout)
	})
}

// Unlock opens the keystore (creating a new one on first run) and wires the
// wallet-dependent half of the app: ledger adapter, sync coordinator and the
// background watchers.
func (a *App) Unlock(ctx context.Context) error {
	if a.isUnlocked() {
		printlnFn("Wallet is already unlocked.")
		return nil
	}

	var (
		w   *wallet.Wallet
		err error
	)
	if wallet.KeystoreExists(a.config.KeystorePath) {
		pass, perr := GetPassphrase("Enter keystore passphrase", os.Stdout)
		if perr != nil {
			return perr
		}
		w, err = wallet.OpenKeystore(a.config.KeystorePath, pass, a.approver())
		shared.WipeByteArray(pass)
		if err != nil {
			if errors.Is(err, common.ErrIntegrity) {
				printlnFn("Wrong passphrase.")
			} else {
				printlnFn("Failed to open keystore:", err.Error())
			}
			return err
		}
	} else {
		printlnFn("No keystore found at", a.config.KeystorePath, "- creating a new wallet.")
		pass, perr := GetPassphrase("Choose a keystore passphrase", os.Stdout)
		if perr != nil {
			return perr
		}
		w, err = wallet.CreateKeystore(a.config.KeystorePath, pass, a.approver())
		shared.WipeByteArray(pass)
		if err != nil {
			printlnFn("Failed to create keystore:", err.Error())
			return err
		}
	}

	direct := ledger.NewHTTPClient(a.config.GatewayAddr, w)
	var lc ledger.Client = direct
	if a.config.SponsorToken != "" {
		lc = ledger.NewRelayClient(direct, a.config.SponsorToken, a.config.GasLimitHint, a.logger)
	}

	a.wallet = w
	a.ledger = lc
	a.coordinator = services.NewCoordinator(w, a.repo, lc, a.logger)

	watchCtx, cancel := context.WithCancel(ctx)
	a.stopWatch = cancel
	go a.coordinator.Watch(watchCtx, a.notifier.Subscribe())
	go a.StartOnlineStatusWatcher(watchCtx, lc, a.config.OnlineCheckInterval)

	a.notifier.Publish(wallet.EventConnected)
	printlnFn("Wallet unlocked. Address:", w.Address())
	return nil
}

// Lock wipes cached key material, aborts in-flight submissions and detaches
// the wallet. Cached entries stay on disk; the next Unlock picks them up.
func (a *App) Lock(ctx context.Context) error {
	if !a.isUnlocked() {
		printlnFn("Wallet is not unlocked.")
		return nil
	}

	a.coordinator.CancelInflight()
	a.coordinator.ClearKeys()
	a.notifier.Publish(wallet.EventDisconnected)
	if a.stopWatch != nil {
		a.stopWatch()
		a.stopWatch = nil
	}

	a.coordinator = nil
	a.ledger = nil
	a.wallet = nil
	a.swapMode(ModeOffline)
	printlnFn("Wallet locked.")
	return nil
}
