// Package wallet implements the signer collaborator: an ed25519 keypair held
// in a passphrase-protected keystore file, interactive approval of signature
// requests, and connectivity/account event subscriptions consumed by the
// sync coordinator.
package wallet

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"

	"github.com/ledgerink/ledgerink/internal/common"
	"golang.org/x/crypto/sha3"
)

// Approver decides whether the user authorizes a signature request. The CLI
// wires an interactive prompt; tests wire a canned answer. A denial is a
// first-class outcome (common.ErrUserRejected), never a generic error.
type Approver interface {
	Approve(ctx context.Context, action, detail string) (bool, error)
}

// ApproverFunc adapts a function to the Approver interface.
type ApproverFunc func(ctx context.Context, action, detail string) (bool, error)

func (f ApproverFunc) Approve(ctx context.Context, action, detail string) (bool, error) {
	return f(ctx, action, detail)
}

// AutoApprove authorizes every request. Useful for tests and non-interactive
// tooling; never the CLI default.
var AutoApprove = ApproverFunc(func(context.Context, string, string) (bool, error) {
	return true, nil
})

// Wallet is a single-identity signer. All signing goes through the Approver.
type Wallet struct {
	priv     ed25519.PrivateKey
	address  string
	approver Approver
}

// New wraps an ed25519 private key. The address is derived once: the 0x-hex
// of the last 20 bytes of the Keccak-256 digest of the public key.
func New(priv ed25519.PrivateKey, approver Approver) *Wallet {
	return &Wallet{
		priv:     priv,
		address:  DeriveAddress(priv.Public().(ed25519.PublicKey)),
		approver: approver,
	}
}

// DeriveAddress computes the ledger address for a public key.
func DeriveAddress(pub ed25519.PublicKey) string {
	h := sha3.NewLegacyKeccak256()
	h.Write(pub)
	sum := h.Sum(nil)
	return "0x" + hex.EncodeToString(sum[len(sum)-20:])
}

// Address returns the wallet's ledger address.
func (w *Wallet) Address() string {
	return w.address
}

// PublicKey returns the raw ed25519 public key.
func (w *Wallet) PublicKey() []byte {
	return w.priv.Public().(ed25519.PublicKey)
}

// SignMessage asks the user to authorize signing msg and returns the
// signature. ed25519 signatures are deterministic, so signing the same
// message always yields the same bytes; key derivation relies on this.
func (w *Wallet) SignMessage(ctx context.Context, msg []byte) ([]byte, error) {
	return w.sign(ctx, "sign message", string(msg), msg)
}

// AuthorizeAppend asks the user to authorize a ledger-mutating append and
// returns the payload signature the gateway verifies.
func (w *Wallet) AuthorizeAppend(ctx context.Context, payload []byte) ([]byte, error) {
	return w.sign(ctx, "authorize ledger append", fmt.Sprintf("%d byte payload", len(payload)), payload)
}

func (w *Wallet) sign(ctx context.Context, action, detail string, msg []byte) ([]byte, error) {
	ok, err := w.approver.Approve(ctx, action, detail)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrUserRejected
	}
	return ed25519.Sign(w.priv, msg), nil
}

// KeyDerivationMessage is the fixed per-owner message whose signature seeds
// the entry encryption key. Deterministic signing makes the derived key
// stable across sessions without storing the key itself.
func KeyDerivationMessage(ownerAddress string) []byte {
	return fmt.Appendf(nil, "ledgerink/key/v1\n%s", ownerAddress)
}
