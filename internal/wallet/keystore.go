package wallet

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ledgerink/ledgerink/internal/cryptox"
)

const keystoreSaltSize = 16

// keystoreFile is the on-disk format: an argon2id-protected AES-GCM
// ciphertext of the ed25519 seed.
type keystoreFile struct {
	Version int    `json:"version"`
	Address string `json:"address"`
	Salt    string `json:"salt"`       // base64
	Seed    string `json:"seed_enc"`   // base64, nonce-prefixed AES-GCM of the seed
}

// CreateKeystore generates a new keypair, writes it to path protected by the
// passphrase, and returns the wallet.
func CreateKeystore(path string, passphrase []byte, approver Approver) (*Wallet, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("keypair generation failed: %w", err)
	}

	salt := make([]byte, keystoreSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}

	key := cryptox.DeriveKeystoreKey(passphrase, salt)
	sealed, err := cryptox.Encrypt(priv.Seed(), key)
	if err != nil {
		return nil, fmt.Errorf("keystore sealing failed: %w", err)
	}

	w := New(priv, approver)
	ks := keystoreFile{
		Version: 1,
		Address: w.Address(),
		Salt:    base64.StdEncoding.EncodeToString(salt),
		Seed:    base64.StdEncoding.EncodeToString(sealed),
	}
	data, err := json.MarshalIndent(ks, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("keystore write failed: %w", err)
	}
	return w, nil
}

// OpenKeystore reads the keystore at path and unlocks it with the
// passphrase. A wrong passphrase surfaces as an integrity error from the
// AEAD open.
func OpenKeystore(path string, passphrase []byte, approver Approver) (*Wallet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keystore read failed: %w", err)
	}

	var ks keystoreFile
	if err := json.Unmarshal(data, &ks); err != nil {
		return nil, fmt.Errorf("keystore parse failed: %w", err)
	}

	salt, err := base64.StdEncoding.DecodeString(ks.Salt)
	if err != nil {
		return nil, fmt.Errorf("keystore salt decode failed: %w", err)
	}
	sealed, err := base64.StdEncoding.DecodeString(ks.Seed)
	if err != nil {
		return nil, fmt.Errorf("keystore seed decode failed: %w", err)
	}

	key := cryptox.DeriveKeystoreKey(passphrase, salt)
	seed, err := cryptox.Decrypt(sealed, key)
	if err != nil {
		return nil, fmt.Errorf("keystore unlock failed: %w", err)
	}

	return New(ed25519.NewKeyFromSeed(seed), approver), nil
}

// KeystoreExists reports whether a keystore file is present at path.
func KeystoreExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
