// Package cryptox implements the entry encryption codec: derivation of a
// symmetric key from a wallet signature, authenticated encryption of entry
// text, and key fingerprinting used to match ledger ciphertexts to locally
// cached key material.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/ledgerink/ledgerink/internal/common"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
	// NonceSize is the AES-GCM nonce length in bytes.
	NonceSize = 12

	// keyInfo is the HKDF context string binding derived keys to this use.
	keyInfo = "ledgerink/entry-key/v1"
)

// DeriveKey derives a 32-byte symmetric key from wallet signature bytes via
// HKDF-SHA256. The derivation is deterministic (the same signature always
// yields the same key) and one-way (the key does not reveal the signature).
func DeriveKey(signature []byte) ([]byte, error) {
	if len(signature) == 0 {
		return nil, fmt.Errorf("signature cannot be empty")
	}
	key := make([]byte, KeySize)
	r := hkdf.New(sha256.New, signature, nil, []byte(keyInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("key derivation failed: %w", err)
	}
	return key, nil
}

// Fingerprint returns a short hex identifier for a derived key. It is stored
// next to the ciphertext so a device can tell which cached key material a
// ledger entry belongs to without attempting decryption.
func Fingerprint(key []byte) string {
	sum := sha256.Sum256(key)
	return hex.EncodeToString(sum[:8])
}

// Encrypt seals plaintext with AES-256-GCM under key. A fresh random 12-byte
// nonce is generated per call and prepended to the sealed output, so the
// returned ciphertext is self-contained.
func Encrypt(plaintext, key []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	sealed := aesgcm.Seal(nil, nonce, plaintext, nil)

	out := make([]byte, 0, NonceSize+len(sealed))
	out = append(out, nonce...)
	out = append(out, sealed...)
	return out, nil
}

// Decrypt opens a ciphertext produced by Encrypt. A failed authentication
// check (tampered data or wrong key) is reported as common.ErrIntegrity,
// distinguishable from malformed-input errors.
func Decrypt(ciphertext, key []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", KeySize, len(key))
	}
	if len(ciphertext) < NonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := ciphertext[:NonceSize]
	plaintext, err := aesgcm.Open(nil, nonce, ciphertext[NonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrIntegrity, err)
	}
	if plaintext == nil {
		// Open returns nil for an empty plaintext; callers get an empty
		// slice so success is never a nil result.
		plaintext = []byte{}
	}
	return plaintext, nil
}

// DeriveKeystoreKey derives the key protecting the on-disk wallet keystore
// from a passphrase via argon2id.
func DeriveKeystoreKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, KeySize)
}
