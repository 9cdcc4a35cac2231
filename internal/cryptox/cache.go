package cryptox

import (
	"sync"

	"github.com/ledgerink/ledgerink/internal/shared"
)

// Material pairs a derived key with the wallet signature it was derived
// from. The signature is what an entry's encryption bundle persists; the key
// is always reproducible from it.
type Material struct {
	Key       []byte
	Signature []byte
}

// KeyCache is a purely in-memory convenience cache of derived key material,
// indexed by an arbitrary string (owner address or key fingerprint). It is
// never the source of truth: clearing it at any time only costs a wallet
// re-prompt or a re-derivation from a stored bundle signature.
type KeyCache struct {
	mu   sync.Mutex
	keys map[string]Material
}

func NewKeyCache() *KeyCache {
	return &KeyCache{keys: make(map[string]Material)}
}

func (c *KeyCache) Get(id string) (Material, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.keys[id]
	return m, ok
}

func (c *KeyCache) Put(id string, m Material) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys[id] = m
}

// All returns a snapshot of the cached material. Used by the merge to try
// known keys against ledger ciphertexts this device has not cached bundles
// for.
func (c *KeyCache) All() []Material {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Material, 0, len(c.keys))
	for _, m := range c.keys {
		out = append(out, m)
	}
	return out
}

// Clear wipes all cached key bytes and empties the cache.
func (c *KeyCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, m := range c.keys {
		shared.WipeByteArray(m.Key)
		shared.WipeByteArray(m.Signature)
		delete(c.keys, id)
	}
}
