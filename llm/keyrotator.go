package llm

import (
	"sync"

	"github.com/basui01/promptgate/types"
)

// KeyRotator cycles through a provider's configured API keys in a fixed
// round-robin order. It is the sole owner of the rotation cursor for one
// ProviderConfig; FallbackEngine advances it on RateLimit failures and after
// each successful call, never the provider client itself.
type KeyRotator struct {
	mu     sync.Mutex
	keys   []string
	cursor int
}

// NewKeyRotator builds a rotator over a fixed, non-empty key list. A
// rotator built from an empty list always returns "" from Current.
func NewKeyRotator(keys []string) *KeyRotator {
	cp := make([]string, len(keys))
	copy(cp, keys)
	return &KeyRotator{keys: cp}
}

// Current returns the key the cursor currently points at, without moving
// it. Safe for concurrent use.
func (r *KeyRotator) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.keys) == 0 {
		return ""
	}
	return r.keys[r.cursor]
}

// Advance moves the cursor to the next key, wrapping modulo the list
// length, and returns the new current key.
func (r *KeyRotator) Advance() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.keys) == 0 {
		return ""
	}
	r.cursor = (r.cursor + 1) % len(r.keys)
	return r.keys[r.cursor]
}

// Len reports how many keys are in rotation.
func (r *KeyRotator) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.keys)
}

// HasKeys reports whether the rotator has at least one usable key.
func (r *KeyRotator) HasKeys() bool {
	return r.Len() > 0
}

// NewKeyRotatorFromConfig builds a KeyRotator from a ProviderConfig's key
// list.
func NewKeyRotatorFromConfig(cfg types.ProviderConfig) *KeyRotator {
	return NewKeyRotator(cfg.APIKeys)
}
