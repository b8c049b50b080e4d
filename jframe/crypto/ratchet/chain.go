package ratchet

import (
	"errors"
	"sync"

	"github.com/TheusHen/jframe/jframe/crypto"
)

var (
	ErrRatchetExhausted = errors.New("ratchet: maximum generation reached")
	ErrEmptySecret      = errors.New("ratchet: empty base secret")
)

const (
	// SecretSize is the length of a ratcheted base secret.
	SecretSize = 32

	// DefaultWindow bounds how many steps a receiver tries before giving up.
	DefaultWindow = 8

	// MaxGeneration is the maximum number of steps a Chain will take.
	MaxGeneration = 1 << 32
)

// Step derives the next base secret from secret.
func Step(secret []byte) ([]byte, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	return crypto.DeriveKey(secret, []byte(crypto.RatchetKeyLabel), nil, SecretSize)
}

// Advance ratchets the base secret of m once and derives fresh key material
// for the same suite.
func Advance(m *crypto.KeyMaterial) (*crypto.KeyMaterial, error) {
	if !m.Ratchetable() {
		return nil, crypto.ErrNotRatchetable
	}
	next, err := Step(m.Secret())
	if err != nil {
		return nil, err
	}
	return crypto.DeriveKeyMaterial(next, m.Suite())
}

// Chain tracks a base secret and how many times it has been ratcheted.
type Chain struct {
	mu         sync.Mutex
	secret     []byte
	suite      crypto.Suite
	generation uint64
}

// NewChain creates a chain at generation zero.
func NewChain(initialSecret []byte, suite crypto.Suite) (*Chain, error) {
	if len(initialSecret) == 0 {
		return nil, ErrEmptySecret
	}
	return &Chain{
		secret: append([]byte(nil), initialSecret...),
		suite:  suite,
	}, nil
}

// Next advances the chain and returns key material for the new generation.
func (c *Chain) Next() (*crypto.KeyMaterial, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation >= MaxGeneration {
		return nil, ErrRatchetExhausted
	}

	next, err := Step(c.secret)
	if err != nil {
		return nil, err
	}
	km, err := crypto.DeriveKeyMaterial(next, c.suite)
	if err != nil {
		return nil, err
	}
	c.secret = next
	c.generation++
	return km, nil
}

// Current returns key material for the current generation without advancing.
func (c *Chain) Current() (*crypto.KeyMaterial, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return crypto.DeriveKeyMaterial(c.secret, c.suite)
}

// Generation returns the number of steps taken.
func (c *Chain) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Export exports the current base secret and generation.
// WARNING: Handle with extreme care; this contains keying material.
func (c *Chain) Export() (secret []byte, generation uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.secret...), c.generation
}
