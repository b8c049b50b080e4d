package crypto

import (
	"crypto/cipher"
	"errors"
	"fmt"
)

var ErrNotRatchetable = errors.New("crypto: key material has no base secret")

// KeyMaterial is the content of one key ring slot: a ready AEAD plus the
// secret it was derived from. It is never mutated after construction.
type KeyMaterial struct {
	suite  Suite
	key    []byte
	aead   cipher.AEAD
	secret []byte
}

// DeriveKeyMaterial imports raw as an HKDF secret and derives the frame
// encryption key for suite from it.
func DeriveKeyMaterial(raw []byte, suite Suite) (*KeyMaterial, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty secret", ErrInvalidKeySize)
	}
	size := suite.KeySize()
	if size == 0 {
		return nil, ErrUnknownSuite
	}
	key, err := DeriveKey(raw, []byte(EncryptionKeyLabel), nil, size)
	if err != nil {
		return nil, fmt.Errorf("crypto: derive encryption key: %w", err)
	}
	aead, err := suite.NewAEAD(key)
	if err != nil {
		return nil, err
	}
	return &KeyMaterial{
		suite:  suite,
		key:    key,
		aead:   aead,
		secret: append([]byte(nil), raw...),
	}, nil
}

// NewSharedKeyMaterial wraps an already derived key. The result carries no
// base secret and cannot be ratcheted.
func NewSharedKeyMaterial(key []byte, suite Suite) (*KeyMaterial, error) {
	aead, err := suite.NewAEAD(key)
	if err != nil {
		return nil, err
	}
	return &KeyMaterial{
		suite: suite,
		key:   append([]byte(nil), key...),
		aead:  aead,
	}, nil
}

func (m *KeyMaterial) Suite() Suite { return m.suite }

// Ratchetable reports whether the material retains a base secret.
func (m *KeyMaterial) Ratchetable() bool { return len(m.secret) > 0 }

// Secret returns a copy of the base secret, or nil for shared keys.
// WARNING: this is keying material.
func (m *KeyMaterial) Secret() []byte {
	if m.secret == nil {
		return nil
	}
	return append([]byte(nil), m.secret...)
}

// EncryptionKey returns a copy of the derived AEAD key.
func (m *KeyMaterial) EncryptionKey() []byte {
	return append([]byte(nil), m.key...)
}

// Overhead returns the authentication tag length.
func (m *KeyMaterial) Overhead() int { return m.aead.Overhead() }

// Seal encrypts and authenticates plaintext, returning ciphertext || tag.
func (m *KeyMaterial) Seal(nonce, plaintext, additionalData []byte) ([]byte, error) {
	if len(nonce) != m.aead.NonceSize() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidNonceSize, len(nonce), m.aead.NonceSize())
	}
	return m.aead.Seal(nil, nonce, plaintext, additionalData), nil
}

// Open verifies and decrypts ciphertext || tag.
func (m *KeyMaterial) Open(nonce, ciphertext, additionalData []byte) ([]byte, error) {
	if len(nonce) != m.aead.NonceSize() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidNonceSize, len(nonce), m.aead.NonceSize())
	}
	plaintext, err := m.aead.Open(nil, nonce, ciphertext, additionalData)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}
