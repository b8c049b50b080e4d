package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// NonceSize is the nonce length carried in every frame trailer.
const NonceSize = 12

var (
	ErrDecryptionFailed = errors.New("crypto: decryption failed")
	ErrInvalidKeySize   = errors.New("crypto: invalid key size")
	ErrInvalidNonceSize = errors.New("crypto: invalid nonce size")
	ErrUnknownSuite     = errors.New("crypto: unknown cipher suite")
)

// Suite selects the AEAD used to seal frame payloads.
type Suite uint8

const (
	// SuiteAES128GCM is the interoperable default.
	SuiteAES128GCM Suite = iota
	SuiteAES256GCM
	SuiteChaCha20Poly1305
)

func (s Suite) String() string {
	switch s {
	case SuiteAES128GCM:
		return "AES-128-GCM"
	case SuiteAES256GCM:
		return "AES-256-GCM"
	case SuiteChaCha20Poly1305:
		return "CHACHA20-POLY1305"
	default:
		return "UNKNOWN"
	}
}

// KeySize returns the length of the key HKDF derives for this suite.
func (s Suite) KeySize() int {
	switch s {
	case SuiteAES128GCM:
		return 16
	case SuiteAES256GCM:
		return 32
	case SuiteChaCha20Poly1305:
		return chacha20poly1305.KeySize
	default:
		return 0
	}
}

// NewAEAD builds the cipher for key. AES suites accept any AES key length so
// that pre-derived shared keys of either width can be used directly.
func (s Suite) NewAEAD(key []byte) (cipher.AEAD, error) {
	switch s {
	case SuiteAES128GCM, SuiteAES256GCM:
		switch len(key) {
		case 16, 24, 32:
		default:
			return nil, fmt.Errorf("%w: got %d for %s", ErrInvalidKeySize, len(key), s)
		}
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return cipher.NewGCM(block)
	case SuiteChaCha20Poly1305:
		if len(key) != chacha20poly1305.KeySize {
			return nil, fmt.Errorf("%w: got %d for %s", ErrInvalidKeySize, len(key), s)
		}
		return chacha20poly1305.New(key)
	default:
		return nil, ErrUnknownSuite
	}
}
