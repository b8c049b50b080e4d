package crypto

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// EncryptionKeyLabel is the HKDF salt for the frame encryption key.
	EncryptionKeyLabel = "JFrameEncryptionKey"
	// RatchetKeyLabel is the HKDF salt for ratcheting a base secret.
	RatchetKeyLabel = "JFrameRatchetKey"
)

// DeriveKey derives a key of the specified length using HKDF-SHA256.
// salt can be nil (uses zero salt), info provides context binding.
func DeriveKey(secret, salt, info []byte, length int) ([]byte, error) {
	hk := hkdf.New(sha256.New, secret, salt, info)
	key := make([]byte, length)
	if _, err := io.ReadFull(hk, key); err != nil {
		return nil, err
	}
	return key, nil
}
