package frame

import (
	"errors"
	"fmt"
)

const (
	// TrailerSize is the IV length byte plus the key id byte.
	TrailerSize = 2
	// IVLength is the nonce length written by this implementation.
	IVLength = 12
)

var ErrMalformed = errors.New("frame: malformed encrypted frame")

// View is a parsed encrypted payload. Its slices alias the input buffer.
type View struct {
	Header     []byte
	Ciphertext []byte // ciphertext || tag
	IV         []byte
	KeyID      uint8
}

// KeyID returns the key id carried in the last byte of data.
func KeyID(data []byte) (uint8, bool) {
	if len(data) == 0 {
		return 0, false
	}
	return data[len(data)-1], true
}

// Inspect splits an encrypted payload without any key. Relays and capture
// tools use it to read the clear header and the key id.
func Inspect(data []byte, kind Kind) (View, error) {
	if len(data) < TrailerSize {
		return View{}, fmt.Errorf("%w: %d bytes", ErrMalformed, len(data))
	}
	ivLen := int(data[len(data)-2])
	headerLen := kind.HeaderLen()
	if len(data) < headerLen+ivLen+TrailerSize {
		return View{}, fmt.Errorf("%w: %d bytes for %s frame with %d byte IV", ErrMalformed, len(data), kind, ivLen)
	}
	ivStart := len(data) - TrailerSize - ivLen
	return View{
		Header:     data[:headerLen],
		Ciphertext: data[headerLen:ivStart],
		IV:         data[ivStart : ivStart+ivLen],
		KeyID:      data[len(data)-1],
	}, nil
}

// Assemble lays out header || ciphertext || iv || len(iv) || keyID in a
// freshly allocated buffer.
func Assemble(header, ciphertext, iv []byte, keyID uint8) []byte {
	out := make([]byte, len(header)+len(ciphertext)+len(iv)+TrailerSize)
	offset := copy(out, header)
	offset += copy(out[offset:], ciphertext)
	offset += copy(out[offset:], iv)
	out[offset] = byte(len(iv))
	out[offset+1] = keyID
	return out
}
