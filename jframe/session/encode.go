package session

import (
	"fmt"

	"github.com/TheusHen/jframe/jframe/frame"
	"github.com/sirupsen/logrus"
)

// Encode seals f with the current key.
//
// The first HeaderLen bytes stay in the clear and are authenticated as
// additional data. The result is
//
//	header || ciphertext || tag || IV || IV length || key id
//
// Encode passes f through unchanged when the session is disabled or the
// current slot holds no key. On AEAD failure, or when the payload is shorter
// than its clear header, it returns a nil frame and the caller must not
// forward anything.
func (s *Session) Encode(f *frame.Frame) (*frame.Frame, error) {
	if !s.Enabled() {
		s.stats.PassedThrough.Add(1)
		return f, nil
	}

	key, keyIndex := s.ring.Current()
	if key == nil {
		s.stats.PassedThrough.Add(1)
		return f, nil
	}

	headerLen := f.Kind.HeaderLen()
	if len(f.Data) < headerLen {
		s.stats.Dropped.Add(1)
		return nil, fmt.Errorf("%w: %d byte %s frame is shorter than its header", frame.ErrMalformed, len(f.Data), f.Kind)
	}
	header := f.Data[:headerLen]

	iv := s.makeIV(f.SSRC, f.Timestamp)
	ciphertext, err := key.Seal(iv[:], f.Data[headerLen:], header)
	if err != nil {
		s.stats.Dropped.Add(1)
		s.log.WithFields(logrus.Fields{
			"ssrc":  f.SSRC,
			"kind":  f.Kind.String(),
			"error": err,
		}).Warn("dropping frame: encryption failed")
		return nil, fmt.Errorf("%w: %v", ErrEncryption, err)
	}

	s.stats.Encoded.Add(1)
	return f.WithData(frame.Assemble(header, ciphertext, iv[:], uint8(keyIndex))), nil
}
