package session

import (
	"fmt"

	"github.com/TheusHen/jframe/jframe/crypto"
	"github.com/TheusHen/jframe/jframe/crypto/ratchet"
	"github.com/TheusHen/jframe/jframe/frame"
	"github.com/sirupsen/logrus"
)

// Decode opens f with the key named by its trailer and returns
// header || plaintext.
//
// Disabled sessions pass f through. A frame whose key slot is empty is
// dropped with ErrKeyAbsent; that is expected while keys roll out.
func (s *Session) Decode(f *frame.Frame) (*frame.Frame, error) {
	if !s.Enabled() {
		s.stats.PassedThrough.Add(1)
		return f, nil
	}

	keyID, ok := frame.KeyID(f.Data)
	if !ok {
		s.stats.Dropped.Add(1)
		return nil, frame.ErrMalformed
	}
	key := s.ring.Get(int(keyID))
	if key == nil {
		s.stats.Dropped.Add(1)
		return nil, ErrKeyAbsent
	}

	view, err := frame.Inspect(f.Data, f.Kind)
	if err != nil {
		s.stats.Dropped.Add(1)
		return nil, err
	}

	plaintext, err := s.open(int(keyID), key, view)
	if err != nil {
		s.stats.Dropped.Add(1)
		return nil, err
	}

	out := make([]byte, len(view.Header)+len(plaintext))
	copy(out, view.Header)
	copy(out[len(view.Header):], plaintext)
	s.stats.Decoded.Add(1)
	return f.WithData(out), nil
}

// open tries key and then up to window ratcheted successors of it, storing
// each successor in slot keyID. If none authenticates, the slot gets its
// initial key back: the frame may simply not be encrypted with this key
// yet, and ratcheting must not run the receiver ahead of the sender.
func (s *Session) open(keyID int, initial *crypto.KeyMaterial, view frame.View) ([]byte, error) {
	key := initial
	for attempt := 0; ; attempt++ {
		plaintext, err := key.Open(view.IV, view.Ciphertext, view.Header)
		if err == nil {
			if attempt > 0 {
				s.log.WithFields(logrus.Fields{"slot": keyID, "ratchets": attempt}).Debug("recovered key by ratcheting")
			}
			return plaintext, nil
		}

		if s.shared || !key.Ratchetable() {
			return nil, ErrAuthentication
		}
		if attempt >= s.window {
			break
		}

		next, err := ratchet.Advance(key)
		if err != nil {
			_ = s.ring.Store(keyID, initial)
			return nil, fmt.Errorf("session: ratchet: %w", err)
		}
		_ = s.ring.Store(keyID, next)
		s.stats.Ratchets.Add(1)
		key = next
	}

	_ = s.ring.Store(keyID, initial)
	s.log.WithFields(logrus.Fields{"slot": keyID, "window": s.window}).Debug("dropping frame: ratchet window exhausted")
	return nil, ErrAuthentication
}
