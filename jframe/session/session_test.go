package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/TheusHen/jframe/jframe/crypto"
	"github.com/TheusHen/jframe/jframe/crypto/ratchet"
	"github.com/TheusHen/jframe/jframe/frame"
	"github.com/sirupsen/logrus"
)

func quietConfig() Config {
	cfg := DefaultConfig()
	cfg.Logger = logrus.New()
	cfg.Logger.SetOutput(io.Discard)
	return cfg
}

func newEnabled(t *testing.T, key []byte, keyIndex int) *Session {
	t.Helper()
	s := New("alice", quietConfig())
	s.SetEnabled(true)
	if err := s.SetKey(key, keyIndex); err != nil {
		t.Fatalf("SetKey: %v", err)
	}
	return s
}

func ratchetN(t *testing.T, secret []byte, n int) []byte {
	t.Helper()
	for i := 0; i < n; i++ {
		var err error
		secret, err = ratchet.Step(secret)
		if err != nil {
			t.Fatalf("ratchet.Step: %v", err)
		}
	}
	return secret
}

func TestConcreteKeyframeVector(t *testing.T) {
	key := make([]byte, 16)
	sender := newEnabled(t, key, 0)
	receiver := newEnabled(t, key, 0)

	payload := bytes.Repeat([]byte{0xAB}, 20)
	in := &frame.Frame{Kind: frame.KindKey, SSRC: 0x11223344, Timestamp: 3000, Data: payload}

	enc, err := sender.Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out := enc.Data
	if len(out) != 10+10+16+12+2 {
		t.Fatalf("encoded length = %d, want 50", len(out))
	}
	if !bytes.Equal(out[:10], payload[:10]) {
		t.Fatalf("header not preserved: %x", out[:10])
	}
	if out[len(out)-2] != 0x0C || out[len(out)-1] != 0x00 {
		t.Fatalf("unexpected trailer %x", out[len(out)-2:])
	}
	iv := out[36:48]
	if binary.BigEndian.Uint32(iv[0:4]) != 0x11223344 || binary.BigEndian.Uint32(iv[4:8]) != 3000 {
		t.Fatalf("IV does not carry SSRC and timestamp: %x", iv)
	}
	if !bytes.Equal(in.Data, payload) {
		t.Fatalf("Encode modified the input frame")
	}

	dec, err := receiver.Decode(enc)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(dec.Data, payload) {
		t.Fatalf("round trip mismatch: %x", dec.Data)
	}
	if dec.SSRC != in.SSRC || dec.Timestamp != in.Timestamp || dec.Kind != in.Kind {
		t.Fatalf("metadata not preserved")
	}
}

func TestRoundTripAndHeaderPreservation(t *testing.T) {
	key := []byte("a participant key from signaling")
	sender := newEnabled(t, key, 3)
	receiver := newEnabled(t, key, 3)

	cases := []struct {
		kind   frame.Kind
		header int
		size   int
	}{
		{frame.KindKey, 10, 1200},
		{frame.KindDelta, 3, 300},
		{frame.KindAudio, 1, 80},
		{frame.KindAudio, 1, 1},
		{frame.KindDelta, 3, 3},
	}
	for _, tc := range cases {
		data := make([]byte, tc.size)
		for i := range data {
			data[i] = byte(i * 7)
		}
		in := &frame.Frame{Kind: tc.kind, SSRC: 42, Timestamp: 160, Data: data}

		enc, err := sender.Encode(in)
		if err != nil {
			t.Fatalf("%s/%d Encode: %v", tc.kind, tc.size, err)
		}
		if !bytes.Equal(enc.Data[:tc.header], data[:tc.header]) {
			t.Fatalf("%s/%d header changed", tc.kind, tc.size)
		}
		if enc.Data[len(enc.Data)-1] != 3 {
			t.Fatalf("%s/%d key id = %d, want 3", tc.kind, tc.size, enc.Data[len(enc.Data)-1])
		}

		dec, err := receiver.Decode(enc)
		if err != nil {
			t.Fatalf("%s/%d Decode: %v", tc.kind, tc.size, err)
		}
		if !bytes.Equal(dec.Data, data) {
			t.Fatalf("%s/%d round trip mismatch", tc.kind, tc.size)
		}
	}
}

func TestEncodeShortFrameDropped(t *testing.T) {
	s := newEnabled(t, []byte("k"), 0)
	out, err := s.Encode(&frame.Frame{Kind: frame.KindKey, Data: []byte{1, 2, 3}})
	if out != nil || !errors.Is(err, frame.ErrMalformed) {
		t.Fatalf("expected drop with ErrMalformed, got %v, %v", out, err)
	}
}

func TestDisabledPassThrough(t *testing.T) {
	s := New("bob", quietConfig())
	if err := s.SetKey([]byte("key"), 0); err != nil {
		t.Fatalf("SetKey: %v", err)
	}

	in := &frame.Frame{Kind: frame.KindDelta, SSRC: 1, Data: []byte("plain payload")}
	enc, err := s.Encode(in)
	if err != nil || enc != in || !bytes.Equal(enc.Data, []byte("plain payload")) {
		t.Fatalf("disabled Encode must pass through, got %v, %v", enc, err)
	}
	dec, err := s.Decode(in)
	if err != nil || dec != in {
		t.Fatalf("disabled Decode must pass through, got %v, %v", dec, err)
	}
	if s.Stats().PassedThrough.Load() != 2 {
		t.Fatalf("expected 2 pass-throughs, got %d", s.Stats().PassedThrough.Load())
	}
}

func TestEncodeWithoutKeyPassesThrough(t *testing.T) {
	s := New("carol", quietConfig())
	s.SetEnabled(true)
	in := &frame.Frame{Kind: frame.KindAudio, Data: []byte{0xfc, 1, 2}}
	out, err := s.Encode(in)
	if err != nil || out != in {
		t.Fatalf("expected pass-through without key, got %v, %v", out, err)
	}
}

func TestDecodeKeyAbsent(t *testing.T) {
	sender := newEnabled(t, []byte("key"), 4)
	receiver := newEnabled(t, []byte("key"), 0)

	enc, _ := sender.Encode(&frame.Frame{Kind: frame.KindAudio, Data: []byte{1, 2, 3, 4}})
	out, err := receiver.Decode(enc)
	if out != nil || err != ErrKeyAbsent {
		t.Fatalf("expected ErrKeyAbsent, got %v, %v", out, err)
	}
	if receiver.Stats().Ratchets.Load() != 0 {
		t.Fatalf("absent keys must not ratchet")
	}
}

func TestDecodeKeyIDOutOfRange(t *testing.T) {
	receiver := newEnabled(t, []byte("key"), 0)
	data := frame.Assemble([]byte{1}, make([]byte, 20), make([]byte, 12), 200)
	if _, err := receiver.Decode(&frame.Frame{Data: data}); err != ErrKeyAbsent {
		t.Fatalf("expected ErrKeyAbsent, got %v", err)
	}
}

func TestDecodeMalformed(t *testing.T) {
	receiver := newEnabled(t, []byte("key"), 0)
	for _, data := range [][]byte{nil, {0x00}, {0x01, 0x0c, 0x00}} {
		out, err := receiver.Decode(&frame.Frame{Kind: frame.KindKey, Data: data})
		if out != nil || !errors.Is(err, frame.ErrMalformed) {
			t.Fatalf("Decode(%x): expected ErrMalformed, got %v", data, err)
		}
	}
	if receiver.Stats().Ratchets.Load() != 0 {
		t.Fatalf("malformed frames must not ratchet")
	}
}

func TestRatchetRecoversWithinWindow(t *testing.T) {
	base := []byte("epoch zero secret")
	advanced := ratchetN(t, base, ratchet.DefaultWindow)

	sender := newEnabled(t, advanced, 0)
	receiver := newEnabled(t, base, 0)

	payload := []byte("frame sent after the sender ratcheted eight times")
	enc, err := sender.Encode(&frame.Frame{Kind: frame.KindDelta, SSRC: 9, Data: payload})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	dec, err := receiver.Decode(enc)
	if err != nil {
		t.Fatalf("Decode with %d ratchets: %v", ratchet.DefaultWindow, err)
	}
	if !bytes.Equal(dec.Data, payload) {
		t.Fatalf("payload mismatch after ratchet")
	}
	if got := receiver.Ring().Get(0).Secret(); !bytes.Equal(got, advanced) {
		t.Fatalf("slot should keep the ratcheted secret")
	}
	if receiver.Stats().Ratchets.Load() != int64(ratchet.DefaultWindow) {
		t.Fatalf("expected %d ratchets, got %d", ratchet.DefaultWindow, receiver.Stats().Ratchets.Load())
	}

	// The next frame opens with the ratcheted key directly.
	enc2, _ := sender.Encode(&frame.Frame{Kind: frame.KindDelta, SSRC: 9, Data: payload})
	if _, err := receiver.Decode(enc2); err != nil {
		t.Fatalf("Decode after recovery: %v", err)
	}
	if receiver.Stats().Ratchets.Load() != int64(ratchet.DefaultWindow) {
		t.Fatalf("no further ratchets expected")
	}
}

func TestRatchetWindowExhaustedRestoresKey(t *testing.T) {
	base := []byte("epoch zero secret")
	tooFar := ratchetN(t, base, ratchet.DefaultWindow+1)

	sender := newEnabled(t, tooFar, 0)
	receiver := newEnabled(t, base, 0)
	initial := receiver.Ring().Get(0)

	enc, _ := sender.Encode(&frame.Frame{Kind: frame.KindAudio, Data: []byte("opus frame")})
	out, err := receiver.Decode(enc)
	if out != nil || err != ErrAuthentication {
		t.Fatalf("expected ErrAuthentication, got %v, %v", out, err)
	}
	if receiver.Ring().Get(0) != initial {
		t.Fatalf("initial key was not restored")
	}
	if !bytes.Equal(receiver.Ring().Get(0).Secret(), base) {
		t.Fatalf("restored secret differs from the initial one")
	}
	if receiver.Stats().Dropped.Load() != 1 {
		t.Fatalf("expected one dropped frame")
	}
}

func TestRatchetOnNonCurrentSlot(t *testing.T) {
	old := []byte("previous epoch")
	sender := newEnabled(t, ratchetN(t, old, 2), 5)

	receiver := newEnabled(t, old, 5)
	if err := receiver.SetKey([]byte("next epoch"), 6); err != nil {
		t.Fatalf("SetKey: %v", err)
	}

	enc, _ := sender.Encode(&frame.Frame{Kind: frame.KindDelta, Data: []byte("in flight under slot 5")})
	if _, err := receiver.Decode(enc); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if receiver.Ring().CurrentIndex() != 6 {
		t.Fatalf("decoding must not move the current index")
	}
	if !bytes.Equal(receiver.Ring().Get(6).Secret(), []byte("next epoch")) {
		t.Fatalf("current slot must be untouched")
	}
}

func TestSharedKeyMode(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, 16)

	sender := NewShared(quietConfig())
	receiver := NewShared(quietConfig())
	for _, s := range []*Session{sender, receiver} {
		s.SetEnabled(true)
		if err := s.SetKey(key, 0); err != nil {
			t.Fatalf("SetKey: %v", err)
		}
	}
	if !bytes.Equal(sender.Ring().Get(0).EncryptionKey(), key) {
		t.Fatalf("shared keys must be used without derivation")
	}

	payload := []byte("shared key payload")
	enc, err := sender.Encode(&frame.Frame{Kind: frame.KindKey, Data: append(make([]byte, 10), payload...)})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := receiver.Decode(enc); err != nil {
		t.Fatalf("Decode: %v", err)
	}

	enc.Data[12] ^= 0xff
	out, err := receiver.Decode(enc)
	if out != nil || err != ErrAuthentication {
		t.Fatalf("expected ErrAuthentication, got %v, %v", out, err)
	}
	if receiver.Stats().Ratchets.Load() != 0 {
		t.Fatalf("shared sessions must not ratchet")
	}
}

func TestSetKeyRejectsBadSharedKey(t *testing.T) {
	s := NewShared(quietConfig())
	if err := s.SetKey([]byte("short"), 2); !errors.Is(err, crypto.ErrInvalidKeySize) {
		t.Fatalf("expected ErrInvalidKeySize, got %v", err)
	}
	if s.Ring().CurrentIndex() != -1 {
		t.Fatalf("failed SetKey must not change the current index")
	}
}

func TestSetKeyClearsSlot(t *testing.T) {
	s := newEnabled(t, []byte("key"), 17)
	if s.Ring().CurrentIndex() != 1 {
		t.Fatalf("keyIndex 17 should select slot 1, got %d", s.Ring().CurrentIndex())
	}
	if err := s.SetKey(nil, -1); err != nil {
		t.Fatalf("SetKey(nil): %v", err)
	}
	if s.Ring().Get(1) != nil {
		t.Fatalf("slot 1 should be cleared")
	}
	in := &frame.Frame{Kind: frame.KindAudio, Data: []byte{1, 2}}
	if out, _ := s.Encode(in); out != in {
		t.Fatalf("encode with cleared key should pass through")
	}
}

func TestMakeIVCounter(t *testing.T) {
	s := New("dave", quietConfig())
	s.counters.seed = func() uint32 { return counterModulus - 1 }

	first := s.makeIV(7, 100)
	second := s.makeIV(7, 100)
	other := s.makeIV(8, 100)

	if binary.BigEndian.Uint32(first[8:]) != counterModulus-1 {
		t.Fatalf("first counter = %d", binary.BigEndian.Uint32(first[8:]))
	}
	if binary.BigEndian.Uint32(second[8:]) != 0 {
		t.Fatalf("counter must wrap at 2^16, got %d", binary.BigEndian.Uint32(second[8:]))
	}
	if binary.BigEndian.Uint32(other[0:4]) != 8 || binary.BigEndian.Uint32(other[8:]) != counterModulus-1 {
		t.Fatalf("each SSRC needs its own counter")
	}
	if s.counters.len() != 2 {
		t.Fatalf("expected 2 counters, got %d", s.counters.len())
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	s := New("erin", quietConfig())
	s.Close()
	s.Close()
	select {
	case <-s.Done():
	default:
		t.Fatalf("Done should be closed")
	}
}

func BenchmarkEncode(b *testing.B) {
	s := New("bench", DefaultConfig())
	s.SetEnabled(true)
	_ = s.SetKey(make([]byte, 16), 0)
	f := &frame.Frame{Kind: frame.KindDelta, SSRC: 1, Data: make([]byte, 1200)}
	b.SetBytes(int64(len(f.Data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.Encode(f)
	}
}

func BenchmarkDecode(b *testing.B) {
	s := New("bench", DefaultConfig())
	s.SetEnabled(true)
	_ = s.SetKey(make([]byte, 16), 0)
	enc, _ := s.Encode(&frame.Frame{Kind: frame.KindDelta, SSRC: 1, Data: make([]byte, 1200)})
	b.SetBytes(int64(len(enc.Data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.Decode(enc)
	}
}
