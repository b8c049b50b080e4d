// Package jframe provides end-to-end encryption for real-time media frames.
//
// A relay forwarding jframe-protected media can still read the leading
// codec header of every frame, which it needs for forwarding decisions,
// while the rest of the payload is sealed with AES-GCM under keys only the
// participants hold. Each encrypted frame carries a trailer with the IV and
// the index of the key that sealed it:
//
//	header || ciphertext || tag || iv(12) || 0x0C || keyID
//
// The Worker in this package is the entry point. It receives control
// messages (initialize, encode, decode, setEnabled, setKey, cleanup,
// cleanupAll), keeps one frame cryptor per participant in a registry and
// runs a transform goroutine for every attached encode or decode stream.
//
// The building blocks live in subpackages: crypto and crypto/ratchet for key
// derivation, keyring for the 16-slot key ring, frame for the frame model and
// trailer layout, session for the cryptor itself and registry for the
// participant map. media, transport/quic and capture connect frame streams
// to RTP packets, QUIC streams and LZ4 capture files.
package jframe
