// Package ratchet evolves participant key material one way.
//
// Each step feeds the current base secret through HKDF-SHA256 salted with
// "JFrameRatchetKey" and uses the 256-bit output as the next base secret.
// The step is deterministic, so two parties that ratchet the same starting
// secret the same number of times converge on the same frame key. Receivers
// use this to catch up with a sender that rotated without signalling.
package ratchet
