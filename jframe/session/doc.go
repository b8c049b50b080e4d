// Package session implements the per-participant frame cryptor.
//
// A Session owns a key ring, the per-SSRC send counters used to build IVs and
// the enabled flag. Encode seals outgoing frames with the current key; Decode
// opens incoming frames with the key named by their trailer and, when
// authentication fails, ratchets that key up to a bounded window to catch up
// with a sender that advanced its key. Shared sessions hold one externally
// derived key for every participant and never ratchet.
//
// Crypto failures never escape as fatal errors: Encode and Decode return a
// nil frame together with the reason, and the caller drops the frame.
package session
