// Package crypto provides the key derivation and AEAD capability used by jframe.
//
// Key material follows the SFrame draft layout used by insertable-streams E2EE:
//   - HKDF-SHA256 derives the frame encryption key from a raw participant key,
//     salted with "JFrameEncryptionKey"
//   - The raw key is retained as the base secret so it can be ratcheted
//     (see package ratchet, salted with "JFrameRatchetKey")
//   - Frames are sealed with AES-128-GCM by default; AES-256-GCM and
//     ChaCha20-Poly1305 suites are available for deployments that agree on them
package crypto
