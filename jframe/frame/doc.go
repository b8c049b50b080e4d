// Package frame defines encoded media frames and the jframe wire layout.
//
// An encrypted frame keeps a codec-dependent number of leading bytes in the
// clear so that a relay can still make forwarding decisions:
//
//	---------+-------------------+-------------+---------+----
//	header   | ciphertext || tag | IV (12)     |IV_LENGTH| KID|
//	---------+-------------------+-------------+---------+----
//
// The header is 10 bytes for video keyframes, 3 bytes for delta frames and
// 1 byte (the Opus TOC byte) for audio. The trailer is modelled on the SFrame
// header but placed at the end of the payload.
package frame
