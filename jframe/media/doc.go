// Package media connects frame streams to the media pipeline.
//
// Pipe is an in-memory frame stream. Packetizer and Depacketizer convert
// between frames and RTP packets using github.com/pion/rtp, so encrypted
// frames can travel over ordinary RTP while their codec header stays
// readable for relays.
package media
