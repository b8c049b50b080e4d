package session

import (
	"encoding/binary"
	"math/rand"
	"sync"

	"github.com/TheusHen/jframe/jframe/crypto"
)

// counterModulus keeps only the low 16 bits of the send counter in the IV.
// Uniqueness rests on (SSRC, timestamp, counter) together; a frame counter
// paced at 30-50 fps does not wrap within one RTP timestamp period.
const counterModulus = 1 << 16

// sendCounters is the per-SSRC frame counter table. It grows with the number
// of distinct sources a session encodes for.
type sendCounters struct {
	mu     sync.Mutex
	counts map[uint32]uint32
	seed   func() uint32
}

func newSendCounters() *sendCounters {
	return &sendCounters{
		counts: make(map[uint32]uint32),
		seed:   func() uint32 { return uint32(rand.Intn(counterModulus)) },
	}
}

// next returns the counter for ssrc and advances it. The first value for a
// source is random, like an RTP sequence number.
func (c *sendCounters) next(ssrc uint32) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.counts[ssrc]
	if !ok {
		n = c.seed()
	}
	c.counts[ssrc] = n + 1
	return n
}

func (c *sendCounters) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.counts)
}

// makeIV builds the 96-bit AEAD nonce, similar to RFC 7714 section 8.1:
//
//	SSRC (4) || RTP timestamp (4) || send counter mod 2^16 (4)
//
// There is no salt, so the SSRC is visible to the receiver.
func (s *Session) makeIV(ssrc, timestamp uint32) [crypto.NonceSize]byte {
	var iv [crypto.NonceSize]byte
	binary.BigEndian.PutUint32(iv[0:4], ssrc)
	binary.BigEndian.PutUint32(iv[4:8], timestamp)
	binary.BigEndian.PutUint32(iv[8:12], s.counters.next(ssrc)%counterModulus)
	return iv
}
