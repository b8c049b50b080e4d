// Package keyring holds the per-participant table of frame keys.
//
// The ring has one slot per 4-bit key identifier carried in the frame
// trailer. New frames are sealed with the current slot while frames still
// in flight under an older key can be opened from their own slot.
package keyring

import (
	"errors"
	"sync/atomic"

	"github.com/TheusHen/jframe/jframe/crypto"
)

// Size is the number of slots, one per value of the 4-bit key id.
const Size = 16

// NoIndex marks a ring without a current slot.
const NoIndex = -1

var (
	ErrNoCurrentSlot = errors.New("keyring: no current key index")
	ErrInvalidKeyID  = errors.New("keyring: key id out of range")
)

// Ring is a fixed-capacity circular key table. Slot writes are single atomic
// stores, so readers never observe a partially written slot.
type Ring struct {
	slots   [Size]atomic.Pointer[crypto.KeyMaterial]
	current atomic.Int32
}

// New returns an empty ring with no current slot.
func New() *Ring {
	r := &Ring{}
	r.current.Store(NoIndex)
	return r
}

// CurrentIndex returns the slot used for new encodes, or NoIndex.
func (r *Ring) CurrentIndex() int {
	return int(r.current.Load())
}

// Set selects keyIndex mod Size as the current slot when keyIndex >= 0 and
// then writes km into the current slot. A nil km clears the slot. Set
// returns the slot written.
func (r *Ring) Set(km *crypto.KeyMaterial, keyIndex int) (int, error) {
	if keyIndex >= 0 {
		r.current.Store(int32(keyIndex % Size))
	}
	idx := r.CurrentIndex()
	if idx == NoIndex {
		return NoIndex, ErrNoCurrentSlot
	}
	r.slots[idx].Store(km)
	return idx, nil
}

// Get returns the key in slot keyID, or nil if the slot is empty or keyID
// is not a valid identifier.
func (r *Ring) Get(keyID int) *crypto.KeyMaterial {
	if keyID < 0 || keyID >= Size {
		return nil
	}
	return r.slots[keyID].Load()
}

// Current returns the current key and its index. The key is nil when no
// index is set or the current slot is empty.
func (r *Ring) Current() (*crypto.KeyMaterial, int) {
	idx := r.CurrentIndex()
	if idx == NoIndex {
		return nil, NoIndex
	}
	return r.slots[idx].Load(), idx
}

// Store overwrites slot keyID without touching the current index.
func (r *Ring) Store(keyID int, km *crypto.KeyMaterial) error {
	if keyID < 0 || keyID >= Size {
		return ErrInvalidKeyID
	}
	r.slots[keyID].Store(km)
	return nil
}

// Len returns the number of populated slots.
func (r *Ring) Len() int {
	n := 0
	for i := range r.slots {
		if r.slots[i].Load() != nil {
			n++
		}
	}
	return n
}

// Reset empties every slot and forgets the current index.
func (r *Ring) Reset() {
	for i := range r.slots {
		r.slots[i].Store(nil)
	}
	r.current.Store(NoIndex)
}
