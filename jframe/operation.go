package jframe

import (
	"errors"
	"fmt"

	"github.com/TheusHen/jframe/jframe/frame"
)

var (
	ErrUnknownOperation = errors.New("jframe: unknown operation")
	ErrMissingStream    = errors.New("jframe: readable and writable are required")
	ErrWorkerClosed     = errors.New("jframe: worker closed")
)

// Operation selects what a Message asks the worker to do.
type Operation uint8

const (
	OpInvalid Operation = iota
	OpInitialize
	OpEncode
	OpDecode
	OpSetEnabled
	OpSetKey
	OpCleanup
	OpCleanupAll
)

var operationNames = map[Operation]string{
	OpInitialize: "initialize",
	OpEncode:     "encode",
	OpDecode:     "decode",
	OpSetEnabled: "setEnabled",
	OpSetKey:     "setKey",
	OpCleanup:    "cleanup",
	OpCleanupAll: "cleanupAll",
}

func (o Operation) String() string {
	if name, ok := operationNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Operation(%d)", uint8(o))
}

// ParseOperation maps a wire operation name to its Operation.
func ParseOperation(name string) (Operation, error) {
	for op, n := range operationNames {
		if n == name {
			return op, nil
		}
	}
	return OpInvalid, fmt.Errorf("%w: %q", ErrUnknownOperation, name)
}

// Message is one control request. Only the fields relevant to Operation are
// read.
type Message struct {
	Operation     Operation
	ParticipantID string

	// SharedKey switches the worker to shared-key mode (initialize).
	SharedKey []byte

	// Key is the raw key for setKey; nil clears the current slot.
	Key []byte
	// KeyIndex selects the ring slot for setKey, modulo 16. A negative
	// index keeps the current slot.
	KeyIndex int

	Enabled bool

	// Readable and Writable are the frame streams attached by encode and
	// decode.
	Readable frame.Reader
	Writable frame.Writer
}
