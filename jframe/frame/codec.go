package frame

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
)

const (
	// MaxPayload limits a single frame payload on a stream.
	MaxPayload = 1 << 20 // 1 MiB

	headerSize = 1 + 4 + 4 + 4
)

var (
	ErrPayloadTooLarge = errors.New("frame: payload too large")
	ErrInvalidKind     = errors.New("frame: invalid kind")
)

// WriteTo serializes f for a byte stream.
// Format:
//
//	1 byte: kind
//	4 bytes: SSRC (big endian)
//	4 bytes: timestamp (big endian)
//	4 bytes: payload length (big endian)
//	N bytes: payload
func WriteTo(w io.Writer, f *Frame) error {
	if !f.Kind.Valid() {
		return ErrInvalidKind
	}
	if len(f.Data) > MaxPayload {
		return ErrPayloadTooLarge
	}
	buf := make([]byte, headerSize+len(f.Data))
	buf[0] = byte(f.Kind)
	binary.BigEndian.PutUint32(buf[1:5], f.SSRC)
	binary.BigEndian.PutUint32(buf[5:9], f.Timestamp)
	binary.BigEndian.PutUint32(buf[9:13], uint32(len(f.Data)))
	copy(buf[headerSize:], f.Data)
	_, err := w.Write(buf)
	return err
}

// ReadFrom reads one frame written by WriteTo.
func ReadFrom(r io.Reader) (*Frame, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	kind := Kind(hdr[0])
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}
	payloadLen := binary.BigEndian.Uint32(hdr[9:13])
	if payloadLen > MaxPayload {
		return nil, fmt.Errorf("%w: %d", ErrPayloadTooLarge, payloadLen)
	}
	data := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, data); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return &Frame{
		Kind:      kind,
		SSRC:      binary.BigEndian.Uint32(hdr[1:5]),
		Timestamp: binary.BigEndian.Uint32(hdr[5:9]),
		Data:      data,
	}, nil
}

// StreamReader adapts a byte stream to Reader.
type StreamReader struct {
	r io.Reader
}

func NewStreamReader(r io.Reader) *StreamReader { return &StreamReader{r: r} }

func (s *StreamReader) ReadFrame(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ReadFrom(s.r)
}

// StreamWriter adapts a byte stream to Writer. It is safe for concurrent use.
type StreamWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func NewStreamWriter(w io.Writer) *StreamWriter { return &StreamWriter{w: w} }

func (s *StreamWriter) WriteFrame(ctx context.Context, f *Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return WriteTo(s.w, f)
}
