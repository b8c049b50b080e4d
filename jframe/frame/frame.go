package frame

import "context"

// Frame is one encoded media frame as handed over by the media pipeline.
type Frame struct {
	Kind      Kind
	SSRC      uint32 // synchronization source of the stream
	Timestamp uint32 // RTP timestamp
	Data      []byte
}

// Clone returns a deep copy of f.
func (f *Frame) Clone() *Frame {
	out := *f
	out.Data = append([]byte(nil), f.Data...)
	return &out
}

// WithData returns a copy of f carrying data instead of its payload.
func (f *Frame) WithData(data []byte) *Frame {
	out := *f
	out.Data = data
	return &out
}

// Reader supplies frames to a transform. It returns io.EOF when the stream ends.
type Reader interface {
	ReadFrame(ctx context.Context) (*Frame, error)
}

// Writer consumes transformed frames.
type Writer interface {
	WriteFrame(ctx context.Context, f *Frame) error
}
