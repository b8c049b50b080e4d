// Package capture records frame streams to LZ4-compressed capture files and
// replays them.
//
// A relay can record the encrypted frames it forwards without holding any
// key; Summarize reads a capture through the relay view of the trailer.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/TheusHen/jframe/jframe/frame"
	"github.com/pierrec/lz4/v4"
)

var (
	ErrBadMagic = errors.New("capture: not a frame capture")
	ErrClosed   = errors.New("capture: writer closed")
)

var magic = []byte{'J', 'F', 'C', 'P', 1}

// Level controls the speed/ratio tradeoff of the compressor.
type Level int

const (
	LevelFast Level = iota
	LevelDefault
	LevelBest
)

func (l Level) option() lz4.Option {
	switch l {
	case LevelFast:
		return lz4.CompressionLevelOption(lz4.Fast)
	case LevelBest:
		return lz4.CompressionLevelOption(lz4.Level9)
	default:
		return lz4.CompressionLevelOption(lz4.Level4)
	}
}

// Writer appends frames to a capture. It implements frame.Writer and is safe
// for concurrent use.
type Writer struct {
	mu     sync.Mutex
	zw     *lz4.Writer
	frames int
	closed bool
}

// NewWriter writes the capture header to w and returns a Writer
// compressing every following frame.
func NewWriter(w io.Writer, level Level) (*Writer, error) {
	if _, err := w.Write(magic); err != nil {
		return nil, err
	}
	zw := lz4.NewWriter(w)
	if err := zw.Apply(level.option()); err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	return &Writer{zw: zw}, nil
}

func (w *Writer) WriteFrame(ctx context.Context, f *frame.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if err := frame.WriteTo(w.zw, f); err != nil {
		return err
	}
	w.frames++
	return nil
}

// Flush compresses and writes buffered frames.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	return w.zw.Flush()
}

// Frames returns the number of frames written so far.
func (w *Writer) Frames() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames
}

// Close ends the compressed stream. The underlying writer is left open.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.zw.Close()
}

// Reader replays a capture. It implements frame.Reader.
type Reader struct {
	zr *lz4.Reader
}

func NewReader(r io.Reader) (*Reader, error) {
	hdr := make([]byte, len(magic))
	if _, err := io.ReadFull(r, hdr); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrBadMagic
		}
		return nil, err
	}
	if !bytes.Equal(hdr, magic) {
		return nil, ErrBadMagic
	}
	return &Reader{zr: lz4.NewReader(r)}, nil
}

func (r *Reader) ReadFrame(ctx context.Context) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return frame.ReadFrom(r.zr)
}

// Tee forwards frames to Next and records a copy to Record. A recording
// failure does not stop forwarding; it is reported by Err.
type Tee struct {
	Next   frame.Writer
	Record frame.Writer

	mu  sync.Mutex
	err error
}

func (t *Tee) WriteFrame(ctx context.Context, f *frame.Frame) error {
	if err := t.Record.WriteFrame(ctx, f); err != nil {
		t.mu.Lock()
		if t.err == nil {
			t.err = err
		}
		t.mu.Unlock()
	}
	return t.Next.WriteFrame(ctx, f)
}

// Err returns the first recording error.
func (t *Tee) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Summary counts what a capture holds, as seen by a relay without keys.
type Summary struct {
	Frames    int
	Bytes     int
	ByKind    map[frame.Kind]int
	ByKeyID   map[uint8]int
	Malformed int
}

// Summarize reads r to the end and inspects every frame's trailer.
func Summarize(ctx context.Context, r frame.Reader) (Summary, error) {
	s := Summary{ByKind: map[frame.Kind]int{}, ByKeyID: map[uint8]int{}}
	for {
		f, err := r.ReadFrame(ctx)
		if errors.Is(err, io.EOF) {
			return s, nil
		}
		if err != nil {
			return s, err
		}
		s.Frames++
		s.Bytes += len(f.Data)
		s.ByKind[f.Kind]++
		view, err := frame.Inspect(f.Data, f.Kind)
		if err != nil {
			s.Malformed++
			continue
		}
		s.ByKeyID[view.KeyID]++
	}
}
