package media

import (
	"context"
	"io"
	"sync"

	"github.com/TheusHen/jframe/jframe/frame"
)

// Pipe is a buffered in-memory frame stream. It implements frame.Reader and
// frame.Writer; reads return io.EOF once the pipe is closed and drained.
type Pipe struct {
	frames chan *frame.Frame
	done   chan struct{}
	once   sync.Once
}

func NewPipe(size int) *Pipe {
	if size < 0 {
		size = 0
	}
	return &Pipe{
		frames: make(chan *frame.Frame, size),
		done:   make(chan struct{}),
	}
}

func (p *Pipe) ReadFrame(ctx context.Context) (*frame.Frame, error) {
	select {
	case f := <-p.frames:
		return f, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.done:
		select {
		case f := <-p.frames:
			return f, nil
		default:
			return nil, io.EOF
		}
	}
}

func (p *Pipe) WriteFrame(ctx context.Context, f *frame.Frame) error {
	select {
	case <-p.done:
		return io.ErrClosedPipe
	default:
	}
	select {
	case p.frames <- f:
		return nil
	case <-p.done:
		return io.ErrClosedPipe
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close ends the stream. Frames already buffered can still be read.
func (p *Pipe) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}
