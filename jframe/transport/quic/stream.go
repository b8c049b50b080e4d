package quic

import (
	"context"
	"sync"
	"time"

	"github.com/TheusHen/jframe/jframe/frame"
	q "github.com/quic-go/quic-go"
)

// Stream is a bidirectional frame stream. It implements frame.Reader and
// frame.Writer. One goroutine may read while another writes.
type Stream struct {
	inner q.Stream
	wmu   sync.Mutex
}

func newStream(s q.Stream) *Stream {
	return &Stream{inner: s}
}

// ReadFrame reads the next frame. It returns io.EOF once the peer closed its
// side of the stream.
func (s *Stream) ReadFrame(ctx context.Context) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_ = s.inner.SetReadDeadline(time.Time{})
	stop := context.AfterFunc(ctx, func() {
		_ = s.inner.SetReadDeadline(time.Now())
	})
	defer stop()

	f, err := frame.ReadFrom(s.inner)
	if err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return f, err
}

func (s *Stream) WriteFrame(ctx context.Context, f *frame.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()

	_ = s.inner.SetWriteDeadline(time.Time{})
	stop := context.AfterFunc(ctx, func() {
		_ = s.inner.SetWriteDeadline(time.Now())
	})
	defer stop()

	err := frame.WriteTo(s.inner, f)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// CloseWrite ends the sending side; the peer reads io.EOF after the last
// frame.
func (s *Stream) CloseWrite() error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return s.inner.Close()
}

// Close ends both directions.
func (s *Stream) Close() error {
	s.inner.CancelRead(q.StreamErrorCode(closeNoError))
	return s.CloseWrite()
}
