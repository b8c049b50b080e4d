// Package quic carries frame streams over QUIC.
//
// Each QUIC stream holds one frame stream in the frame package's length
// prefixed encoding. Frames stay end-to-end encrypted; TLS only hides the
// framing metadata from the network path.
package quic

import (
	"context"
	"net"
	"time"

	q "github.com/quic-go/quic-go"
)

const (
	// closeNoError is the application error code of a normal close.
	closeNoError q.ApplicationErrorCode = 0

	keepAlivePeriod = 10 * time.Second
)

func newConfig() *q.Config {
	return &q.Config{KeepAlivePeriod: keepAlivePeriod}
}

type Listener struct {
	inner *q.Listener
}

func Listen(addr string) (*Listener, error) {
	tlsConf, err := NewServerTLSConfig()
	if err != nil {
		return nil, err
	}
	ln, err := q.ListenAddr(addr, tlsConf, newConfig())
	if err != nil {
		return nil, err
	}
	return &Listener{inner: ln}, nil
}

func (l *Listener) Accept(ctx context.Context) (*Conn, error) {
	c, err := l.inner.Accept(ctx)
	if err != nil {
		return nil, err
	}
	return &Conn{inner: c}, nil
}

func (l *Listener) Addr() net.Addr { return l.inner.Addr() }

func (l *Listener) AddrString() string {
	if l.inner == nil {
		return ""
	}
	return l.inner.Addr().String()
}

func (l *Listener) Close() error { return l.inner.Close() }

func Dial(ctx context.Context, addr string) (*Conn, error) {
	c, err := q.DialAddr(ctx, addr, NewClientTLSConfig(), newConfig())
	if err != nil {
		return nil, err
	}
	return &Conn{inner: c}, nil
}

// Conn is a QUIC connection carrying frame streams.
type Conn struct {
	inner q.Connection
}

// OpenStream opens a frame stream. The peer sees it once the first frame is
// written.
func (c *Conn) OpenStream(ctx context.Context) (*Stream, error) {
	s, err := c.inner.OpenStreamSync(ctx)
	if err != nil {
		return nil, err
	}
	return newStream(s), nil
}

func (c *Conn) AcceptStream(ctx context.Context) (*Stream, error) {
	s, err := c.inner.AcceptStream(ctx)
	if err != nil {
		return nil, err
	}
	return newStream(s), nil
}

func (c *Conn) RemoteAddr() net.Addr { return c.inner.RemoteAddr() }

// Done is closed when the connection ends.
func (c *Conn) Done() <-chan struct{} { return c.inner.Context().Done() }

func (c *Conn) Close() error {
	return c.inner.CloseWithError(closeNoError, "")
}
