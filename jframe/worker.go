package jframe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/TheusHen/jframe/jframe/frame"
	"github.com/TheusHen/jframe/jframe/registry"
	"github.com/TheusHen/jframe/jframe/session"
	"github.com/sirupsen/logrus"
)

// Config configures a Worker.
type Config struct {
	Session session.Config
	Logger  *logrus.Logger
	// QueueSize is the capacity of the inbox used by Post and Serve.
	QueueSize int
}

func DefaultConfig() Config {
	return Config{
		Session:   session.DefaultConfig(),
		QueueSize: 64,
	}
}

// Worker processes control messages in arrival order and runs one transform
// goroutine per attached stream.
type Worker struct {
	log      *logrus.Entry
	registry *registry.Registry
	inbox    chan Message

	wg      sync.WaitGroup
	closed  chan struct{}
	closing atomic.Bool
	active  atomic.Int32
}

func NewWorker(cfg Config) *Worker {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Session.Logger == nil {
		cfg.Session.Logger = cfg.Logger
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	return &Worker{
		log:      cfg.Logger.WithField("component", "jframe"),
		registry: registry.New(cfg.Session),
		inbox:    make(chan Message, cfg.QueueSize),
		closed:   make(chan struct{}),
	}
}

// Registry exposes the participant sessions held by the worker.
func (w *Worker) Registry() *registry.Registry { return w.registry }

// Transforms returns the number of running transform goroutines.
func (w *Worker) Transforms() int { return int(w.active.Load()) }

// Handle applies one message. Transforms attached by encode and decode run
// until their reader ends, ctx is cancelled, the participant is cleaned up or
// the worker is closed.
func (w *Worker) Handle(ctx context.Context, msg Message) error {
	if w.closing.Load() {
		return ErrWorkerClosed
	}
	log := w.log.WithFields(logrus.Fields{
		"operation":   msg.Operation.String(),
		"participant": msg.ParticipantID,
	})

	switch msg.Operation {
	case OpInitialize:
		if len(msg.SharedKey) == 0 {
			return nil
		}
		if err := w.registry.InitializeShared(msg.SharedKey); err != nil {
			log.WithError(err).Warn("shared key rejected")
			return fmt.Errorf("jframe: initialize: %w", err)
		}
		log.Debug("shared key mode enabled")
		return nil

	case OpEncode, OpDecode:
		if msg.Readable == nil || msg.Writable == nil {
			return ErrMissingStream
		}
		s := w.registry.Get(msg.ParticipantID)
		transform := s.Encode
		if msg.Operation == OpDecode {
			transform = s.Decode
		}
		w.attach(ctx, log, s, transform, msg.Readable, msg.Writable)
		return nil

	case OpSetEnabled:
		w.registry.SetEnabled(msg.Enabled)
		return nil

	case OpSetKey:
		if err := w.registry.Get(msg.ParticipantID).SetKey(msg.Key, msg.KeyIndex); err != nil {
			log.WithError(err).Warn("set key failed")
			return fmt.Errorf("jframe: setKey: %w", err)
		}
		return nil

	case OpCleanup:
		w.registry.Cleanup(msg.ParticipantID)
		return nil

	case OpCleanupAll:
		w.registry.CleanupAll()
		return nil

	default:
		log.Error("unknown operation")
		return fmt.Errorf("%w: %s", ErrUnknownOperation, msg.Operation)
	}
}

// Run handles messages from msgs until it is closed or ctx is cancelled.
// Failed messages are logged by Handle and do not stop the loop.
func (w *Worker) Run(ctx context.Context, msgs <-chan Message) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.closed:
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			_ = w.Handle(ctx, msg)
		}
	}
}

// Post queues msg for Serve.
func (w *Worker) Post(ctx context.Context, msg Message) error {
	select {
	case <-w.closed:
		return ErrWorkerClosed
	default:
	}
	select {
	case w.inbox <- msg:
		return nil
	case <-w.closed:
		return ErrWorkerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Serve runs the worker over its own inbox.
func (w *Worker) Serve(ctx context.Context) error {
	return w.Run(ctx, w.inbox)
}

// Wait blocks until every transform has stopped.
func (w *Worker) Wait() {
	w.wg.Wait()
}

// Close stops all transforms and waits for them.
func (w *Worker) Close() error {
	if w.closing.Swap(true) {
		return nil
	}
	close(w.closed)
	w.wg.Wait()
	return nil
}

type transformFunc func(*frame.Frame) (*frame.Frame, error)

func (w *Worker) attach(ctx context.Context, log *logrus.Entry, s *session.Session, transform transformFunc, r frame.Reader, wr frame.Writer) {
	ctx, cancel := context.WithCancel(ctx)
	w.wg.Add(1)
	w.active.Add(1)
	go func() {
		defer w.wg.Done()
		defer w.active.Add(-1)
		defer cancel()

		go func() {
			select {
			case <-s.Done():
			case <-w.closed:
			case <-ctx.Done():
			}
			cancel()
		}()

		err := pipe(ctx, log, transform, r, wr)
		switch {
		case err == nil, errors.Is(err, io.EOF), ctx.Err() != nil:
			log.Debug("transform stopped")
		default:
			log.WithError(err).Warn("transform failed")
		}
	}()
}

// pipe moves frames from r to wr through transform. Dropped frames are
// skipped; only stream errors end the pipe.
func pipe(ctx context.Context, log *logrus.Entry, transform transformFunc, r frame.Reader, wr frame.Writer) error {
	for {
		f, err := r.ReadFrame(ctx)
		if err != nil {
			return err
		}
		out, err := transform(f)
		if out == nil {
			if err != nil && !errors.Is(err, session.ErrKeyAbsent) {
				log.WithError(err).Debug("frame dropped")
			}
			continue
		}
		if err := wr.WriteFrame(ctx, out); err != nil {
			return err
		}
	}
}
