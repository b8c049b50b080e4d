package session

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/TheusHen/jframe/jframe/crypto"
	"github.com/TheusHen/jframe/jframe/crypto/ratchet"
	"github.com/TheusHen/jframe/jframe/keyring"
	"github.com/sirupsen/logrus"
)

var (
	ErrKeyAbsent      = errors.New("session: no key for frame key id")
	ErrAuthentication = errors.New("session: frame authentication failed")
	ErrEncryption     = errors.New("session: frame encryption failed")
)

// Config configures a Session.
type Config struct {
	Suite         crypto.Suite   // AEAD used for frame payloads
	RatchetWindow int            // ratchet attempts before a frame is dropped
	Logger        *logrus.Logger // defaults to logrus.New()
}

// DefaultConfig returns the interoperable defaults: AES-128-GCM and a
// ratchet window of 8.
func DefaultConfig() Config {
	return Config{
		Suite:         crypto.SuiteAES128GCM,
		RatchetWindow: ratchet.DefaultWindow,
	}
}

// Stats counts what a session did with the frames it saw.
type Stats struct {
	Encoded       atomic.Int64
	Decoded       atomic.Int64
	PassedThrough atomic.Int64
	Dropped       atomic.Int64
	Ratchets      atomic.Int64
}

// Session is the cryptographic context of one participant, or of every
// participant when shared.
type Session struct {
	participant string
	shared      bool
	suite       crypto.Suite
	window      int
	log         *logrus.Entry

	ring     *keyring.Ring
	counters *sendCounters
	enabled  atomic.Bool
	stats    Stats

	closeOnce sync.Once
	done      chan struct{}
}

// New creates a disabled session for participant.
func New(participant string, cfg Config) *Session {
	return newSession(participant, false, cfg)
}

// NewShared creates a disabled session whose keys are used as given,
// without derivation or ratcheting.
func NewShared(cfg Config) *Session {
	return newSession("", true, cfg)
}

func newSession(participant string, shared bool, cfg Config) *Session {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.RatchetWindow < 0 {
		cfg.RatchetWindow = 0
	}
	fields := logrus.Fields{"participant": participant}
	if shared {
		fields = logrus.Fields{"shared": true}
	}
	return &Session{
		participant: participant,
		shared:      shared,
		suite:       cfg.Suite,
		window:      cfg.RatchetWindow,
		log:         cfg.Logger.WithFields(fields),
		ring:        keyring.New(),
		counters:    newSendCounters(),
		done:        make(chan struct{}),
	}
}

// Participant returns the participant id, empty for shared sessions.
func (s *Session) Participant() string { return s.participant }

// Shared reports whether the session is in shared-key mode.
func (s *Session) Shared() bool { return s.shared }

// SetEnabled turns protection on or off. Disabled sessions pass frames through.
func (s *Session) SetEnabled(enabled bool) { s.enabled.Store(enabled) }

func (s *Session) Enabled() bool { return s.enabled.Load() }

// Ring exposes the key ring, mainly for inspection.
func (s *Session) Ring() *keyring.Ring { return s.ring }

func (s *Session) Stats() *Stats { return &s.stats }

// SetKey installs key in the ring. When keyIndex >= 0 the slot keyIndex mod
// 16 becomes current first. A nil or empty key clears the current slot.
// Derivation errors leave the ring untouched.
func (s *Session) SetKey(key []byte, keyIndex int) error {
	var km *crypto.KeyMaterial
	if len(key) > 0 {
		var err error
		if s.shared {
			km, err = crypto.NewSharedKeyMaterial(key, s.suite)
		} else {
			km, err = crypto.DeriveKeyMaterial(key, s.suite)
		}
		if err != nil {
			return fmt.Errorf("session: set key: %w", err)
		}
	}
	slot, err := s.ring.Set(km, keyIndex)
	if err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"slot": slot, "cleared": km == nil}).Debug("key updated")
	return nil
}

// Close marks the session as torn down. Transforms attached to it stop.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Done is closed once the session is torn down.
func (s *Session) Done() <-chan struct{} { return s.done }
