// Package registry maps participant ids to their frame cryptors.
//
// A registry starts in per-participant mode, creating one session per
// participant on first use. Initializing it with a shared key moves it to
// shared mode for the rest of its life: every participant id then resolves
// to the same session.
package registry

import (
	"errors"
	"sync"

	"github.com/TheusHen/jframe/jframe/session"
)

var ErrEmptySharedKey = errors.New("registry: empty shared key")

// state is either perParticipant or shared.
type state interface {
	isState()
}

type perParticipant struct {
	sessions map[string]*session.Session
}

type shared struct {
	session *session.Session
}

func (perParticipant) isState() {}
func (shared) isState()         {}

// Registry owns every session of one worker.
type Registry struct {
	mu      sync.Mutex
	cfg     session.Config
	enabled bool
	state   state
}

// New returns an empty per-participant registry with protection disabled.
func New(cfg session.Config) *Registry {
	return &Registry{
		cfg:   cfg,
		state: perParticipant{sessions: map[string]*session.Session{}},
	}
}

// Get returns the session for participantID, creating it with the current
// enabled flag if needed. In shared mode the shared session is returned for
// every id.
func (r *Registry) Get(participantID string) *session.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch st := r.state.(type) {
	case shared:
		return st.session
	case perParticipant:
		s, ok := st.sessions[participantID]
		if !ok {
			s = session.New(participantID, r.cfg)
			s.SetEnabled(r.enabled)
			st.sessions[participantID] = s
		}
		return s
	default:
		panic("registry: unknown state")
	}
}

// Lookup returns an existing session without creating one.
func (r *Registry) Lookup(participantID string) (*session.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch st := r.state.(type) {
	case shared:
		return st.session, true
	case perParticipant:
		s, ok := st.sessions[participantID]
		return s, ok
	default:
		return nil, false
	}
}

// SetEnabled updates the flag used for new sessions and every existing one.
func (r *Registry) SetEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.enabled = enabled
	switch st := r.state.(type) {
	case shared:
		st.session.SetEnabled(enabled)
	case perParticipant:
		for _, s := range st.sessions {
			s.SetEnabled(enabled)
		}
	}
}

func (r *Registry) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

// Cleanup tears down the session of participantID. It reports whether a
// session was removed; the shared session is never removed this way.
func (r *Registry) Cleanup(participantID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.state.(perParticipant)
	if !ok {
		return false
	}
	s, ok := st.sessions[participantID]
	if !ok {
		return false
	}
	delete(st.sessions, participantID)
	s.Close()
	return true
}

// CleanupAll tears down every per-participant session, or disables the
// shared session in shared mode.
func (r *Registry) CleanupAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch st := r.state.(type) {
	case shared:
		st.session.SetEnabled(false)
	case perParticipant:
		for id, s := range st.sessions {
			delete(st.sessions, id)
			s.Close()
		}
	}
}

// InitializeShared switches the registry to shared mode with key installed
// in slot 0 of the shared session. Per-participant sessions are torn down.
// Initializing again replaces the shared session.
func (r *Registry) InitializeShared(key []byte) error {
	if len(key) == 0 {
		return ErrEmptySharedKey
	}
	s := session.NewShared(r.cfg)
	if err := s.SetKey(key, 0); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s.SetEnabled(r.enabled)
	switch st := r.state.(type) {
	case shared:
		st.session.Close()
	case perParticipant:
		for _, old := range st.sessions {
			old.Close()
		}
	}
	r.state = shared{session: s}
	return nil
}

// Shared reports whether the registry is in shared mode.
func (r *Registry) Shared() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.state.(shared)
	return ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch st := r.state.(type) {
	case shared:
		return 1
	case perParticipant:
		return len(st.sessions)
	default:
		return 0
	}
}
