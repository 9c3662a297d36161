package session

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultIdleTTL is how long an untouched session survives in a Store.
const DefaultIdleTTL = 24 * time.Hour

// Store is an in-memory session registry. Sessions are created explicitly,
// removed on reset, and expired after the idle TTL.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewStore creates a Store. A non-positive ttl uses DefaultIdleTTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create registers a new session.
func (st *Store) Create() *Session {
	s := New()
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sweepLocked()
	st.sessions[s.ID] = s
	log.Debug().Str("session", s.ID).Int("active", len(st.sessions)).Msg("Session created")
	return s
}

// Get returns a live session.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, false
	}
	if st.expired(s) {
		st.dropLocked(id, s)
		return nil, false
	}
	return s, true
}

// Delete resets and removes a session. It reports whether the session
// existed.
func (st *Store) Delete(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if ok {
		st.dropLocked(id, s)
	}
	return ok
}

// Len returns the number of registered sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

func (st *Store) expired(s *Session) bool {
	return st.now().Sub(s.lastTouched()) > st.ttl
}

func (st *Store) sweepLocked() {
	for id, s := range st.sessions {
		if st.expired(s) {
			log.Debug().Str("session", id).Msg("Session expired")
			st.dropLocked(id, s)
		}
	}
}

func (st *Store) dropLocked(id string, s *Session) {
	s.Reset()
	delete(st.sessions, id)
}
