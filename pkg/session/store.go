package session

import (
	"context"
	"sync"
	"time"

	"github.com/matzehuels/mermaidlive/pkg/errors"
)

// DefaultTTL is how long an idle session is kept.
const DefaultTTL = 2 * time.Hour

// Store keeps live sessions in memory.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewStore creates a store that expires sessions idle for longer than ttl.
// A ttl of zero keeps sessions until they are deleted.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create starts a new session and stores it.
func (s *Store) Create(cfg Config) *Session {
	sess := New(cfg)
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

// Get returns the session with the given id and marks it used. Expired
// sessions are closed and reported as not found.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.New(errors.ErrCodeSessionNotFound, "session %q not found", id)
	}
	if sess.Expired(s.ttl, s.now()) {
		_ = s.Delete(id)
		return nil, errors.New(errors.ErrCodeSessionNotFound, "session %q expired", id)
	}
	sess.Touch()
	return sess, nil
}

// Delete closes and removes a session. Unknown ids are ignored.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return sess.Close()
}

// Len returns the number of stored sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Cleanup closes and removes expired sessions and returns how many were
// removed.
func (s *Store) Cleanup(_ context.Context) int {
	now := s.now()
	var expired []*Session

	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.Expired(s.ttl, now) {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		_ = sess.Close()
	}
	return len(expired)
}

// Run calls Cleanup every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Cleanup(ctx)
		}
	}
}

// Close closes every session.
func (s *Store) Close() error {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		_ = sess.Close()
	}
	return nil
}
