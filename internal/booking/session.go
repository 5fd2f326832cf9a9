package booking

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound covers both unknown IDs and sessions owned by another
// user, so a caller cannot tell foreign sessions from missing ones.
var ErrSessionNotFound = errors.New("booking session not found")

// Session is one user's in-progress booking wizard. A session is owned by
// exactly one user; no two sessions share state. The embedded mutex
// serializes callers of SessionStore.With per session.
type Session struct {
	mu sync.Mutex

	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Wizard    *Wizard   `json:"-"`
}

// SessionStore holds live wizard sessions in memory. Sessions idle past the
// TTL are swept by a background loop; an abandoned draft has no side effects
// to roll back.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore creates a store and starts its sweep loop.
func NewSessionStore(ttl time.Duration) *SessionStore {
	s := &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
	go s.sweep()
	return s
}

// Start opens a new session for ownerID with a fresh wizard under cfg.
func (s *SessionStore) Start(ownerID string, cfg AvailabilityConfig) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess := &Session{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
		Wizard:    NewWizard(cfg),
	}
	s.sessions[sess.ID] = sess
	return sess
}

// With runs fn against the owner's session under that session's own lock:
// requests for one session run one at a time while other sessions stay
// responsive, even when fn is slow. The store lock covers only the map
// lookup. The session's UpdatedAt is bumped on success.
func (s *SessionStore) With(id, ownerID string, fn func(*Session) error) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok || sess.OwnerID != ownerID {
		return ErrSessionNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	// The session may have been cancelled or swept while this request was
	// waiting on its lock.
	s.mu.Lock()
	_, live := s.sessions[id]
	s.mu.Unlock()
	if !live {
		return ErrSessionNotFound
	}

	if err := fn(sess); err != nil {
		return err
	}
	s.mu.Lock()
	sess.UpdatedAt = s.now()
	s.mu.Unlock()
	return nil
}

// Delete discards the owner's session. Cancelling a draft leaves nothing
// behind: no partial persistence.
func (s *SessionStore) Delete(id, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || sess.OwnerID != ownerID {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Len reports the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *SessionStore) sweep() {
	for {
		time.Sleep(time.Minute)
		s.expire()
	}
}

func (s *SessionStore) expire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.ttl)
	for id, sess := range s.sessions {
		if sess.UpdatedAt.Before(cutoff) {
			delete(s.sessions, id)
		}
	}
}
