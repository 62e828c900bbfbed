package memory

import (
	"context"
	"sync"
	"time"

	"github.com/parchment-labs/stagechat/internal/core/domain"
	"github.com/parchment-labs/stagechat/internal/core/ports/driven"
)

// Ensure SessionStore implements the interface.
var _ driven.SessionStore = (*SessionStore)(nil)

// DefaultSessionCap is the default maximum number of turns per session.
const DefaultSessionCap = 50

// SessionStore is an in-memory implementation of driven.SessionStore.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
	turnCap  int
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*domain.Session),
		turnCap:  DefaultSessionCap,
	}
}

// SetTurnCap overrides the per-session turn cap.
func (s *SessionStore) SetTurnCap(n int) {
	if n > 0 {
		s.mu.Lock()
		s.turnCap = n
		s.mu.Unlock()
	}
}

// Get retrieves a session by ID.
func (s *SessionStore) Get(_ context.Context, id string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}

	copied := *session
	copied.Turns = append([]domain.Turn(nil), session.Turns...)
	return &copied, nil
}

// AppendTurn appends a turn, creating the session if needed and
// evicting the oldest turns past the cap.
func (s *SessionStore) AppendTurn(_ context.Context, sessionID string, turn domain.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := turn.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	session, ok := s.sessions[sessionID]
	if !ok {
		session = &domain.Session{ID: sessionID, CreatedAt: now}
		s.sessions[sessionID] = session
	}

	session.Turns = append(session.Turns, turn)
	if len(session.Turns) > s.turnCap {
		session.Turns = session.Turns[len(session.Turns)-s.turnCap:]
	}
	session.UpdatedAt = now
	return nil
}

// Delete removes a session and its turns.
func (s *SessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// PurgeExpired removes sessions idle longer than ttl.
func (s *SessionStore) PurgeExpired(_ context.Context, ttl time.Duration) (int, error) {
	if ttl <= 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	var purged int
	for id, session := range s.sessions {
		if session.Expired(ttl, now) {
			delete(s.sessions, id)
			purged++
		}
	}
	return purged, nil
}
