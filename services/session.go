package services

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"graph-investigator/errors"
	"graph-investigator/models"
)

// Session owns one conversation's history. Turns are appended only by the
// session's own pipeline runs; no other session reads or writes them.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu    sync.Mutex
	turns []models.ConversationTurn
}

// Append records a completed turn.
func (s *Session) Append(turn models.ConversationTurn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, turn)
}

// Recent returns a copy of the most recent n turns, oldest first.
func (s *Session) Recent(n int) []models.ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := len(s.turns) - n
	if start < 0 {
		start = 0
	}
	recent := make([]models.ConversationTurn, len(s.turns)-start)
	copy(recent, s.turns[start:])
	return recent
}

// History returns a copy of the full transcript. The prompt window is
// bounded, but nothing is lost to the caller.
func (s *Session) History() []models.ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := make([]models.ConversationTurn, len(s.turns))
	copy(history, s.turns)
	return history
}

// SessionRegistry isolates independent conversation sessions.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session with a fresh identifier.
func (r *SessionRegistry) Create() *Session {
	session := &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
	}

	r.mu.Lock()
	r.sessions[session.ID] = session
	r.mu.Unlock()

	return session
}

// Get returns an existing session.
func (r *SessionRegistry) Get(id string) (*Session, error) {
	r.mu.RLock()
	session, ok := r.sessions[id]
	r.mu.RUnlock()

	if !ok {
		return nil, errors.NewNotFoundError(
			errors.ErrCodeSessionNotFound,
			"Unknown session: "+id,
			nil,
		)
	}
	return session, nil
}
