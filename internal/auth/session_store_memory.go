package auth

import (
	"context"
	"slices"
	"sync"
)

// MaxSessionsPerUser bounds the refresh sessions kept for one account. Saving
// another evicts the oldest.
const MaxSessionsPerUser = 10

// InMemorySessionStore keeps refresh sessions in process memory. Sessions
// already expired at the IssuedAt of a newly saved one are dropped on Save,
// so expiry follows the manager's clock rather than the wall clock.
type InMemorySessionStore struct {
	mu     sync.Mutex
	byKey  map[string]Session
	byUser map[string][]string
}

func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{byKey: make(map[string]Session), byUser: make(map[string][]string)}
}

func (s *InMemorySessionStore) Save(_ context.Context, session Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, existing := range s.byKey {
		if session.IssuedAt.After(existing.ExpiresAt) {
			s.removeLocked(token)
		}
	}
	tokens := s.byUser[session.UserID]
	for len(tokens) >= MaxSessionsPerUser {
		s.removeLocked(tokens[0])
		tokens = s.byUser[session.UserID]
	}
	s.byKey[session.RefreshToken] = session
	s.byUser[session.UserID] = append(tokens, session.RefreshToken)
	return nil
}

func (s *InMemorySessionStore) Find(_ context.Context, refreshToken string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.byKey[refreshToken]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return session, nil
}

func (s *InMemorySessionStore) Delete(_ context.Context, refreshToken string) error {
	s.mu.Lock()
	s.removeLocked(refreshToken)
	s.mu.Unlock()
	return nil
}

// Count returns how many sessions userID holds.
func (s *InMemorySessionStore) Count(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byUser[userID])
}

func (s *InMemorySessionStore) removeLocked(token string) {
	session, ok := s.byKey[token]
	if !ok {
		return
	}
	delete(s.byKey, token)
	remaining := slices.DeleteFunc(s.byUser[session.UserID], func(t string) bool { return t == token })
	if len(remaining) == 0 {
		delete(s.byUser, session.UserID)
		return
	}
	s.byUser[session.UserID] = remaining
}
