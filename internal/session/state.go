// Package session owns the client's authentication state: the token pair,
// the signed-in user id and the cached current user.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rift/client/internal/api"
	"github.com/rift/client/internal/logging"
	"github.com/rift/client/internal/models"
	"github.com/rift/client/internal/secrets"
)

// Snapshot is an immutable copy of the session.
type Snapshot struct {
	AccessToken  string
	RefreshToken string
	UserID       string
	CurrentUser  *models.User
}

// Authenticated reports whether an access token is held.
func (s Snapshot) Authenticated() bool {
	return s.AccessToken != ""
}

// State holds the in-memory session and mirrors token changes into a
// secrets.Store. It implements api.Credentials.
type State struct {
	store secrets.Store

	// writeMu orders store writes so a slow refresh cannot persist tokens
	// after the session it belonged to was cleared or replaced.
	writeMu sync.Mutex

	mu      sync.RWMutex
	access  string
	refresh string
	userID  string
	user    *models.User

	subMu   sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int
}

// NewState returns an empty, unauthenticated state.
func NewState(store secrets.Store) *State {
	return &State{store: store, subs: make(map[int]func(Snapshot))}
}

// Load replaces the in-memory tokens with the persisted ones.
func (s *State) Load(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	access, err := secrets.Lookup(ctx, s.store, secrets.KeyAccessToken)
	if err != nil {
		return fmt.Errorf("load access token: %w", err)
	}
	refresh, err := secrets.Lookup(ctx, s.store, secrets.KeyRefreshToken)
	if err != nil {
		return fmt.Errorf("load refresh token: %w", err)
	}
	userID, err := secrets.Lookup(ctx, s.store, secrets.KeyUserID)
	if err != nil {
		return fmt.Errorf("load user id: %w", err)
	}

	s.mu.Lock()
	s.access, s.refresh, s.userID = access, refresh, userID
	s.mu.Unlock()
	s.notify()
	return nil
}

// Establish persists a freshly issued token pair with the user id and only
// then marks the session authenticated.
func (s *State) Establish(ctx context.Context, tokens models.SessionTokens, user models.User) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.store.SetAll(ctx, map[string]string{
		secrets.KeyAccessToken:  tokens.AccessToken,
		secrets.KeyRefreshToken: tokens.RefreshToken,
		secrets.KeyUserID:       user.ID,
	}); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	u := user.Clone()
	s.mu.Lock()
	s.access, s.refresh, s.userID = tokens.AccessToken, tokens.RefreshToken, user.ID
	s.user = &u
	s.mu.Unlock()
	s.notify()
	return nil
}

func (s *State) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

func (s *State) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh
}

// ApplyRefresh installs a refreshed access token and, when the server
// rotated it, the new refresh token. used is the refresh token the request
// was made with; when the session no longer holds it (logout, or a new
// login) nothing is written and api.ErrSessionEnded is returned. Memory is
// updated before persistence so in-flight retries see the token even if the
// store write fails.
func (s *State) ApplyRefresh(ctx context.Context, used, access, refresh string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if used == "" || s.refresh != used {
		s.mu.Unlock()
		return api.ErrSessionEnded
	}
	s.access = access
	if refresh != "" {
		s.refresh = refresh
	}
	values := map[string]string{
		secrets.KeyAccessToken:  s.access,
		secrets.KeyRefreshToken: s.refresh,
	}
	s.mu.Unlock()
	s.notify()

	if err := s.store.SetAll(ctx, values); err != nil {
		return fmt.Errorf("persist refreshed token: %w", err)
	}
	return nil
}

// Invalidate ends the session locally after an unrecoverable refresh
// failure. A session that has moved on from the used refresh token is left
// alone.
func (s *State) Invalidate(ctx context.Context, used string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.RefreshToken() != used {
		return
	}
	if err := s.clearLocked(ctx); err != nil {
		logging.FromContext(ctx).Warn("clear persisted session", slog.Any("error", err))
	}
}

// Clear drops the in-memory session and deletes every persisted key. Memory
// is cleared even when the store fails.
func (s *State) Clear(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.clearLocked(ctx)
}

func (s *State) clearLocked(ctx context.Context) error {
	s.mu.Lock()
	s.access, s.refresh, s.userID = "", "", ""
	s.user = nil
	s.mu.Unlock()
	s.notify()

	if err := s.store.Delete(ctx, secrets.SessionKeys...); err != nil {
		return fmt.Errorf("delete session keys: %w", err)
	}
	return nil
}

// SetUser replaces the cached current user.
func (s *State) SetUser(user models.User) {
	u := user.Clone()
	s.mu.Lock()
	s.user = &u
	if s.userID == "" {
		s.userID = user.ID
	}
	s.mu.Unlock()
	s.notify()
}

// IsAuthenticated reports whether an access token is held in memory.
func (s *State) IsAuthenticated() bool {
	return s.AccessToken() != ""
}

// Snapshot copies the current session.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{AccessToken: s.access, RefreshToken: s.refresh, UserID: s.userID}
	if s.user != nil {
		u := s.user.Clone()
		snap.CurrentUser = &u
	}
	return snap
}

// Subscribe registers fn for every change. fn runs on the goroutine that made
// the change and must not block. The returned func unsubscribes.
func (s *State) Subscribe(fn func(Snapshot)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *State) notify() {
	s.subMu.Lock()
	if len(s.subs) == 0 {
		s.subMu.Unlock()
		return
	}
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	snap := s.Snapshot()
	for _, fn := range fns {
		fn(snap)
	}
}
