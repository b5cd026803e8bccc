package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/rift/client/internal/api"
	"github.com/rift/client/internal/logging"
	"github.com/rift/client/internal/models"
	"github.com/rift/client/internal/validation"
)

// RegisterInput carries the sign-up form.
type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
}

// Manager runs the authentication flows against the API and keeps State in
// sync with their outcome.
type Manager struct {
	api   api.Doer
	state *State
}

// NewManager wires a manager. client is normally the *api.Client built on
// top of state.
func NewManager(client api.Doer, state *State) *Manager {
	return &Manager{api: client, state: state}
}

// State exposes the underlying token holder.
func (m *Manager) State() *State {
	return m.state
}

// CheckAuthState restores a persisted session. When an access token is found
// the session becomes authenticated immediately and the current user is
// loaded in the background; a failed load logs the user out. The returned
// channel is closed once nothing is left running.
func (m *Manager) CheckAuthState(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	logger := logging.FromContext(ctx)

	if err := m.state.Load(ctx); err != nil {
		logger.Warn("restore session", slog.Any("error", err))
		close(done)
		return done
	}
	if !m.state.IsAuthenticated() {
		close(done)
		return done
	}

	go func() {
		defer close(done)
		user, err := m.FetchCurrentUser(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("restored session rejected, logging out", slog.Any("error", err))
			m.Logout(ctx)
			return
		}
		m.state.SetUser(user)
	}()
	return done
}

// FetchCurrentUser loads /users/me.
func (m *Manager) FetchCurrentUser(ctx context.Context) (models.User, error) {
	var user models.User
	if err := m.api.Do(ctx, api.Request{Method: http.MethodGet, Path: api.PathMe}, &user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// Login exchanges credentials for a session.
func (m *Manager) Login(ctx context.Context, username, password string) (models.User, error) {
	var resp models.AuthResponse
	err := m.api.Do(ctx, api.Request{
		Method:    http.MethodPost,
		Path:      api.PathLogin,
		Body:      models.LoginRequest{Username: username, Password: password},
		Anonymous: true,
	}, &resp)
	if err != nil {
		return models.User{}, err
	}
	return m.establish(ctx, resp)
}

// Register creates an account and signs it in.
func (m *Manager) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	req := models.RegisterRequest{Username: in.Username, Email: in.Email, Password: in.Password}
	if in.DisplayName != "" {
		req.DisplayName = models.Ptr(in.DisplayName)
	}
	if err := validation.Struct(req); err != nil {
		return models.User{}, err
	}

	var resp models.AuthResponse
	err := m.api.Do(ctx, api.Request{
		Method:    http.MethodPost,
		Path:      api.PathRegister,
		Body:      req,
		Anonymous: true,
	}, &resp)
	if err != nil {
		return models.User{}, err
	}
	return m.establish(ctx, resp)
}

func (m *Manager) establish(ctx context.Context, resp models.AuthResponse) (models.User, error) {
	tokens := models.SessionTokens{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		return models.User{}, api.ErrNoData
	}
	if err := m.state.Establish(ctx, tokens, resp.User); err != nil {
		return models.User{}, fmt.Errorf("sign in: %w", err)
	}
	logging.FromContext(ctx).Info("signed in", slog.String("user_id", resp.User.ID), slog.String("username", resp.User.Username))
	return resp.User, nil
}

// Logout tells the server to end the session, then clears local state no
// matter how the server call went.
func (m *Manager) Logout(ctx context.Context) {
	logger := logging.FromContext(ctx)

	if m.state.IsAuthenticated() {
		err := m.api.Do(ctx, api.Request{
			Method: http.MethodPost,
			Path:   api.PathLogout,
			Body:   models.RefreshRequest{RefreshToken: m.state.RefreshToken()},
		}, &models.Empty{})
		if err != nil {
			logger.Warn("server logout failed", slog.Any("error", err))
		}
	}
	if err := m.state.Clear(ctx); err != nil {
		logger.Warn("clear session", slog.Any("error", err))
	}
}

// UpdateCurrentUser refreshes the cached user after a profile edit.
func (m *Manager) UpdateCurrentUser(user models.User) {
	m.state.SetUser(user)
}

// CurrentUser returns a copy of the cached user, if any.
func (m *Manager) CurrentUser() (models.User, bool) {
	snap := m.state.Snapshot()
	if snap.CurrentUser == nil {
		return models.User{}, false
	}
	return *snap.CurrentUser, true
}

// Snapshot copies the session.
func (m *Manager) Snapshot() Snapshot {
	return m.state.Snapshot()
}

// IsAuthenticated reports whether an access token is held.
func (m *Manager) IsAuthenticated() bool {
	return m.state.IsAuthenticated()
}
