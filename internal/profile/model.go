// Package profile holds user profile screens: viewing a profile with its
// videos, following, editing the signed-in user and the bookmark list.
package profile

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/rift/client/internal/api"
	"github.com/rift/client/internal/logging"
	"github.com/rift/client/internal/models"
	"github.com/rift/client/internal/optimistic"
)

// CurrentUserUpdater receives the signed-in user after an edit.
// session.Manager implements it.
type CurrentUserUpdater interface {
	UpdateCurrentUser(user models.User)
}

// AvatarUploader stores an avatar image and returns its public URL.
type AvatarUploader interface {
	UploadAvatar(ctx context.Context, body io.Reader, size int64) (string, error)
}

// Snapshot is a copy of the model state.
type Snapshot struct {
	User         *models.User
	Videos       []models.Video
	IsLoading    bool
	ErrorMessage string
}

// Edit lists the profile fields to change. Nil fields are left as they are.
type Edit struct {
	DisplayName *string
	Bio         *string
	AvatarURL   *string
}

// Model is safe for concurrent use.
type Model struct {
	api      api.Doer
	session  CurrentUserUpdater
	uploader AvatarUploader
	runner   *optimistic.Runner

	mu      sync.Mutex
	user    *models.User
	videos  []models.Video
	loading bool
	errMsg  string
}

// NewModel wires a profile model. uploader may be nil when avatar changes are
// not needed.
func NewModel(client api.Doer, session CurrentUserUpdater, uploader AvatarUploader, runner *optimistic.Runner) *Model {
	if runner == nil {
		runner = optimistic.NewRunner(nil)
	}
	return &Model{api: client, session: session, uploader: uploader, runner: runner}
}

// Load fetches a profile and its videos. own selects /users/me; otherwise ref
// is a user id or username. The videos endpoint is always addressed by the
// username of the loaded user.
func (m *Model) Load(ctx context.Context, ref string, own bool) error {
	m.mu.Lock()
	m.loading = true
	m.errMsg = ""
	m.mu.Unlock()

	err := m.load(ctx, ref, own)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = false
	if err != nil {
		m.errMsg = api.Message(err)
		logging.FromContext(ctx).Warn("load profile", slog.String("ref", ref), slog.Any("error", err))
	}
	return err
}

func (m *Model) load(ctx context.Context, ref string, own bool) error {
	path := api.PathMe
	if !own {
		path = api.UserPath(ref)
	}
	var user models.User
	if err := m.api.Do(ctx, api.Request{Method: http.MethodGet, Path: path}, &user); err != nil {
		return err
	}
	m.mu.Lock()
	m.user = &user
	m.mu.Unlock()

	var page models.VideoPage
	if err := m.api.Do(ctx, api.Request{Method: http.MethodGet, Path: api.UserVideosPath(user.Username)}, &page); err != nil {
		return fmt.Errorf("load videos of %s: %w", user.Username, err)
	}
	m.mu.Lock()
	m.videos = page.Videos
	m.mu.Unlock()
	return nil
}

// ToggleFollow follows or unfollows the loaded user optimistically. The
// follower count is only adjusted when the server reported one.
func (m *Model) ToggleFollow(ctx context.Context) error {
	m.mu.Lock()
	var username string
	if m.user != nil {
		username = m.user.Username
	}
	m.mu.Unlock()
	if username == "" {
		return nil
	}

	return optimistic.Run(ctx, m.runner, "follow:"+username, optimistic.Mutation[models.User]{
		Kind: "follow",
		Capture: func() (models.User, bool) {
			m.mu.Lock()
			defer m.mu.Unlock()
			if m.user == nil || m.user.Username != username {
				return models.User{}, false
			}
			return m.user.Clone(), true
		},
		Apply: func(prior models.User) {
			m.mu.Lock()
			defer m.mu.Unlock()
			if m.user == nil || m.user.Username != username {
				return
			}
			m.user.IsFollowing = models.Ptr(!prior.Following())
			if prior.FollowersCount != nil {
				delta := 1
				if prior.Following() {
					delta = -1
				}
				m.user.FollowersCount = models.Ptr(*prior.FollowersCount + delta)
			}
		},
		Commit: func(ctx context.Context, prior models.User) error {
			method := http.MethodPost
			if prior.Following() {
				method = http.MethodDelete
			}
			return m.api.Do(ctx, api.Request{Method: method, Path: api.FollowPath(username)}, &models.Empty{})
		},
		Rollback: func(prior models.User) {
			m.mu.Lock()
			defer m.mu.Unlock()
			if m.user == nil || m.user.Username != username {
				return
			}
			restored := prior.Clone()
			m.user.IsFollowing = restored.IsFollowing
			m.user.FollowersCount = restored.FollowersCount
		},
	})
}

// UpdateProfile saves e through PATCH /users/me and propagates the result to
// the session.
func (m *Model) UpdateProfile(ctx context.Context, e Edit) (models.User, error) {
	var user models.User
	err := m.api.Do(ctx, api.Request{
		Method: http.MethodPatch,
		Path:   api.PathMe,
		Body:   models.UpdateProfileRequest{DisplayName: e.DisplayName, Bio: e.Bio, AvatarURL: e.AvatarURL},
	}, &user)
	if err != nil {
		m.setError(err)
		return models.User{}, err
	}

	if m.session != nil {
		m.session.UpdateCurrentUser(user)
	}
	m.mu.Lock()
	if m.user != nil && m.user.ID == user.ID {
		u := user.Clone()
		m.user = &u
	}
	m.mu.Unlock()
	return user, nil
}

// ChangeAvatar uploads a JPEG and points the profile at it.
func (m *Model) ChangeAvatar(ctx context.Context, body io.Reader, size int64) (models.User, error) {
	if m.uploader == nil {
		return models.User{}, fmt.Errorf("profile: no avatar uploader configured")
	}
	publicURL, err := m.uploader.UploadAvatar(ctx, body, size)
	if err != nil {
		err = fmt.Errorf("failed to upload avatar: %w", err)
		m.setError(err)
		return models.User{}, err
	}
	return m.UpdateProfile(ctx, Edit{AvatarURL: models.Ptr(publicURL)})
}

func (m *Model) setError(err error) {
	m.mu.Lock()
	m.errMsg = api.Message(err)
	m.mu.Unlock()
}

// Snapshot copies the current state.
func (m *Model) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := Snapshot{IsLoading: m.loading, ErrorMessage: m.errMsg}
	if m.user != nil {
		u := m.user.Clone()
		snap.User = &u
	}
	snap.Videos = make([]models.Video, len(m.videos))
	for i, v := range m.videos {
		snap.Videos[i] = v.Clone()
	}
	return snap
}
