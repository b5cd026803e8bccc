package username

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rift/client/internal/api"
	"github.com/rift/client/internal/models"
)

// CurrentUserUpdater receives the user returned by a successful claim.
type CurrentUserUpdater interface {
	UpdateCurrentUser(models.User)
}

// Service claims and changes the signed-in user's handle.
type Service struct {
	api     api.Doer
	session CurrentUserUpdater
}

func NewService(client api.Doer, session CurrentUserUpdater) *Service {
	return &Service{api: client, session: session}
}

// Setup claims a username for an account that has none yet.
func (s *Service) Setup(ctx context.Context, name string) (models.User, error) {
	return s.submit(ctx, http.MethodPost, api.PathUsernameSet, name)
}

// Change renames the signed-in account.
func (s *Service) Change(ctx context.Context, name string) (models.User, error) {
	return s.submit(ctx, http.MethodPatch, api.PathUsernameEdit, name)
}

func (s *Service) submit(ctx context.Context, method, path, name string) (models.User, error) {
	name = strings.TrimSpace(name)
	if msg := formatMessage(name); msg != "" || name == "" {
		if msg == "" {
			msg = MsgTooShort
		}
		return models.User{}, fmt.Errorf("%w: %s", ErrInvalid, msg)
	}

	var env models.UserEnvelope
	err := s.api.Do(ctx, api.Request{
		Method: method,
		Path:   path,
		Body:   models.UsernameRequest{Username: name},
	}, &env)
	if err != nil {
		return models.User{}, err
	}
	if s.session != nil {
		s.session.UpdateCurrentUser(env.User)
	}
	return env.User, nil
}
