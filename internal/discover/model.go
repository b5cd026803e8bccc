// Package discover backs the discover grid and search screens.
package discover

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/rift/client/internal/api"
	"github.com/rift/client/internal/logging"
	"github.com/rift/client/internal/models"
)

const (
	// GridSize is the number of videos shown on the discover grid.
	GridSize = 30
	// UserSearchLimit caps user search results.
	UserSearchLimit = 50
)

// Snapshot is a copy of the discover state.
type Snapshot struct {
	Grid         []models.Video
	Videos       []models.Video
	Users        []models.SearchUser
	IsLoading    bool
	ErrorMessage string
}

// Model is safe for concurrent use.
type Model struct {
	api api.Doer

	mu      sync.Mutex
	grid    []models.Video
	videos  []models.Video
	users   []models.SearchUser
	loading int
	errMsg  string
}

func NewModel(client api.Doer) *Model {
	return &Model{api: client}
}

// LoadGrid fills the discover grid from the for-you feed.
func (m *Model) LoadGrid(ctx context.Context) error {
	var page models.VideoPage
	err := m.run(ctx, "discover grid", api.Request{
		Method: http.MethodGet,
		Path:   api.Paged(api.PathFeedForYou, GridSize, ""),
	}, &page)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.grid = page.Videos
	m.mu.Unlock()
	return nil
}

// SearchVideos runs a video search. An empty query clears the results.
func (m *Model) SearchVideos(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		m.mu.Lock()
		m.videos = nil
		m.mu.Unlock()
		return nil
	}

	var res models.VideoSearchResult
	if err := m.run(ctx, "search videos", api.Request{Method: http.MethodGet, Path: api.SearchVideosPath(query)}, &res); err != nil {
		return err
	}
	m.mu.Lock()
	m.videos = res.Videos
	m.mu.Unlock()
	return nil
}

// SearchUsers looks up accounts. It works without a session.
func (m *Model) SearchUsers(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		m.ClearUsers()
		return nil
	}

	var res models.UserSearchResult
	err := m.run(ctx, "search users", api.Request{
		Method:    http.MethodGet,
		Path:      api.SearchUsersPath(query, UserSearchLimit),
		Anonymous: true,
	}, &res)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.users = res.Users
	m.mu.Unlock()
	return nil
}

// ClearUsers drops user results and any error.
func (m *Model) ClearUsers() {
	m.mu.Lock()
	m.users = nil
	m.errMsg = ""
	m.mu.Unlock()
}

func (m *Model) run(ctx context.Context, what string, req api.Request, out any) error {
	m.mu.Lock()
	m.loading++
	m.errMsg = ""
	m.mu.Unlock()

	err := m.api.Do(ctx, req, out)

	m.mu.Lock()
	m.loading--
	if err != nil {
		m.errMsg = api.Message(err)
	}
	m.mu.Unlock()
	if err != nil {
		logging.FromContext(ctx).Warn(what, slog.Any("error", err))
	}
	return err
}

func (m *Model) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := Snapshot{IsLoading: m.loading > 0, ErrorMessage: m.errMsg}
	for _, v := range m.grid {
		snap.Grid = append(snap.Grid, v.Clone())
	}
	for _, v := range m.videos {
		snap.Videos = append(snap.Videos, v.Clone())
	}
	snap.Users = append(snap.Users, m.users...)
	return snap
}
