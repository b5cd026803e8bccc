// Package comments loads and posts comments for a single video.
package comments

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

// Snapshot is a copy of the comment thread.
type Snapshot struct {
	Comments     []models.Comment
	IsLoading    bool
	ErrorMessage string
}

// Model holds the comments of one video, newest posts first.
type Model struct {
	api     api.Doer
	videoID string

	mu       sync.Mutex
	comments []models.Comment
	loading  bool
	errMsg   string
}

func NewModel(client api.Doer, videoID string) *Model {
	return &Model{api: client, videoID: videoID}
}

// Load replaces the thread with the first page. Reading comments does not
// require a session.
func (m *Model) Load(ctx context.Context) error {
	m.mu.Lock()
	if m.loading {
		m.mu.Unlock()
		return nil
	}
	m.loading = true
	m.errMsg = ""
	m.mu.Unlock()

	var page models.CommentPage
	err := m.api.Do(ctx, api.Request{
		Method:    http.MethodGet,
		Path:      api.VideoCommentsPath(m.videoID),
		Anonymous: true,
	}, &page)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = false
	if err != nil {
		m.errMsg = api.Message(err)
		logging.FromContext(ctx).Warn("load comments", slog.String("video_id", m.videoID), slog.Any("error", err))
		return err
	}
	m.comments = page.Comments
	return nil
}

// Post publishes text and inserts the created comment at the top.
func (m *Model) Post(ctx context.Context, text string) (models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Comment{}, nil
	}

	var created models.Comment
	err := m.api.Do(ctx, api.Request{
		Method: http.MethodPost,
		Path:   api.VideoCommentsPath(m.videoID),
		Body:   models.CreateCommentRequest{Text: text},
	}, &created)
	if err != nil {
		m.mu.Lock()
		m.errMsg = api.Message(err)
		m.mu.Unlock()
		logging.FromContext(ctx).Warn("post comment", slog.String("video_id", m.videoID), slog.Any("error", err))
		return models.Comment{}, err
	}

	m.mu.Lock()
	m.comments = append([]models.Comment{created}, m.comments...)
	m.mu.Unlock()
	return created, nil
}

func (m *Model) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Comment, len(m.comments))
	for i, c := range m.comments {
		out[i] = c
		if c.User != nil {
			u := c.User.Clone()
			out[i].User = &u
		}
	}
	return Snapshot{Comments: out, IsLoading: m.loading, ErrorMessage: m.errMsg}
}
