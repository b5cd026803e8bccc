// Package feed holds the paginated video feed shown on the home screen.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"

	"github.com/rift/client/internal/api"
	"github.com/rift/client/internal/logging"
	"github.com/rift/client/internal/models"
	"github.com/rift/client/internal/optimistic"
)

// Kind selects the feed endpoint.
type Kind string

const (
	ForYou    Kind = "for-you"
	Following Kind = "following"
)

// PageSize is the number of videos requested per page.
const PageSize = 10

// prefetchWindow is how close to the end of the list a viewer may get before
// the next page is requested.
const prefetchWindow = 3

func (k Kind) path() (string, error) {
	switch k {
	case ForYou, "":
		return api.PathFeedForYou, nil
	case Following:
		return api.PathFeedFollow, nil
	default:
		return "", fmt.Errorf("feed: unknown kind %q", string(k))
	}
}

// Snapshot is a copy of the model state for presentation code.
type Snapshot struct {
	Videos       []models.Video
	IsLoading    bool
	HasMore      bool
	ErrorMessage string
}

// Model is safe for concurrent use. Network calls run on the caller's
// goroutine.
type Model struct {
	api    api.Doer
	kind   Kind
	runner *optimistic.Runner

	mu      sync.Mutex
	videos  []models.Video
	cursor  string
	hasMore bool
	loading bool
	errMsg  string
}

// NewModel builds an empty feed of the given kind.
func NewModel(client api.Doer, kind Kind, runner *optimistic.Runner) *Model {
	if runner == nil {
		runner = optimistic.NewRunner(nil)
	}
	return &Model{api: client, kind: kind, runner: runner, hasMore: true}
}

// Load fetches the next page. refresh discards every loaded page first. A
// call while another load is running, or after the last page, does nothing.
func (m *Model) Load(ctx context.Context, refresh bool) error {
	base, err := m.kind.path()
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.loading {
		m.mu.Unlock()
		return nil
	}
	if refresh {
		m.cursor = ""
		m.hasMore = true
		m.videos = nil
	}
	if !m.hasMore {
		m.mu.Unlock()
		return nil
	}
	m.loading = true
	m.errMsg = ""
	cursor := m.cursor
	m.mu.Unlock()

	var page models.VideoPage
	err = m.api.Do(ctx, api.Request{Method: http.MethodGet, Path: api.Paged(base, PageSize, cursor)}, &page)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = false
	if err != nil {
		m.errMsg = api.Message(err)
		logging.FromContext(ctx).Warn("load feed", slog.String("feed", string(m.kind)), slog.Any("error", err))
		return err
	}
	m.videos = append(m.videos, page.Videos...)
	m.cursor = ""
	if page.NextCursor != nil {
		m.cursor = *page.NextCursor
	}
	m.hasMore = page.HasMore
	return nil
}

// LoadMoreIfNeeded loads the next page once index is within the last few
// videos. Presentation code typically runs it in its own goroutine.
func (m *Model) LoadMoreIfNeeded(ctx context.Context, index int) error {
	m.mu.Lock()
	near := index >= len(m.videos)-prefetchWindow
	m.mu.Unlock()
	if !near {
		return nil
	}
	return m.Load(ctx, false)
}

// ToggleLike flips the like on videoID immediately and reverts it if the
// server refuses.
func (m *Model) ToggleLike(ctx context.Context, videoID string) error {
	return optimistic.Run(ctx, m.runner, "like:"+videoID, optimistic.Mutation[models.Video]{
		Kind:    "like",
		Capture: func() (models.Video, bool) { return m.find(videoID) },
		Apply: func(prior models.Video) {
			m.update(videoID, func(v *models.Video) {
				v.IsLiked = models.Ptr(!prior.Liked())
				if prior.Liked() {
					v.LikeCount = prior.LikeCount - 1
				} else {
					v.LikeCount = prior.LikeCount + 1
				}
			})
		},
		Commit: func(ctx context.Context, prior models.Video) error {
			if prior.Liked() {
				return m.api.Do(ctx, api.Request{Method: http.MethodDelete, Path: api.LikePath(videoID)}, &models.Empty{})
			}
			return m.api.Do(ctx, api.Request{
				Method: http.MethodPost,
				Path:   api.PathLikes,
				Body:   models.VideoRef{VideoID: videoID},
			}, &models.Empty{})
		},
		Rollback: func(prior models.Video) {
			m.update(videoID, func(v *models.Video) {
				v.IsLiked = prior.Clone().IsLiked
				v.LikeCount = prior.LikeCount
			})
		},
	})
}

// ToggleBookmark saves or unsaves videoID optimistically.
func (m *Model) ToggleBookmark(ctx context.Context, videoID string) error {
	return optimistic.Run(ctx, m.runner, "bookmark:"+videoID, optimistic.Mutation[models.Video]{
		Kind:    "bookmark",
		Capture: func() (models.Video, bool) { return m.find(videoID) },
		Apply: func(prior models.Video) {
			m.update(videoID, func(v *models.Video) {
				v.IsBookmarked = models.Ptr(!prior.Bookmarked())
			})
		},
		Commit: func(ctx context.Context, prior models.Video) error {
			if prior.Bookmarked() {
				return m.api.Do(ctx, api.Request{Method: http.MethodDelete, Path: api.BookmarkPath(videoID)}, &models.Empty{})
			}
			return m.api.Do(ctx, api.Request{
				Method: http.MethodPost,
				Path:   api.PathBookmarks,
				Body:   models.VideoRef{VideoID: videoID},
			}, &models.Empty{})
		},
		Rollback: func(prior models.Video) {
			m.update(videoID, func(v *models.Video) {
				v.IsBookmarked = prior.Clone().IsBookmarked
			})
		},
	})
}

// TrackView records a view. Failures are logged and otherwise ignored.
func (m *Model) TrackView(ctx context.Context, videoID string) {
	err := m.api.Do(ctx, api.Request{Method: http.MethodPost, Path: api.VideoViewPath(videoID)}, &models.Empty{})
	if err != nil {
		logging.FromContext(ctx).Warn("track view", slog.String("video_id", videoID), slog.Any("error", err))
		return
	}
	m.update(videoID, func(v *models.Video) { v.ViewCount++ })
}

// Snapshot copies the current state.
func (m *Model) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	videos := make([]models.Video, len(m.videos))
	for i, v := range m.videos {
		videos[i] = v.Clone()
	}
	return Snapshot{Videos: videos, IsLoading: m.loading, HasMore: m.hasMore, ErrorMessage: m.errMsg}
}

// Video returns a copy of one loaded video.
func (m *Model) Video(videoID string) (models.Video, bool) {
	return m.find(videoID)
}

func (m *Model) find(videoID string) (models.Video, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := slices.IndexFunc(m.videos, func(v models.Video) bool { return v.ID == videoID })
	if i < 0 {
		return models.Video{}, false
	}
	return m.videos[i].Clone(), true
}

func (m *Model) update(videoID string, fn func(*models.Video)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := slices.IndexFunc(m.videos, func(v models.Video) bool { return v.ID == videoID }); i >= 0 {
		fn(&m.videos[i])
	}
}
