package profile

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"sync"

	"github.com/rift/client/internal/api"
	"github.com/rift/client/internal/logging"
	"github.com/rift/client/internal/models"
)

// BookmarkPageSize is the number of bookmarks requested per page.
const BookmarkPageSize = 20

// BookmarkSnapshot is a copy of the bookmark list.
type BookmarkSnapshot struct {
	Videos       []models.Video
	IsLoading    bool
	HasMore      bool
	ErrorMessage string
}

// Bookmarks is the paginated list of saved videos.
type Bookmarks struct {
	api api.Doer

	mu      sync.Mutex
	videos  []models.Video
	cursor  string
	hasMore bool
	loading bool
	errMsg  string
}

func NewBookmarks(client api.Doer) *Bookmarks {
	return &Bookmarks{api: client, hasMore: true}
}

// Load appends the next page. It does nothing while loading or once the last
// page has been seen.
func (b *Bookmarks) Load(ctx context.Context) error {
	b.mu.Lock()
	if b.loading || !b.hasMore {
		b.mu.Unlock()
		return nil
	}
	b.loading = true
	b.errMsg = ""
	cursor := b.cursor
	b.mu.Unlock()

	var page models.VideoPage
	err := b.api.Do(ctx, api.Request{Method: http.MethodGet, Path: api.Paged(api.PathBookmarks, BookmarkPageSize, cursor)}, &page)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.loading = false
	if err != nil {
		b.errMsg = api.Message(err)
		logging.FromContext(ctx).Warn("load bookmarks", slog.Any("error", err))
		return err
	}
	b.videos = append(b.videos, page.Videos...)
	b.cursor = ""
	if page.NextCursor != nil {
		b.cursor = *page.NextCursor
	}
	b.hasMore = page.HasMore
	return nil
}

// Toggle removes videoID when it is listed and bookmarks it otherwise. The
// list only changes after the server confirms a removal. It reports whether
// the video is bookmarked afterwards.
func (b *Bookmarks) Toggle(ctx context.Context, videoID string) (bool, error) {
	b.mu.Lock()
	listed := slices.ContainsFunc(b.videos, func(v models.Video) bool { return v.ID == videoID })
	b.mu.Unlock()

	if listed {
		if err := b.api.Do(ctx, api.Request{Method: http.MethodDelete, Path: api.BookmarkPath(videoID)}, &models.Empty{}); err != nil {
			logging.FromContext(ctx).Warn("remove bookmark", slog.String("video_id", videoID), slog.Any("error", err))
			return true, err
		}
		b.mu.Lock()
		b.videos = slices.DeleteFunc(b.videos, func(v models.Video) bool { return v.ID == videoID })
		b.mu.Unlock()
		return false, nil
	}

	err := b.api.Do(ctx, api.Request{
		Method: http.MethodPost,
		Path:   api.PathBookmarks,
		Body:   models.VideoRef{VideoID: videoID},
	}, &models.Empty{})
	if err != nil {
		logging.FromContext(ctx).Warn("add bookmark", slog.String("video_id", videoID), slog.Any("error", err))
		return false, err
	}
	return true, nil
}

// Snapshot copies the list.
func (b *Bookmarks) Snapshot() BookmarkSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	videos := make([]models.Video, len(b.videos))
	for i, v := range b.videos {
		videos[i] = v.Clone()
	}
	return BookmarkSnapshot{Videos: videos, IsLoading: b.loading, HasMore: b.hasMore, ErrorMessage: b.errMsg}
}
