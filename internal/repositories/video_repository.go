package repositories

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// Videos stores videos, comments, likes and bookmarks.
type Videos struct {
	db *Memory
}

func (v *Videos) Create(_ context.Context, video Video) error {
	v.db.mu.Lock()
	defer v.db.mu.Unlock()
	if _, exists := v.db.videos[video.ID]; exists {
		return fmt.Errorf("video %s: %w", video.ID, ErrConflict)
	}
	if _, ok := v.db.accounts[video.UserID]; !ok {
		return fmt.Errorf("owner %s: %w", video.UserID, ErrNotFound)
	}
	v.db.videos[video.ID] = video
	v.db.videoOrder = append(v.db.videoOrder, video.ID)
	return nil
}

func (v *Videos) Find(_ context.Context, id string) (Video, error) {
	v.db.mu.RLock()
	defer v.db.mu.RUnlock()
	video, ok := v.db.videos[id]
	if !ok {
		return Video{}, ErrNotFound
	}
	return video, nil
}

// List returns videos newest first, keeping those accepted by keep. A nil
// keep returns everything.
func (v *Videos) List(_ context.Context, keep func(Video) bool) []Video {
	v.db.mu.RLock()
	defer v.db.mu.RUnlock()
	var out []Video
	for i := len(v.db.videoOrder) - 1; i >= 0; i-- {
		video := v.db.videos[v.db.videoOrder[i]]
		if keep == nil || keep(video) {
			out = append(out, video)
		}
	}
	return out
}

// ByUsers keeps videos owned by any of ids.
func ByUsers(ids ...string) func(Video) bool {
	return func(v Video) bool { return slices.Contains(ids, v.UserID) }
}

// CaptionContains keeps videos whose caption contains query, ignoring case.
func CaptionContains(query string) func(Video) bool {
	q := normalize(query)
	return func(v Video) bool { return strings.Contains(strings.ToLower(v.Caption), q) }
}

// AddView increments the view counter.
func (v *Videos) AddView(_ context.Context, id string) error {
	v.db.mu.Lock()
	defer v.db.mu.Unlock()
	video, ok := v.db.videos[id]
	if !ok {
		return ErrNotFound
	}
	video.Views++
	v.db.videos[id] = video
	return nil
}

// Like is idempotent.
func (v *Videos) Like(_ context.Context, userID, videoID string) error {
	v.db.mu.Lock()
	defer v.db.mu.Unlock()
	if _, ok := v.db.videos[videoID]; !ok {
		return ErrNotFound
	}
	likers := v.db.likes[videoID]
	if likers == nil {
		likers = make(set)
		v.db.likes[videoID] = likers
	}
	likers[userID] = struct{}{}
	return nil
}

func (v *Videos) Unlike(_ context.Context, userID, videoID string) error {
	v.db.mu.Lock()
	defer v.db.mu.Unlock()
	if _, ok := v.db.videos[videoID]; !ok {
		return ErrNotFound
	}
	delete(v.db.likes[videoID], userID)
	return nil
}

func (v *Videos) IsLiked(_ context.Context, userID, videoID string) bool {
	v.db.mu.RLock()
	defer v.db.mu.RUnlock()
	return v.db.likes[videoID].has(userID)
}

// Bookmark moves videoID to the front of the user's bookmarks.
func (v *Videos) Bookmark(_ context.Context, userID, videoID string) error {
	v.db.mu.Lock()
	defer v.db.mu.Unlock()
	if _, ok := v.db.videos[videoID]; !ok {
		return ErrNotFound
	}
	list := slices.DeleteFunc(v.db.bookmarks[userID], func(id string) bool { return id == videoID })
	v.db.bookmarks[userID] = append([]string{videoID}, list...)
	return nil
}

func (v *Videos) Unbookmark(_ context.Context, userID, videoID string) error {
	v.db.mu.Lock()
	defer v.db.mu.Unlock()
	if _, ok := v.db.videos[videoID]; !ok {
		return ErrNotFound
	}
	v.db.bookmarks[userID] = slices.DeleteFunc(v.db.bookmarks[userID], func(id string) bool { return id == videoID })
	return nil
}

func (v *Videos) IsBookmarked(_ context.Context, userID, videoID string) bool {
	v.db.mu.RLock()
	defer v.db.mu.RUnlock()
	return slices.Contains(v.db.bookmarks[userID], videoID)
}

// Bookmarks lists the user's bookmarked videos, most recent first.
func (v *Videos) Bookmarks(_ context.Context, userID string) []Video {
	v.db.mu.RLock()
	defer v.db.mu.RUnlock()
	out := make([]Video, 0, len(v.db.bookmarks[userID]))
	for _, id := range v.db.bookmarks[userID] {
		if video, ok := v.db.videos[id]; ok {
			out = append(out, video)
		}
	}
	return out
}

func (v *Videos) AddComment(_ context.Context, c Comment) error {
	v.db.mu.Lock()
	defer v.db.mu.Unlock()
	if _, ok := v.db.videos[c.VideoID]; !ok {
		return ErrNotFound
	}
	v.db.comments[c.VideoID] = append(v.db.comments[c.VideoID], c)
	return nil
}

// Comments lists comments of videoID, newest first.
func (v *Videos) Comments(_ context.Context, videoID string) ([]Comment, error) {
	v.db.mu.RLock()
	defer v.db.mu.RUnlock()
	if _, ok := v.db.videos[videoID]; !ok {
		return nil, ErrNotFound
	}
	src := v.db.comments[videoID]
	out := make([]Comment, len(src))
	for i, c := range src {
		out[len(src)-1-i] = c
	}
	return out, nil
}

func (v *Videos) Stats(_ context.Context, videoID string) VideoStats {
	v.db.mu.RLock()
	defer v.db.mu.RUnlock()
	return VideoStats{Likes: len(v.db.likes[videoID]), Comments: len(v.db.comments[videoID])}
}
