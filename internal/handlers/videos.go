package handlers

import (
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rift/client/internal/middleware"
	"github.com/rift/client/internal/models"
	"github.com/rift/client/internal/repositories"
)

const maxCommentLength = 500

// VideoHandler provides feeds, video records, comments and engagement.
type VideoHandler struct {
	presenter
	NowFunc func() time.Time
}

func (h VideoHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

// ForYou handles GET /feed/for-you: every public video, newest first.
func (h VideoHandler) ForYou(w http.ResponseWriter, r *http.Request) {
	h.respondPage(w, r, h.videos.List(r.Context(), nil))
}

// Following handles GET /feed/following: videos of accounts the caller follows.
func (h VideoHandler) Following(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, _ := middleware.UserIDFromContext(ctx)
	followees := h.users.Followees(ctx, viewer)
	var list []repositories.Video
	if len(followees) > 0 {
		list = h.videos.List(ctx, repositories.ByUsers(followees...))
	}
	h.respondPage(w, r, list)
}

func (h VideoHandler) respondPage(w http.ResponseWriter, r *http.Request, list []repositories.Video) {
	ctx := r.Context()
	viewer, _ := middleware.UserIDFromContext(ctx)
	items, next, more, err := page(r, list, 10, 50)
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(ctx, w, http.StatusOK, models.VideoPage{
		Videos:     h.videoList(ctx, items, viewer),
		NextCursor: next,
		HasMore:    more,
	})
}

// Create handles POST /videos once the media has been uploaded.
func (h VideoHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, _ := middleware.UserIDFromContext(ctx)

	var req models.CreateVideoRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.VideoURL = strings.TrimSpace(req.VideoURL)
	if req.VideoURL == "" {
		respondError(ctx, w, http.StatusBadRequest, "videoUrl is required")
		return
	}
	if req.Duration < 0 {
		respondError(ctx, w, http.StatusBadRequest, "duration must not be negative")
		return
	}

	video := repositories.Video{
		ID:        uuid.NewString(),
		UserID:    viewer,
		VideoURL:  req.VideoURL,
		Duration:  req.Duration,
		CreatedAt: h.now(),
	}
	if req.Caption != nil {
		video.Caption = strings.TrimSpace(*req.Caption)
	}
	if err := h.videos.Create(ctx, video); err != nil {
		respondStoreError(ctx, w, err, "video")
		return
	}
	respondJSON(ctx, w, http.StatusCreated, h.video(ctx, video, viewer))
}

// Comments handles GET /videos/{id}/comments.
func (h VideoHandler) Comments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, _ := middleware.UserIDFromContext(ctx)
	list, err := h.videos.Comments(ctx, chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(ctx, w, err, "video")
		return
	}
	items, next, more, err := page(r, list, 50, 100)
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}
	out := make([]models.Comment, len(items))
	for i, c := range items {
		out[i] = h.comment(ctx, c, viewer)
	}
	respondJSON(ctx, w, http.StatusOK, models.CommentPage{Comments: out, NextCursor: next, HasMore: more})
}

// AddComment handles POST /videos/{id}/comments.
func (h VideoHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, _ := middleware.UserIDFromContext(ctx)

	var req models.CreateCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		respondError(ctx, w, http.StatusBadRequest, "comment text is required")
		return
	}
	if utf8.RuneCountInString(text) > maxCommentLength {
		respondError(ctx, w, http.StatusBadRequest, "comment is too long")
		return
	}

	c := repositories.Comment{
		ID:        uuid.NewString(),
		VideoID:   chi.URLParam(r, "id"),
		UserID:    viewer,
		Text:      text,
		CreatedAt: h.now(),
	}
	if err := h.videos.AddComment(ctx, c); err != nil {
		respondStoreError(ctx, w, err, "video")
		return
	}
	respondJSON(ctx, w, http.StatusCreated, h.comment(ctx, c, viewer))
}

// View handles POST /videos/{id}/view.
func (h VideoHandler) View(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if err := h.videos.AddView(ctx, id); err != nil {
		respondStoreError(ctx, w, err, "video")
		return
	}
	v, err := h.videos.Find(ctx, id)
	if err != nil {
		respondStoreError(ctx, w, err, "video")
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]int{"viewCount": v.Views})
}

// Like handles POST /interactions/likes.
func (h VideoHandler) Like(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, _ := middleware.UserIDFromContext(ctx)
	var req models.VideoRef
	if err := decodeJSON(r, &req); err != nil || req.VideoID == "" {
		respondError(ctx, w, http.StatusBadRequest, "videoId is required")
		return
	}
	if err := h.videos.Like(ctx, viewer, req.VideoID); err != nil {
		respondStoreError(ctx, w, err, "video")
		return
	}
	respondJSON(ctx, w, http.StatusCreated, map[string]bool{"liked": true})
}

// Unlike handles DELETE /interactions/likes/{id}.
func (h VideoHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, _ := middleware.UserIDFromContext(ctx)
	if err := h.videos.Unlike(ctx, viewer, chi.URLParam(r, "id")); err != nil {
		respondStoreError(ctx, w, err, "video")
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]bool{"liked": false})
}

// Bookmarks handles GET /bookmarks.
func (h VideoHandler) Bookmarks(w http.ResponseWriter, r *http.Request) {
	viewer, _ := middleware.UserIDFromContext(r.Context())
	h.respondPage(w, r, h.videos.Bookmarks(r.Context(), viewer))
}

// Bookmark handles POST /bookmarks.
func (h VideoHandler) Bookmark(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, _ := middleware.UserIDFromContext(ctx)
	var req models.VideoRef
	if err := decodeJSON(r, &req); err != nil || req.VideoID == "" {
		respondError(ctx, w, http.StatusBadRequest, "videoId is required")
		return
	}
	if err := h.videos.Bookmark(ctx, viewer, req.VideoID); err != nil {
		respondStoreError(ctx, w, err, "video")
		return
	}
	respondJSON(ctx, w, http.StatusCreated, map[string]bool{"bookmarked": true})
}

// Unbookmark handles DELETE /bookmarks/{id}.
func (h VideoHandler) Unbookmark(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, _ := middleware.UserIDFromContext(ctx)
	if err := h.videos.Unbookmark(ctx, viewer, chi.URLParam(r, "id")); err != nil {
		respondStoreError(ctx, w, err, "video")
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]bool{"bookmarked": false})
}
