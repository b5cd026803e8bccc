package handlers

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/rift/client/internal/middleware"
	"github.com/rift/client/internal/models"
	"github.com/rift/client/internal/repositories"
)

const (
	maxDisplayName = 50
	maxBio         = 160
)

// UserHandler serves profiles and follow edges.
type UserHandler struct {
	presenter
}

// Me handles GET /users/me.
func (h UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, _ := middleware.UserIDFromContext(ctx)
	acc, err := h.users.Find(ctx, viewer)
	if err != nil {
		respondStoreError(ctx, w, err, "user")
		return
	}
	respondJSON(ctx, w, http.StatusOK, h.user(ctx, acc, viewer))
}

// UpdateMe handles PATCH /users/me. Absent fields are left unchanged.
func (h UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, _ := middleware.UserIDFromContext(ctx)

	var req models.UpdateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DisplayName != nil && utf8.RuneCountInString(*req.DisplayName) > maxDisplayName {
		respondError(ctx, w, http.StatusBadRequest, "display name is too long")
		return
	}
	if req.Bio != nil && utf8.RuneCountInString(*req.Bio) > maxBio {
		respondError(ctx, w, http.StatusBadRequest, "bio is too long")
		return
	}

	acc, err := h.users.Find(ctx, viewer)
	if err != nil {
		respondStoreError(ctx, w, err, "user")
		return
	}
	if req.DisplayName != nil {
		acc.DisplayName = strings.TrimSpace(*req.DisplayName)
	}
	if req.Bio != nil {
		acc.Bio = strings.TrimSpace(*req.Bio)
	}
	if req.AvatarURL != nil {
		acc.AvatarURL = strings.TrimSpace(*req.AvatarURL)
	}
	if err := h.users.Update(ctx, acc); err != nil {
		respondStoreError(ctx, w, err, "user")
		return
	}
	respondJSON(ctx, w, http.StatusOK, h.user(ctx, acc, viewer))
}

// Get handles GET /users/{ref}, where ref is an id or a username.
func (h UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, _ := middleware.UserIDFromContext(ctx)
	acc, err := h.users.Find(ctx, chi.URLParam(r, "ref"))
	if err != nil {
		respondStoreError(ctx, w, err, "user")
		return
	}
	respondJSON(ctx, w, http.StatusOK, h.user(ctx, acc, viewer))
}

// Videos handles GET /users/{ref}/videos.
func (h UserHandler) Videos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, _ := middleware.UserIDFromContext(ctx)
	acc, err := h.users.Find(ctx, chi.URLParam(r, "ref"))
	if err != nil {
		respondStoreError(ctx, w, err, "user")
		return
	}

	items, next, more, err := page(r, h.videos.List(ctx, repositories.ByUsers(acc.ID)), 20, 50)
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

// Follow handles POST /users/{ref}/follow.
func (h UserHandler) Follow(w http.ResponseWriter, r *http.Request) {
	h.setFollow(w, r, true)
}

// Unfollow handles DELETE /users/{ref}/follow.
func (h UserHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	h.setFollow(w, r, false)
}

func (h UserHandler) setFollow(w http.ResponseWriter, r *http.Request, follow bool) {
	ctx := r.Context()
	viewer, _ := middleware.UserIDFromContext(ctx)
	target, err := h.users.Find(ctx, chi.URLParam(r, "ref"))
	if err != nil {
		respondStoreError(ctx, w, err, "user")
		return
	}

	if follow {
		err = h.users.Follow(ctx, viewer, target.ID)
	} else {
		err = h.users.Unfollow(ctx, viewer, target.ID)
	}
	if err != nil {
		respondStoreError(ctx, w, err, "user")
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]bool{"following": follow})
}
