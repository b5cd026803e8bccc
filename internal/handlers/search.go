package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/rift/client/internal/middleware"
	"github.com/rift/client/internal/models"
	"github.com/rift/client/internal/repositories"
)

// SearchHandler serves video and user search.
type SearchHandler struct {
	presenter
}

// Videos handles GET /search?q=...&type=videos.
func (h SearchHandler) Videos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, _ := middleware.UserIDFromContext(ctx)
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if kind := r.URL.Query().Get("type"); kind != "" && kind != "videos" {
		respondError(ctx, w, http.StatusBadRequest, "unsupported search type")
		return
	}
	if q == "" {
		respondJSON(ctx, w, http.StatusOK, models.VideoSearchResult{Videos: []models.Video{}})
		return
	}
	list := h.videos.List(ctx, repositories.CaptionContains(q))
	respondJSON(ctx, w, http.StatusOK, models.VideoSearchResult{Videos: h.videoList(ctx, list, viewer)})
}

// Users handles GET /search/users?q=...&limit=N.
func (h SearchHandler) Users(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(ctx, w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, 50)
	}
	if q == "" {
		respondJSON(ctx, w, http.StatusOK, models.UserSearchResult{Users: []models.SearchUser{}})
		return
	}

	found, err := h.users.Search(ctx, q, limit)
	if err != nil {
		respondStoreError(ctx, w, err, "user")
		return
	}
	out := make([]models.SearchUser, len(found))
	for i, acc := range found {
		out[i] = h.searchUser(ctx, acc)
	}
	respondJSON(ctx, w, http.StatusOK, models.UserSearchResult{Users: out})
}
