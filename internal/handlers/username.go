package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/rift/client/internal/middleware"
	"github.com/rift/client/internal/models"
	"github.com/rift/client/internal/repositories"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.]+$`)

// usernameProblem returns why name cannot be used, or "".
func usernameProblem(name string) string {
	n := utf8.RuneCountInString(name)
	switch {
	case n < 3 || n > 30:
		return "Username must be 3-30 characters"
	case !usernamePattern.MatchString(name):
		return "Username may only contain letters, numbers, underscores and periods"
	}
	return ""
}

// UsernameHandler checks and assigns handles.
type UsernameHandler struct {
	presenter
}

// Check handles GET /username/check/{name}.
func (h UsernameHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	if msg := usernameProblem(name); msg != "" {
		respondJSON(ctx, w, http.StatusOK, models.UsernameCheck{Available: false, Message: msg})
		return
	}
	if h.users.UsernameTaken(ctx, name) {
		respondJSON(ctx, w, http.StatusOK, models.UsernameCheck{Available: false, Message: "Username is already taken"})
		return
	}
	respondJSON(ctx, w, http.StatusOK, models.UsernameCheck{Available: true, Message: "Username is available"})
}

// Setup handles POST /username/setup.
func (h UsernameHandler) Setup(w http.ResponseWriter, r *http.Request) {
	h.rename(w, r, "Username set successfully")
}

// Change handles PATCH /username/change.
func (h UsernameHandler) Change(w http.ResponseWriter, r *http.Request) {
	h.rename(w, r, "Username changed successfully")
}

func (h UsernameHandler) rename(w http.ResponseWriter, r *http.Request, done string) {
	ctx := r.Context()
	viewer, _ := middleware.UserIDFromContext(ctx)

	var req models.UsernameRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	name := strings.TrimSpace(req.Username)
	if msg := usernameProblem(name); msg != "" {
		respondError(ctx, w, http.StatusBadRequest, msg)
		return
	}

	acc, err := h.users.Rename(ctx, viewer, name)
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusConflict, "Username is already taken")
			return
		}
		respondStoreError(ctx, w, err, "user")
		return
	}
	respondJSON(ctx, w, http.StatusOK, models.UserEnvelope{User: h.user(ctx, acc, viewer), Message: done})
}
