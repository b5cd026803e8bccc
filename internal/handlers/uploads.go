package handlers

import (
	"errors"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rift/client/internal/logging"
	"github.com/rift/client/internal/middleware"
	"github.com/rift/client/internal/models"
	"github.com/rift/client/internal/storage"
)

const maxUploadBytes = 512 << 20

// UploadHandler issues upload targets and, without an object store, accepts
// the uploads itself.
type UploadHandler struct {
	Presigner storage.Presigner
	Local     *storage.LocalStore
}

var uploadKinds = map[string]string{
	"video": "video/",
	"image": "image/",
}

// Presign handles POST /upload/presign.
func (h UploadHandler) Presign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, _ := middleware.UserIDFromContext(ctx)

	var req models.PresignRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	prefix, ok := uploadKinds[req.Type]
	if !ok {
		respondError(ctx, w, http.StatusBadRequest, "type must be video or image")
		return
	}
	if !strings.HasPrefix(req.ContentType, prefix) {
		respondError(ctx, w, http.StatusBadRequest, "content type does not match upload type")
		return
	}
	filename := path.Base(strings.TrimSpace(req.Filename))
	if filename == "" || filename == "." || filename == "/" {
		respondError(ctx, w, http.StatusBadRequest, "filename is required")
		return
	}

	target, err := h.Presigner.Presign(ctx, req.Type+"s/"+viewer+"/"+filename, req.ContentType)
	if err != nil {
		logging.FromContext(ctx).Error("presign failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to prepare upload")
		return
	}
	respondJSON(ctx, w, http.StatusOK, models.PresignResponse{UploadURL: target.UploadURL, PublicURL: target.PublicURL})
}

// Put handles PUT /uploads/* for locally signed targets.
func (h UploadHandler) Put(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := chi.URLParam(r, "*")
	q := r.URL.Query()
	contentType := r.Header.Get("Content-Type")

	if err := h.Local.Verify(key, contentType, q.Get("expires"), q.Get("sig")); err != nil {
		status := http.StatusForbidden
		if errors.Is(err, storage.ErrExpired) {
			status = http.StatusGone
		}
		respondError(ctx, w, status, err.Error())
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes+1))
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, "failed to read upload")
		return
	}
	if len(data) > maxUploadBytes {
		respondError(ctx, w, http.StatusRequestEntityTooLarge, "upload too large")
		return
	}
	h.Local.Put(key, storage.Object{ContentType: contentType, Data: data})
	logging.FromContext(ctx).Debug("stored upload", "key", key, "bytes", len(data))
	w.WriteHeader(http.StatusOK)
}

// Get handles GET /uploads/*.
func (h UploadHandler) Get(w http.ResponseWriter, r *http.Request) {
	obj, ok := h.Local.Get(chi.URLParam(r, "*"))
	if !ok {
		respondError(r.Context(), w, http.StatusNotFound, "object not found")
		return
	}
	w.Header().Set("Content-Type", obj.ContentType)
	_, _ = w.Write(obj.Data)
}
