package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/rift/client/internal/logging"
	"github.com/rift/client/internal/models"
	"github.com/rift/client/internal/repositories"
)

const maxBodyBytes = 1 << 20

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

func respondError(ctx context.Context, w http.ResponseWriter, status int, msg string) {
	respondJSON(ctx, w, status, models.ErrorResponse{Error: msg})
}

// respondStoreError maps repository sentinels onto status codes.
func respondStoreError(ctx context.Context, w http.ResponseWriter, err error, what string) {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		respondError(ctx, w, http.StatusNotFound, what+" not found")
	case errors.Is(err, repositories.ErrConflict):
		respondError(ctx, w, http.StatusConflict, what+" already exists")
	case errors.Is(err, repositories.ErrSelfReference):
		respondError(ctx, w, http.StatusBadRequest, "cannot target your own account")
	default:
		logging.FromContext(ctx).Error("store failure", "what", what, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, dst)
}

// page slices items by the limit and cursor query parameters. The cursor is
// the offset of the next item.
func page[T any](r *http.Request, items []T, defaultLimit, maxLimit int) ([]T, *string, bool, error) {
	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, nil, false, errors.New("invalid limit")
		}
		limit = min(n, maxLimit)
	}

	offset := 0
	if raw := r.URL.Query().Get("cursor"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, nil, false, errors.New("invalid cursor")
		}
		offset = n
	}

	if offset >= len(items) {
		return []T{}, nil, false, nil
	}
	end := min(offset+limit, len(items))
	if end == len(items) {
		return items[offset:end], nil, false, nil
	}
	next := strconv.Itoa(end)
	return items[offset:end], &next, true, nil
}
