package handlers

import (
	"net/http"
	"time"
)

// Health is the body of GET /healthz.
type Health struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Videos  int    `json:"videos"`
	Uploads string `json:"uploads"`
}

// HealthHandler reports liveness along with a few facts about the dev
// dataset, so scripts can wait for seeding to finish.
type HealthHandler struct {
	videos  VideoStore
	started time.Time
	uploads string
}

// Handle implements GET /healthz.
func (h HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	respondJSON(ctx, w, http.StatusOK, Health{
		Status:  "ok",
		Uptime:  time.Since(h.started).Round(time.Second).String(),
		Videos:  len(h.videos.List(ctx, nil)),
		Uploads: h.uploads,
	})
}

func uploadMode(deps Dependencies) string {
	switch {
	case deps.Local != nil:
		return "local"
	case deps.Presigner != nil:
		return "s3"
	default:
		return "disabled"
	}
}
