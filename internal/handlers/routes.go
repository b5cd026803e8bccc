package handlers

import (
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rift/client/internal/metrics"
	"github.com/rift/client/internal/middleware"
	"github.com/rift/client/internal/storage"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users     UserStore
	Videos    VideoStore
	Sessions  SessionManager
	Presigner storage.Presigner
	// Local is set when uploads are accepted by this server.
	Local       *storage.LocalStore
	AuthLimiter middleware.RateLimiter
	Metrics     *metrics.Collector
	NowFunc     func() time.Time
}

// RegisterRoutes wires the Rift REST API into r.
func RegisterRoutes(r chi.Router, deps Dependencies) {
	p := presenter{users: deps.Users, videos: deps.Videos}
	health := HealthHandler{videos: deps.Videos, started: time.Now(), uploads: uploadMode(deps)}
	auth := AuthHandler{presenter: p, Sessions: deps.Sessions, NowFunc: deps.NowFunc}
	users := UserHandler{presenter: p}
	videos := VideoHandler{presenter: p, NowFunc: deps.NowFunc}
	search := SearchHandler{presenter: p}
	usernames := UsernameHandler{presenter: p}
	uploads := UploadHandler{Presigner: deps.Presigner, Local: deps.Local}

	required := middleware.Authenticate(deps.Sessions, true)
	optional := middleware.Authenticate(deps.Sessions, false)
	limited := middleware.RateLimit(deps.AuthLimiter, "auth", deps.Metrics)

	r.Get("/healthz", health.Handle)

	r.Route("/auth", func(r chi.Router) {
		r.With(limited).Post("/register", auth.Register)
		r.With(limited).Post("/login", auth.Login)
		r.Post("/refresh", auth.Refresh)
		r.Post("/logout", auth.Logout)
	})

	r.Group(func(r chi.Router) {
		r.Use(optional)
		r.Get("/users/{ref}", users.Get)
		r.Get("/users/{ref}/videos", users.Videos)
		r.Get("/feed/for-you", videos.ForYou)
		r.Get("/videos/{id}/comments", videos.Comments)
		r.Post("/videos/{id}/view", videos.View)
		r.Get("/search", search.Videos)
		r.Get("/search/users", search.Users)
		r.Get("/username/check/{name}", usernames.Check)
	})

	r.Group(func(r chi.Router) {
		r.Use(required)
		r.Get("/users/me", users.Me)
		r.Patch("/users/me", users.UpdateMe)
		r.Post("/users/{ref}/follow", users.Follow)
		r.Delete("/users/{ref}/follow", users.Unfollow)
		r.Get("/feed/following", videos.Following)
		r.Post("/videos", videos.Create)
		r.Post("/videos/{id}/comments", videos.AddComment)
		r.Post("/interactions/likes", videos.Like)
		r.Delete("/interactions/likes/{id}", videos.Unlike)
		r.Get("/bookmarks", videos.Bookmarks)
		r.Post("/bookmarks", videos.Bookmark)
		r.Delete("/bookmarks/{id}", videos.Unbookmark)
		r.Post("/username/setup", usernames.Setup)
		r.Patch("/username/change", usernames.Change)
		r.Post("/upload/presign", uploads.Presign)
	})

	if deps.Local != nil {
		r.Put(storage.UploadsPrefix+"*", uploads.Put)
		r.Get(storage.UploadsPrefix+"*", uploads.Get)
	}
}
