// Package devserver runs an in-process implementation of the Rift REST API
// for local development and end-to-end tests.
package devserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rift/client/internal/auth"
	"github.com/rift/client/internal/config"
	"github.com/rift/client/internal/handlers"
	"github.com/rift/client/internal/httpserver"
	"github.com/rift/client/internal/logging"
	"github.com/rift/client/internal/metrics"
	"github.com/rift/client/internal/middleware"
	"github.com/rift/client/internal/repositories"
	"github.com/rift/client/internal/storage"
)

// Option customises a Server.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics *metrics.Collector
	now     func() time.Time
}

// WithLogger sets the base request logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics counts served and rate limited requests and exposes /metrics.
func WithMetrics(m *metrics.Collector) Option {
	return func(o *options) { o.metrics = m }
}

// WithClock overrides the time source used for tokens and timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Server bundles the API router with its in-memory state.
type Server struct {
	cfg     config.DevServerConfig
	handler http.Handler
	local   *storage.LocalStore
	http    *httpserver.Server
}

// New builds the server. Demo content is seeded when the config asks for it.
func New(ctx context.Context, cfg config.DevServerConfig, opts ...Option) (*Server, error) {
	o := options{logger: logging.FromContext(ctx), now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(&o)
	}

	mem := repositories.NewMemory()
	sessions := auth.NewManager(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL, auth.NewInMemorySessionStore()).
		WithNowFunc(o.now)

	s := &Server{cfg: cfg}

	var presigner storage.Presigner
	if cfg.ObjectStore.Bucket != "" {
		p, err := storage.NewS3Presigner(ctx, cfg.ObjectStore, cfg.PresignTTL)
		if err != nil {
			return nil, err
		}
		presigner = p
	} else {
		s.local = storage.NewLocalStore(s.publicURL(cfg.Port), cfg.JWTSecret, cfg.PresignTTL).WithNowFunc(o.now)
		presigner = s.local
	}

	if cfg.SeedDemoVideos {
		if err := seed(ctx, mem, o.now()); err != nil {
			return nil, fmt.Errorf("seed demo data: %w", err)
		}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(o.logger, o.metrics))
	handlers.RegisterRoutes(r, handlers.Dependencies{
		Users:       mem.Users(),
		Videos:      mem.Videos(),
		Sessions:    sessions,
		Presigner:   presigner,
		Local:       s.local,
		AuthLimiter: middleware.NewIPRateLimiter(cfg.RateLimit, cfg.RateWindow, cfg.RateLimit, 10*time.Minute),
		Metrics:     o.metrics,
		NowFunc:     o.now,
	})
	if o.metrics != nil {
		r.Handle("/metrics", o.metrics.Handler())
	}
	s.handler = r
	return s, nil
}

func (s *Server) publicURL(port int) string {
	if s.cfg.PublicURL != "" {
		return strings.TrimSuffix(s.cfg.PublicURL, "/")
	}
	return fmt.Sprintf("http://127.0.0.1:%d", port)
}

// Handler exposes the router, for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// SetPublicURL changes the origin advertised in local upload URLs.
func (s *Server) SetPublicURL(u string) {
	if s.local != nil {
		s.local.SetBaseURL(u)
	}
}

// Listen binds the configured port and returns the base URL clients should use.
func (s *Server) Listen() (string, error) {
	s.http = httpserver.New(s.cfg.Port, s.handler)
	addr, err := s.http.Listen()
	if err != nil {
		return "", err
	}
	port := s.cfg.Port
	if tcp, ok := addr.(*net.TCPAddr); ok {
		port = tcp.Port
	}
	base := s.publicURL(port)
	s.SetPublicURL(base)
	return base, nil
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if s.http == nil {
		if _, err := s.Listen(); err != nil {
			return err
		}
	}
	return s.http.Run(ctx)
}
