package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/rift/client/internal/api"
	"github.com/rift/client/internal/config"
	"github.com/rift/client/internal/httpserver"
	"github.com/rift/client/internal/logging"
	"github.com/rift/client/internal/metrics"
	"github.com/rift/client/internal/optimistic"
	"github.com/rift/client/internal/secrets"
	"github.com/rift/client/internal/session"
	"github.com/rift/client/internal/upload"
)

const (
	breakerThreshold = 5
	breakerCooldown  = 30 * time.Second
)

// env is the client stack shared by every subcommand.
type env struct {
	cfg     *config.Config
	out     io.Writer
	metrics *metrics.Collector
	store   secrets.Store
	client  *api.Client
	session *session.Manager
	runner  *optimistic.Runner
	upload  *upload.Uploader

	metricsSrv *http.Server
}

func openEnv(ctx context.Context, cfg *config.Config, out io.Writer) (*env, error) {
	m := metrics.New()

	store, err := secrets.Open(ctx, cfg.Secrets)
	if err != nil {
		return nil, err
	}
	state := session.NewState(store)
	if err := state.Load(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("restore session: %w", err)
	}

	opts := []api.TransportOption{api.WithMetrics(m)}
	if cfg.API.BreakerEnabled {
		opts = append(opts, api.WithCircuitBreaker(breakerThreshold, breakerCooldown))
	}
	client := api.NewClient(api.NewTransport(cfg.API.BaseURL, cfg.API.Timeout, opts...), state, m)

	e := &env{
		cfg:     cfg,
		out:     out,
		metrics: m,
		store:   store,
		client:  client,
		session: session.NewManager(client, state),
		runner:  optimistic.NewRunner(m),
		upload:  upload.New(client),
	}
	if cfg.Metrics.Addr != "" {
		if err := e.serveMetrics(ctx, cfg.Metrics.Addr); err != nil {
			_ = store.Close()
			return nil, err
		}
	}
	return e, nil
}

func (e *env) serveMetrics(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen metrics on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", e.metrics.Handler())
	e.metricsSrv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	logger := logging.FromContext(ctx)
	logger.Info("serving client metrics", slog.String("addr", ln.Addr().String()))
	go func() {
		if err := e.metricsSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", slog.Any("error", err))
		}
	}()
	return nil
}

func (e *env) Close() error {
	var errs []error
	if e.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), httpserver.ShutdownTimeout)
		defer cancel()
		errs = append(errs, e.metricsSrv.Shutdown(ctx))
	}
	errs = append(errs, e.store.Close())
	return errors.Join(errs...)
}

func (e *env) printf(format string, args ...any) {
	fmt.Fprintf(e.out, format, args...)
}
