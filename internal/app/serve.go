package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/rift/client/internal/config"
	"github.com/rift/client/internal/devserver"
	"github.com/rift/client/internal/logging"
	"github.com/rift/client/internal/metrics"
)

// serveDev runs the in-process Rift API until ctx is cancelled.
func serveDev(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := flags("serve-dev", out)
	port := fs.Int("port", cfg.DevServer.Port, "listen port, 0 picks a free one")
	seed := fs.Bool("seed", cfg.DevServer.SeedDemoVideos, "create the demo account and clips")
	if err := fs.Parse(args); err != nil {
		return err
	}
	dev := cfg.DevServer
	dev.Port = *port
	dev.SeedDemoVideos = *seed

	logger := logging.FromContext(ctx)
	srv, err := devserver.New(ctx, dev, devserver.WithLogger(logger), devserver.WithMetrics(metrics.New()))
	if err != nil {
		return err
	}
	base, err := srv.Listen()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Rift dev API listening on %s\n", base)
	if dev.SeedDemoVideos {
		fmt.Fprintf(out, "Demo account: %s / %s\n", devserver.DemoUsername, devserver.DemoPassword)
	}
	logger.Info("dev server started", slog.String("base_url", base))
	return srv.Run(ctx)
}
