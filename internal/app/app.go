package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/rift/client/internal/config"
	"github.com/rift/client/internal/logging"
)

type command func(ctx context.Context, e *env, args []string) error

var commands = map[string]command{
	"login":          login,
	"register":       register,
	"logout":         logout,
	"whoami":         whoami,
	"feed":           showFeed,
	"like":           like,
	"bookmark":       bookmark,
	"follow":         follow,
	"comments":       showComments,
	"comment":        postComment,
	"search":         search,
	"check-username": checkUsername,
	"username":       claimUsername,
	"upload":         uploadMedia,
}

// Run bootstraps the Rift client and executes one subcommand.
func Run(ctx context.Context, args []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, args, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("rift", flag.ContinueOnError)
	global.SetOutput(stderr)
	configPath := global.String("config", "", "path to rift.yaml")
	if err := global.Parse(args); err != nil {
		return err
	}
	rest := global.Args()
	if len(rest) == 0 {
		return fmt.Errorf("expected command: %s", strings.Join(commandNames(), ", "))
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	ctx = logging.WithLogger(ctx, logger)

	name, cmdArgs := rest[0], rest[1:]
	if name == "serve-dev" {
		return serveDev(ctx, cfg, cmdArgs, stdout)
	}
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q", name)
	}

	e, err := openEnv(ctx, cfg, stdout)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := e.Close(); cerr != nil {
			logger.Warn("close client", "error", cerr)
		}
	}()
	return cmd(ctx, e, cmdArgs)
}

func commandNames() []string {
	names := make([]string, 0, len(commands)+1)
	for name := range commands {
		names = append(names, name)
	}
	names = append(names, "serve-dev")
	sort.Strings(names)
	return names
}

// flags returns a flag set whose parse errors are returned, not fatal.
func flags(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

var errUsage = errors.New("usage")

func usage(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errUsage}, args...)...)
}
