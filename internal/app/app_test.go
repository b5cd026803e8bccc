package app

import (
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rift/client/internal/config"
	"github.com/rift/client/internal/devserver"
)

type cli struct {
	t      *testing.T
	config string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	srv, err := devserver.New(context.Background(), config.DevServerConfig{
		JWTSecret:      "cli-secret",
		AccessTTL:      time.Minute,
		RefreshTTL:     time.Hour,
		RateLimit:      1000,
		RateWindow:     time.Second,
		PresignTTL:     time.Hour,
		SeedDemoVideos: true,
	})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	srv.SetPublicURL(ts.URL)

	dir := t.TempDir()
	yaml := fmt.Sprintf(`
api:
  base_url: %q
  timeout: "5s"
secrets:
  backend: "badger"
  dir: %q
log:
  level: "error"
username:
  debounce: "1ms"
`, ts.URL, filepath.Join(dir, "secrets"))
	path := filepath.Join(dir, "rift.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	return &cli{t: t, config: path}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), append([]string{"--config", c.config}, args...), &stdout, &stderr)
	return stdout.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	require.NoError(c.t, err, "rift %s", strings.Join(args, " "))
	return out
}

func TestRunRequiresCommand(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), nil, &out, &out)
	require.Error(t, err)
	require.Contains(t, err.Error(), "serve-dev")

	c := newCLI(t)
	_, err = c.run("dance")
	require.EqualError(t, err, `unknown command "dance"`)
}

func TestSessionSurvivesAcrossInvocations(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("whoami")
	require.EqualError(t, err, "not signed in")

	_, err = c.run("login", "--username", devserver.DemoUsername, "--password", "wrong-password")
	require.Error(t, err)

	out := c.mustRun("login", "--username", devserver.DemoUsername, "--password", devserver.DemoPassword)
	require.Equal(t, "Signed in as @rift\n", out)

	out = c.mustRun("whoami")
	require.Contains(t, out, "@rift (Rift Demo)")

	require.Equal(t, "Signed out\n", c.mustRun("logout"))
	_, err = c.run("whoami")
	require.EqualError(t, err, "not signed in")
}

func TestBrowseAndEngage(t *testing.T) {
	c := newCLI(t)
	c.mustRun("register", "--username", "bob", "--email", "bob@example.com", "--password", "longenough")

	out := c.mustRun("feed")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	videoID := strings.Fields(lines[0])[0]

	require.Equal(t, "ok\n", c.mustRun("like", videoID))
	require.Equal(t, "ok\n", c.mustRun("bookmark", videoID))
	require.Contains(t, c.mustRun("feed"), "1 likes")
	c.mustRun("like", "--undo", videoID)

	require.Equal(t, "Following @rift\n", c.mustRun("follow", devserver.DemoUsername))
	require.Equal(t, "Nothing to do for @rift\n", c.mustRun("follow", devserver.DemoUsername))
	following := strings.TrimSpace(c.mustRun("feed", "--following"))
	require.Len(t, strings.Split(following, "\n"), 4)

	require.Contains(t, c.mustRun("comment", videoID, "nice", "shot"), "Posted comment")
	require.Equal(t, "@bob: nice shot\n", c.mustRun("comments", videoID))

	require.Contains(t, c.mustRun("search", "latte"), "Latte art")
	require.Contains(t, c.mustRun("search", "--users", "bo"), "@bob")
	_, err := c.run("search")
	require.ErrorIs(t, err, errUsage)
}

func TestUsernameCommands(t *testing.T) {
	c := newCLI(t)
	c.mustRun("register", "--username", "carol", "--email", "carol@example.com", "--password", "longenough")

	out, err := c.run("check-username", devserver.DemoUsername)
	require.Error(t, err)
	require.Equal(t, "rift: Username is already taken\n", out)

	require.Equal(t, "carol_2: Username is available\n", c.mustRun("check-username", "carol_2"))
	require.Equal(t, "You are now @carol_2\n", c.mustRun("username", "carol_2"))
	require.Contains(t, c.mustRun("whoami"), "@carol_2")
}

func TestUploadCommand(t *testing.T) {
	c := newCLI(t)
	c.mustRun("register", "--username", "dave", "--email", "dave@example.com", "--password", "longenough")

	clip := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(clip, []byte("not really an mp4"), 0o600))

	out := c.mustRun("upload", "--caption", "desk setup", "--duration", "9", clip)
	require.True(t, strings.HasPrefix(out, "Published video "), out)
	require.Contains(t, c.mustRun("search", "desk"), "desk setup")

	out = c.mustRun("upload", "--avatar", clip)
	require.Contains(t, out, "Avatar updated: ")
	require.Contains(t, out, "/uploads/images/")

	_, err := c.run("upload")
	require.ErrorIs(t, err, errUsage)
}
