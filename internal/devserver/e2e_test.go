package devserver_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rift/client/internal/api"
	"github.com/rift/client/internal/comments"
	"github.com/rift/client/internal/config"
	"github.com/rift/client/internal/devserver"
	"github.com/rift/client/internal/discover"
	"github.com/rift/client/internal/feed"
	"github.com/rift/client/internal/metrics"
	"github.com/rift/client/internal/optimistic"
	"github.com/rift/client/internal/profile"
	"github.com/rift/client/internal/secrets"
	"github.com/rift/client/internal/session"
	"github.com/rift/client/internal/upload"
	"github.com/rift/client/internal/username"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type stack struct {
	clock   *clock
	store   *secrets.MemoryStore
	client  *api.Client
	manager *session.Manager
	metrics *metrics.Collector
}

func newStack(t *testing.T) *stack {
	t.Helper()
	ctx := context.Background()
	clk := &clock{now: time.Now().UTC()}

	srv, err := devserver.New(ctx, config.DevServerConfig{
		JWTSecret:      "e2e-secret",
		AccessTTL:      time.Minute,
		RefreshTTL:     time.Hour,
		RateLimit:      1000,
		RateWindow:     time.Second,
		PresignTTL:     time.Hour,
		SeedDemoVideos: true,
	}, devserver.WithClock(clk.Now))
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	srv.SetPublicURL(ts.URL)

	m := metrics.New()
	store := secrets.NewMemoryStore()
	state := session.NewState(store)
	client := api.NewClient(api.NewTransport(ts.URL, 10*time.Second, api.WithMetrics(m)), state, m)
	return &stack{clock: clk, store: store, client: client, manager: session.NewManager(client, state), metrics: m}
}

func TestEndToEndSession(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	user, err := s.manager.Register(ctx, session.RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "supersafe",
	})
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username)
	require.True(t, s.manager.IsAuthenticated())
	require.Equal(t, 3, s.store.Len())

	firstAccess := s.manager.State().AccessToken()
	firstRefresh := s.manager.State().RefreshToken()

	s.clock.Advance(2 * time.Minute)

	me, err := s.manager.FetchCurrentUser(ctx)
	require.NoError(t, err)
	require.Equal(t, user.ID, me.ID)
	require.NotEqual(t, firstAccess, s.manager.State().AccessToken())
	require.NotEqual(t, firstRefresh, s.manager.State().RefreshToken())

	s.manager.Logout(ctx)
	require.False(t, s.manager.IsAuthenticated())
	require.Zero(t, s.store.Len())

	_, err = s.manager.Login(ctx, "alice", "supersafe")
	require.NoError(t, err)
}

func TestEndToEndConcurrentExpiryRefreshesOnce(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	_, err := s.manager.Login(ctx, devserver.DemoUsername, devserver.DemoPassword)
	require.NoError(t, err)

	s.clock.Advance(2 * time.Minute)

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.manager.FetchCurrentUser(ctx)
		}()
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}
	require.True(t, s.manager.IsAuthenticated())
}

func TestEndToEndFeedAndEngagement(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	_, err := s.manager.Register(ctx, session.RegisterInput{Username: "alice", Email: "alice@example.com", Password: "supersafe"})
	require.NoError(t, err)

	runner := optimistic.NewRunner(s.metrics)
	forYou := feed.NewModel(s.client, feed.ForYou, runner)
	require.NoError(t, forYou.Load(ctx, true))
	snap := forYou.Snapshot()
	require.Len(t, snap.Videos, 4)
	require.False(t, snap.HasMore)

	first := snap.Videos[0]
	require.NoError(t, forYou.ToggleLike(ctx, first.ID))
	require.NoError(t, forYou.ToggleBookmark(ctx, first.ID))
	forYou.TrackView(ctx, first.ID)

	require.NoError(t, forYou.Load(ctx, true))
	reloaded, ok := forYou.Video(first.ID)
	require.True(t, ok)
	require.Equal(t, 1, reloaded.LikeCount)
	require.True(t, reloaded.Liked())
	require.True(t, reloaded.Bookmarked())
	require.Equal(t, 1, reloaded.ViewCount)

	bookmarks := profile.NewBookmarks(s.client)
	require.NoError(t, bookmarks.Load(ctx))
	require.Len(t, bookmarks.Snapshot().Videos, 1)

	demo := profile.NewModel(s.client, s.manager, nil, runner)
	require.NoError(t, demo.Load(ctx, devserver.DemoUsername, false))
	require.NoError(t, demo.ToggleFollow(ctx))
	require.True(t, demo.Snapshot().User.Following())
	require.Equal(t, 1, *demo.Snapshot().User.FollowersCount)

	following := feed.NewModel(s.client, feed.Following, runner)
	require.NoError(t, following.Load(ctx, true))
	require.Len(t, following.Snapshot().Videos, 4)

	thread := comments.NewModel(s.client, first.ID)
	_, err = thread.Post(ctx, "great clip")
	require.NoError(t, err)
	fresh := comments.NewModel(s.client, first.ID)
	require.NoError(t, fresh.Load(ctx))
	require.Equal(t, "great clip", fresh.Snapshot().Comments[0].Text)
}

func TestEndToEndUploadAndProfile(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	_, err := s.manager.Register(ctx, session.RegisterInput{Username: "alice", Email: "alice@example.com", Password: "supersafe"})
	require.NoError(t, err)

	uploader := upload.New(s.client)
	created, err := uploader.UploadVideo(ctx, upload.Video{Caption: "my first rift", Duration: 3, Body: strings.NewReader("mp4!"), Size: 4})
	require.NoError(t, err)
	require.Equal(t, "my first rift", *created.Caption)

	own := profile.NewModel(s.client, s.manager, uploader, optimistic.NewRunner(nil))
	require.NoError(t, own.Load(ctx, "", true))
	require.Len(t, own.Snapshot().Videos, 1)

	updated, err := own.ChangeAvatar(ctx, strings.NewReader("jpeg"), 4)
	require.NoError(t, err)
	require.NotNil(t, updated.AvatarURL)
	current, ok := s.manager.CurrentUser()
	require.True(t, ok)
	require.Equal(t, *updated.AvatarURL, *current.AvatarURL)

	d := discover.NewModel(s.client)
	require.NoError(t, d.SearchVideos(ctx, "first rift"))
	require.Len(t, d.Snapshot().Videos, 1)
	require.NoError(t, d.SearchUsers(ctx, "ali"))
	require.Len(t, d.Snapshot().Users, 1)
	require.NoError(t, d.LoadGrid(ctx))
	require.Len(t, d.Snapshot().Grid, 5)
}

func TestEndToEndUsername(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	_, err := s.manager.Register(ctx, session.RegisterInput{Username: "alice", Email: "alice@example.com", Password: "supersafe"})
	require.NoError(t, err)

	checker := username.NewChecker(s.client, 10*time.Millisecond)
	<-checker.Check(ctx, devserver.DemoUsername)
	require.False(t, checker.Status().Available)
	<-checker.Check(ctx, "alice_renamed")
	require.True(t, checker.Status().Available)

	svc := username.NewService(s.client, s.manager)
	_, err = svc.Change(ctx, "alice_renamed")
	require.NoError(t, err)
	current, _ := s.manager.CurrentUser()
	require.Equal(t, "alice_renamed", current.Username)

	_, err = svc.Setup(ctx, devserver.DemoUsername)
	require.Error(t, err)
	require.Equal(t, "Username is already taken", api.Message(err))
}
