package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rift/client/internal/api"
	"github.com/rift/client/internal/comments"
	"github.com/rift/client/internal/discover"
	"github.com/rift/client/internal/feed"
	"github.com/rift/client/internal/models"
	"github.com/rift/client/internal/profile"
	"github.com/rift/client/internal/session"
	"github.com/rift/client/internal/upload"
	"github.com/rift/client/internal/username"
)

func login(ctx context.Context, e *env, args []string) error {
	fs := flags("login", e.out)
	name := fs.String("username", "", "username or email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" || *password == "" {
		return usage("login --username NAME --password PASSWORD")
	}

	user, err := e.session.Login(ctx, *name, *password)
	if err != nil {
		return fmt.Errorf("login: %s", api.Message(err))
	}
	e.printf("Signed in as @%s\n", user.Username)
	return nil
}

func register(ctx context.Context, e *env, args []string) error {
	fs := flags("register", e.out)
	var in session.RegisterInput
	fs.StringVar(&in.Username, "username", "", "handle, 3-30 characters")
	fs.StringVar(&in.Email, "email", "", "email address")
	fs.StringVar(&in.Password, "password", "", "password, at least 8 characters")
	fs.StringVar(&in.DisplayName, "display-name", "", "optional display name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := e.session.Register(ctx, in)
	if err != nil {
		return fmt.Errorf("register: %s", api.Message(err))
	}
	e.printf("Welcome to Rift, @%s\n", user.Username)
	return nil
}

func logout(ctx context.Context, e *env, _ []string) error {
	e.session.Logout(ctx)
	e.printf("Signed out\n")
	return nil
}

func whoami(ctx context.Context, e *env, _ []string) error {
	if !e.session.IsAuthenticated() {
		return errors.New("not signed in")
	}
	user, err := e.session.FetchCurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("whoami: %s", api.Message(err))
	}
	e.session.UpdateCurrentUser(user)
	e.printUser(user)
	return nil
}

func showFeed(ctx context.Context, e *env, args []string) error {
	fs := flags("feed", e.out)
	following := fs.Bool("following", false, "show videos from followed accounts")
	pages := fs.Int("pages", 1, "number of pages to fetch")
	if err := fs.Parse(args); err != nil {
		return err
	}

	kind := feed.ForYou
	if *following {
		kind = feed.Following
	}
	m := feed.NewModel(e.client, kind, e.runner)
	if err := m.Load(ctx, true); err != nil {
		return fmt.Errorf("feed: %s", api.Message(err))
	}
	for i := 1; i < *pages && m.Snapshot().HasMore; i++ {
		if err := m.LoadMoreIfNeeded(ctx, len(m.Snapshot().Videos)-1); err != nil {
			return fmt.Errorf("feed: %s", api.Message(err))
		}
	}

	snap := m.Snapshot()
	if len(snap.Videos) == 0 {
		e.printf("No videos yet\n")
		return nil
	}
	for _, v := range snap.Videos {
		e.printVideo(v)
	}
	return nil
}

func like(ctx context.Context, e *env, args []string) error {
	return toggleVideo(ctx, e, "like", api.PathLikes, api.LikePath, args)
}

func bookmark(ctx context.Context, e *env, args []string) error {
	return toggleVideo(ctx, e, "bookmark", api.PathBookmarks, api.BookmarkPath, args)
}

func toggleVideo(ctx context.Context, e *env, name, collection string, item func(string) string, args []string) error {
	fs := flags(name, e.out)
	undo := fs.Bool("undo", false, "remove instead of add")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usage("%s [--undo] VIDEO_ID", name)
	}
	videoID := fs.Arg(0)

	req := api.Request{Method: http.MethodPost, Path: collection, Body: models.VideoRef{VideoID: videoID}}
	if *undo {
		req = api.Request{Method: http.MethodDelete, Path: item(videoID)}
	}
	if err := e.client.Do(ctx, req, &models.Empty{}); err != nil {
		return fmt.Errorf("%s: %s", name, api.Message(err))
	}
	e.printf("ok\n")
	return nil
}

func follow(ctx context.Context, e *env, args []string) error {
	fs := flags("follow", e.out)
	undo := fs.Bool("undo", false, "unfollow")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usage("follow [--undo] USERNAME")
	}

	m := profile.NewModel(e.client, e.session, e.upload, e.runner)
	if err := m.Load(ctx, fs.Arg(0), false); err != nil {
		return fmt.Errorf("follow: %s", api.Message(err))
	}
	user := m.Snapshot().User
	if user.Following() != *undo {
		e.printf("Nothing to do for @%s\n", user.Username)
		return nil
	}
	if err := m.ToggleFollow(ctx); err != nil {
		return fmt.Errorf("follow: %s", api.Message(err))
	}
	if *undo {
		e.printf("Unfollowed @%s\n", user.Username)
	} else {
		e.printf("Following @%s\n", user.Username)
	}
	return nil
}

func showComments(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return usage("comments VIDEO_ID")
	}
	m := comments.NewModel(e.client, args[0])
	if err := m.Load(ctx); err != nil {
		return fmt.Errorf("comments: %s", api.Message(err))
	}
	for _, c := range m.Snapshot().Comments {
		author := c.UserID
		if c.User != nil {
			author = c.User.Username
		}
		e.printf("@%s: %s\n", author, c.Text)
	}
	return nil
}

func postComment(ctx context.Context, e *env, args []string) error {
	if len(args) < 2 {
		return usage("comment VIDEO_ID TEXT")
	}
	m := comments.NewModel(e.client, args[0])
	c, err := m.Post(ctx, strings.Join(args[1:], " "))
	if err != nil {
		return fmt.Errorf("comment: %s", api.Message(err))
	}
	if c.ID == "" {
		return usage("comment VIDEO_ID TEXT")
	}
	e.printf("Posted comment %s\n", c.ID)
	return nil
}

func search(ctx context.Context, e *env, args []string) error {
	fs := flags("search", e.out)
	users := fs.Bool("users", false, "search accounts instead of videos")
	if err := fs.Parse(args); err != nil {
		return err
	}
	query := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(query) == "" {
		return usage("search [--users] QUERY")
	}

	m := discover.NewModel(e.client)
	if *users {
		if err := m.SearchUsers(ctx, query); err != nil {
			return fmt.Errorf("search: %s", api.Message(err))
		}
		for _, u := range m.Snapshot().Users {
			e.printf("@%s\t%s\n", u.Username, deref(u.DisplayName))
		}
		return nil
	}
	if err := m.SearchVideos(ctx, query); err != nil {
		return fmt.Errorf("search: %s", api.Message(err))
	}
	for _, v := range m.Snapshot().Videos {
		e.printVideo(v)
	}
	return nil
}

func checkUsername(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return usage("check-username NAME")
	}
	c := username.NewChecker(e.client, e.cfg.Username.Debounce)
	defer c.Stop()
	<-c.Check(ctx, args[0])

	st := c.Status()
	e.printf("%s: %s\n", args[0], st.Message)
	if !st.Available {
		return fmt.Errorf("username %q is not available", args[0])
	}
	return nil
}

func claimUsername(ctx context.Context, e *env, args []string) error {
	fs := flags("username", e.out)
	setup := fs.Bool("setup", false, "first-time setup instead of a change")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usage("username [--setup] NAME")
	}

	svc := username.NewService(e.client, e.session)
	claim := svc.Change
	if *setup {
		claim = svc.Setup
	}
	user, err := claim(ctx, fs.Arg(0))
	if err != nil {
		return fmt.Errorf("username: %s", api.Message(err))
	}
	e.printf("You are now @%s\n", user.Username)
	return nil
}

func uploadMedia(ctx context.Context, e *env, args []string) error {
	fs := flags("upload", e.out)
	caption := fs.String("caption", "", "video caption")
	duration := fs.Int("duration", 0, "video length in seconds")
	avatar := fs.Bool("avatar", false, "upload FILE as the profile picture")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usage("upload [--avatar] [--caption TEXT] [--duration SECONDS] FILE")
	}

	f, size, err := upload.OpenFile(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()

	if *avatar {
		m := profile.NewModel(e.client, e.session, e.upload, e.runner)
		user, err := m.ChangeAvatar(ctx, f, size)
		if err != nil {
			return fmt.Errorf("upload: %s", api.Message(err))
		}
		e.printf("Avatar updated: %s\n", deref(user.AvatarURL))
		return nil
	}

	v, err := e.upload.UploadVideo(ctx, upload.Video{Caption: *caption, Duration: *duration, Body: f, Size: size})
	if err != nil {
		return fmt.Errorf("upload: %s", api.Message(err))
	}
	e.printf("Published video %s\n", v.ID)
	return nil
}

func (e *env) printUser(u models.User) {
	e.printf("@%s", u.Username)
	if u.DisplayName != nil {
		e.printf(" (%s)", *u.DisplayName)
	}
	e.printf("\n")
	if u.Bio != nil {
		e.printf("%s\n", *u.Bio)
	}
	e.printf("followers %d  following %d  likes %d\n", derefInt(u.FollowersCount), derefInt(u.FollowingCount), derefInt(u.LikesCount))
}

func (e *env) printVideo(v models.Video) {
	author := v.UserID
	if v.User != nil {
		author = v.User.Username
	}
	e.printf("%s\t@%s\t%s\t%d likes, %d comments, %d views\n",
		v.ID, author, deref(v.Caption), v.LikeCount, v.CommentCount, v.ViewCount)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}
