package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func seeded(t *testing.T) (*Users, *Videos) {
	t.Helper()
	mem := NewMemory()
	users, videos := mem.Users(), mem.Videos()
	ctx := context.Background()
	require.NoError(t, users.Create(ctx, Account{ID: "u1", Username: "Alice", Email: "alice@example.com"}))
	require.NoError(t, users.Create(ctx, Account{ID: "u2", Username: "bob", Email: "bob@example.com", DisplayName: "Bobby Tables"}))
	require.NoError(t, videos.Create(ctx, Video{ID: "v1", UserID: "u1", Caption: "Sunset over the bay", CreatedAt: time.Now()}))
	require.NoError(t, videos.Create(ctx, Video{ID: "v2", UserID: "u2", Caption: "Cat piano", CreatedAt: time.Now()}))
	return users, videos
}

func TestUsersUniqueIgnoringCase(t *testing.T) {
	users, _ := seeded(t)
	ctx := context.Background()

	err := users.Create(ctx, Account{ID: "u3", Username: "alice"})
	require.ErrorIs(t, err, ErrConflict)
	err = users.Create(ctx, Account{ID: "u3", Username: "carol", Email: "BOB@example.com"})
	require.ErrorIs(t, err, ErrConflict)

	acc, err := users.FindByLogin(ctx, "ALICE@example.com")
	require.NoError(t, err)
	require.Equal(t, "u1", acc.ID)

	acc, err = users.Find(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "u1", acc.ID)

	_, err = users.Find(ctx, "nobody")
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestRename(t *testing.T) {
	users, _ := seeded(t)
	ctx := context.Background()

	_, err := users.Rename(ctx, "u1", "BOB")
	require.ErrorIs(t, err, ErrConflict)

	acc, err := users.Rename(ctx, "u1", "alice_2")
	require.NoError(t, err)
	require.Equal(t, "alice_2", acc.Username)
	require.False(t, users.UsernameTaken(ctx, "alice"))
	require.True(t, users.UsernameTaken(ctx, "Alice_2"))
}

func TestFollowAndStats(t *testing.T) {
	users, videos := seeded(t)
	ctx := context.Background()

	require.ErrorIs(t, users.Follow(ctx, "u1", "u1"), ErrSelfReference)
	require.NoError(t, users.Follow(ctx, "u1", "u2"))
	require.NoError(t, users.Follow(ctx, "u1", "u2"))
	require.NoError(t, videos.Like(ctx, "u1", "v2"))

	stats := users.Stats(ctx, "u2")
	require.Equal(t, UserStats{Followers: 1, Likes: 1, Videos: 1}, stats)
	require.True(t, users.IsFollowing(ctx, "u1", "u2"))
	require.Equal(t, []string{"u2"}, users.Followees(ctx, "u1"))

	require.NoError(t, users.Unfollow(ctx, "u1", "u2"))
	require.Zero(t, users.Stats(ctx, "u2").Followers)
}

func TestSearchUsers(t *testing.T) {
	users, _ := seeded(t)
	found, err := users.Search(context.Background(), "tables", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "bob", found[0].Username)
}

func TestListNewestFirstAndFilters(t *testing.T) {
	_, videos := seeded(t)
	ctx := context.Background()

	all := videos.List(ctx, nil)
	require.Equal(t, "v2", all[0].ID)
	require.Len(t, videos.List(ctx, ByUsers("u1")), 1)
	require.Equal(t, "v2", videos.List(ctx, CaptionContains("PIANO"))[0].ID)
}

func TestBookmarksMostRecentFirst(t *testing.T) {
	_, videos := seeded(t)
	ctx := context.Background()

	require.NoError(t, videos.Bookmark(ctx, "u1", "v1"))
	require.NoError(t, videos.Bookmark(ctx, "u1", "v2"))
	require.NoError(t, videos.Bookmark(ctx, "u1", "v1"))

	list := videos.Bookmarks(ctx, "u1")
	require.Equal(t, []string{"v1", "v2"}, []string{list[0].ID, list[1].ID})

	require.NoError(t, videos.Unbookmark(ctx, "u1", "v1"))
	require.False(t, videos.IsBookmarked(ctx, "u1", "v1"))
	require.ErrorIs(t, videos.Bookmark(ctx, "u1", "missing"), ErrNotFound)
}

func TestCommentsAndViews(t *testing.T) {
	_, videos := seeded(t)
	ctx := context.Background()

	require.NoError(t, videos.AddComment(ctx, Comment{ID: "c1", VideoID: "v1", Text: "first"}))
	require.NoError(t, videos.AddComment(ctx, Comment{ID: "c2", VideoID: "v1", Text: "second"}))
	comments, err := videos.Comments(ctx, "v1")
	require.NoError(t, err)
	require.Equal(t, "c2", comments[0].ID)
	require.Equal(t, 2, videos.Stats(ctx, "v1").Comments)

	require.NoError(t, videos.AddView(ctx, "v1"))
	v, err := videos.Find(ctx, "v1")
	require.NoError(t, err)
	require.Equal(t, 1, v.Views)
}
