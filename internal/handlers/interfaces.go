package handlers

import (
	"context"

	"github.com/rift/client/internal/models"
	"github.com/rift/client/internal/repositories"
)

// UserStore captures the account operations required by the handlers.
type UserStore interface {
	Create(ctx context.Context, acc repositories.Account) error
	Find(ctx context.Context, ref string) (repositories.Account, error)
	FindByLogin(ctx context.Context, login string) (repositories.Account, error)
	Update(ctx context.Context, acc repositories.Account) error
	UsernameTaken(ctx context.Context, name string) bool
	Rename(ctx context.Context, id, username string) (repositories.Account, error)
	Search(ctx context.Context, query string, limit int) ([]repositories.Account, error)
	Follow(ctx context.Context, followerID, followeeID string) error
	Unfollow(ctx context.Context, followerID, followeeID string) error
	IsFollowing(ctx context.Context, followerID, followeeID string) bool
	Followees(ctx context.Context, userID string) []string
	Stats(ctx context.Context, userID string) repositories.UserStats
}

// VideoStore captures video, comment and engagement persistence.
type VideoStore interface {
	Create(ctx context.Context, video repositories.Video) error
	Find(ctx context.Context, id string) (repositories.Video, error)
	List(ctx context.Context, keep func(repositories.Video) bool) []repositories.Video
	AddView(ctx context.Context, id string) error
	Like(ctx context.Context, userID, videoID string) error
	Unlike(ctx context.Context, userID, videoID string) error
	IsLiked(ctx context.Context, userID, videoID string) bool
	Bookmark(ctx context.Context, userID, videoID string) error
	Unbookmark(ctx context.Context, userID, videoID string) error
	IsBookmarked(ctx context.Context, userID, videoID string) bool
	Bookmarks(ctx context.Context, userID string) []repositories.Video
	AddComment(ctx context.Context, c repositories.Comment) error
	Comments(ctx context.Context, videoID string) ([]repositories.Comment, error)
	Stats(ctx context.Context, videoID string) repositories.VideoStats
}

// SessionManager issues, rotates and verifies authentication tokens.
type SessionManager interface {
	Issue(ctx context.Context, userID string) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Revoke(ctx context.Context, refreshToken string)
	Verify(token string) (string, error)
}
