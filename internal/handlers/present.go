package handlers

import (
	"context"
	"time"

	"github.com/rift/client/internal/models"
	"github.com/rift/client/internal/repositories"
)

// presenter turns stored records into the API shapes seen by viewerID.
type presenter struct {
	users  UserStore
	videos VideoStore
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// user renders acc. Email is only included for the account owner.
func (p presenter) user(ctx context.Context, acc repositories.Account, viewerID string) models.User {
	stats := p.users.Stats(ctx, acc.ID)
	out := models.User{
		ID:             acc.ID,
		Username:       acc.Username,
		DisplayName:    optional(acc.DisplayName),
		Bio:            optional(acc.Bio),
		AvatarURL:      optional(acc.AvatarURL),
		IsVerified:     models.Ptr(acc.Verified),
		FollowersCount: models.Ptr(stats.Followers),
		FollowingCount: models.Ptr(stats.Following),
		LikesCount:     models.Ptr(stats.Likes),
		CreatedAt:      models.Ptr(timestamp(acc.CreatedAt)),
	}
	switch {
	case viewerID == acc.ID:
		out.Email = optional(acc.Email)
	case viewerID != "":
		out.IsFollowing = models.Ptr(p.users.IsFollowing(ctx, viewerID, acc.ID))
	}
	return out
}

func (p presenter) searchUser(ctx context.Context, acc repositories.Account) models.SearchUser {
	stats := p.users.Stats(ctx, acc.ID)
	return models.SearchUser{
		ID:          acc.ID,
		Username:    acc.Username,
		DisplayName: optional(acc.DisplayName),
		AvatarURL:   optional(acc.AvatarURL),
		Bio:         optional(acc.Bio),
		IsVerified:  models.Ptr(acc.Verified),
		Stats: &models.SearchUserStats{
			VideosCount:    models.Ptr(stats.Videos),
			FollowersCount: models.Ptr(stats.Followers),
		},
	}
}

func (p presenter) video(ctx context.Context, v repositories.Video, viewerID string) models.Video {
	stats := p.videos.Stats(ctx, v.ID)
	out := models.Video{
		ID:           v.ID,
		UserID:       v.UserID,
		VideoURL:     v.VideoURL,
		ThumbnailURL: optional(v.ThumbnailURL),
		Caption:      optional(v.Caption),
		Duration:     models.Ptr(v.Duration),
		IsPublic:     models.Ptr(true),
		LikeCount:    stats.Likes,
		CommentCount: stats.Comments,
		ViewCount:    v.Views,
		ShareCount:   models.Ptr(0),
		CreatedAt:    timestamp(v.CreatedAt),
	}
	if viewerID != "" {
		out.IsLiked = models.Ptr(p.videos.IsLiked(ctx, viewerID, v.ID))
		out.IsBookmarked = models.Ptr(p.videos.IsBookmarked(ctx, viewerID, v.ID))
	}
	if owner, err := p.users.Find(ctx, v.UserID); err == nil {
		u := p.user(ctx, owner, viewerID)
		out.User = &u
	}
	return out
}

func (p presenter) videoList(ctx context.Context, list []repositories.Video, viewerID string) []models.Video {
	out := make([]models.Video, len(list))
	for i, v := range list {
		out[i] = p.video(ctx, v, viewerID)
	}
	return out
}

func (p presenter) comment(ctx context.Context, c repositories.Comment, viewerID string) models.Comment {
	out := models.Comment{
		ID:        c.ID,
		VideoID:   c.VideoID,
		UserID:    c.UserID,
		Text:      c.Text,
		CreatedAt: timestamp(c.CreatedAt),
	}
	if author, err := p.users.Find(ctx, c.UserID); err == nil {
		u := p.user(ctx, author, viewerID)
		out.User = &u
	}
	return out
}
