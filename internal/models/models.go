package models

// User represents an account on the Rift platform. The API omits several
// attributes depending on the endpoint, so everything beyond id and username is
// optional.
type User struct {
	ID             string  `json:"id"`
	Username       string  `json:"username"`
	Email          *string `json:"email,omitempty"`
	DisplayName    *string `json:"displayName,omitempty"`
	Bio            *string `json:"bio,omitempty"`
	AvatarURL      *string `json:"avatarUrl,omitempty"`
	IsVerified     *bool   `json:"isVerified,omitempty"`
	FollowersCount *int    `json:"followers_count,omitempty"`
	FollowingCount *int    `json:"following_count,omitempty"`
	LikesCount     *int    `json:"likes_count,omitempty"`
	IsFollowing    *bool   `json:"is_following,omitempty"`
	CreatedAt      *string `json:"createdAt,omitempty"`
}

// Following reports the isFollowing flag, treating an absent value as false.
func (u User) Following() bool {
	return u.IsFollowing != nil && *u.IsFollowing
}

// Clone returns a deep copy so callers can hand snapshots to other goroutines.
func (u User) Clone() User {
	c := u
	c.Email = clonePtr(u.Email)
	c.DisplayName = clonePtr(u.DisplayName)
	c.Bio = clonePtr(u.Bio)
	c.AvatarURL = clonePtr(u.AvatarURL)
	c.IsVerified = clonePtr(u.IsVerified)
	c.FollowersCount = clonePtr(u.FollowersCount)
	c.FollowingCount = clonePtr(u.FollowingCount)
	c.LikesCount = clonePtr(u.LikesCount)
	c.IsFollowing = clonePtr(u.IsFollowing)
	c.CreatedAt = clonePtr(u.CreatedAt)
	return c
}

// Video is a server-owned media record with engagement counters. IsLiked and
// IsBookmarked are derived for the calling user.
type Video struct {
	ID           string  `json:"id"`
	UserID       string  `json:"userId"`
	VideoURL     string  `json:"videoUrl"`
	ThumbnailURL *string `json:"thumbnailUrl,omitempty"`
	Caption      *string `json:"caption,omitempty"`
	Duration     *int    `json:"duration,omitempty"`
	IsPublic     *bool   `json:"isPublic,omitempty"`
	LikeCount    int     `json:"likeCount"`
	CommentCount int     `json:"commentCount"`
	ViewCount    int     `json:"viewCount"`
	ShareCount   *int    `json:"shareCount,omitempty"`
	IsLiked      *bool   `json:"is_liked,omitempty"`
	IsBookmarked *bool   `json:"is_bookmarked,omitempty"`
	CreatedAt    string  `json:"createdAt"`
	UpdatedAt    *string `json:"updatedAt,omitempty"`
	User         *User   `json:"user,omitempty"`
}

// Liked reports the isLiked flag, treating an absent value as false.
func (v Video) Liked() bool {
	return v.IsLiked != nil && *v.IsLiked
}

// Bookmarked reports the isBookmarked flag, treating an absent value as false.
func (v Video) Bookmarked() bool {
	return v.IsBookmarked != nil && *v.IsBookmarked
}

// Clone returns a deep copy of the video including its embedded author.
func (v Video) Clone() Video {
	c := v
	c.ThumbnailURL = clonePtr(v.ThumbnailURL)
	c.Caption = clonePtr(v.Caption)
	c.Duration = clonePtr(v.Duration)
	c.IsPublic = clonePtr(v.IsPublic)
	c.ShareCount = clonePtr(v.ShareCount)
	c.IsLiked = clonePtr(v.IsLiked)
	c.IsBookmarked = clonePtr(v.IsBookmarked)
	c.UpdatedAt = clonePtr(v.UpdatedAt)
	if v.User != nil {
		u := v.User.Clone()
		c.User = &u
	}
	return c
}

// Comment is a single comment on a video.
type Comment struct {
	ID        string `json:"id"`
	VideoID   string `json:"videoId"`
	UserID    string `json:"userId"`
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt"`
	User      *User  `json:"user,omitempty"`
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Ptr returns a pointer to v. Handy for the many optional model fields.
func Ptr[T any](v T) *T {
	return &v
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
