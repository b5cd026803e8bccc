package models

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Username    string  `json:"username" validate:"required,min=3,max=30"`
	Email       string  `json:"email" validate:"required,email"`
	Password    string  `json:"password" validate:"required,min=8"`
	DisplayName *string `json:"displayName,omitempty"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
}

// RefreshResponse is returned by POST /auth/refresh. Servers that rotate
// refresh tokens also include the replacement.
type RefreshResponse struct {
	AccessToken  string  `json:"accessToken"`
	RefreshToken *string `json:"refreshToken,omitempty"`
}

// ErrorResponse is the structured error payload of 4xx responses.
type ErrorResponse struct {
	Error   string  `json:"error"`
	Message *string `json:"message,omitempty"`
}

// Empty is the decode target for endpoints that return no meaningful body.
type Empty struct{}

// VideoPage is a cursor-paginated list of videos.
type VideoPage struct {
	Videos     []Video `json:"videos"`
	NextCursor *string `json:"nextCursor,omitempty"`
	HasMore    bool    `json:"hasMore"`
}

// CommentPage is a cursor-paginated list of comments.
type CommentPage struct {
	Comments   []Comment `json:"comments"`
	NextCursor *string   `json:"nextCursor,omitempty"`
	HasMore    bool      `json:"hasMore"`
}

// CreateCommentRequest is the body of POST /videos/{id}/comments.
type CreateCommentRequest struct {
	Text string `json:"text"`
}

// VideoRef is the body of like and bookmark requests.
type VideoRef struct {
	VideoID string `json:"videoId"`
}

// CreateVideoRequest is the body of POST /videos.
type CreateVideoRequest struct {
	Caption  *string `json:"caption,omitempty"`
	VideoURL string  `json:"videoUrl"`
	Duration int     `json:"duration"`
}

// UpdateProfileRequest is the body of PATCH /users/me.
type UpdateProfileRequest struct {
	DisplayName *string `json:"displayName,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	AvatarURL   *string `json:"avatarUrl,omitempty"`
}

// SearchUser is the reduced user shape returned by /search/users.
type SearchUser struct {
	ID          string           `json:"id"`
	Username    string           `json:"username"`
	DisplayName *string          `json:"displayName,omitempty"`
	AvatarURL   *string          `json:"avatarUrl,omitempty"`
	Bio         *string          `json:"bio,omitempty"`
	IsVerified  *bool            `json:"isVerified,omitempty"`
	Stats       *SearchUserStats `json:"stats,omitempty"`
}

// SearchUserStats carries the optional counters of a search hit.
type SearchUserStats struct {
	VideosCount    *int `json:"videosCount,omitempty"`
	FollowersCount *int `json:"followersCount,omitempty"`
}

// UserSearchResult is returned by /search/users.
type UserSearchResult struct {
	Users []SearchUser `json:"users"`
}

// VideoSearchResult is returned by /search?type=videos.
type VideoSearchResult struct {
	Videos []Video `json:"videos"`
}

// UsernameRequest is the body of username setup and change.
type UsernameRequest struct {
	Username string `json:"username"`
}

// UsernameCheck is returned by /username/check/{name}.
type UsernameCheck struct {
	Available bool   `json:"available"`
	Message   string `json:"message"`
}

// UserEnvelope is returned by username setup and change.
type UserEnvelope struct {
	User    User   `json:"user"`
	Message string `json:"message"`
}

// PresignRequest is the body of POST /upload/presign.
type PresignRequest struct {
	Filename    string `json:"filename"`
	Type        string `json:"type"`
	ContentType string `json:"contentType"`
}

// PresignResponse pairs the pre-signed upload target with the URL the object
// will be served from once uploaded.
type PresignResponse struct {
	UploadURL string `json:"uploadUrl"`
	PublicURL string `json:"publicUrl"`
}
