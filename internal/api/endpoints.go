package api

import (
	"net/url"
	"strconv"
)

// Fixed API paths.
const (
	PathRegister     = "/auth/register"
	PathLogin        = "/auth/login"
	PathRefresh      = "/auth/refresh"
	PathLogout       = "/auth/logout"
	PathMe           = "/users/me"
	PathVideos       = "/videos"
	PathFeedForYou   = "/feed/for-you"
	PathFeedFollow   = "/feed/following"
	PathLikes        = "/interactions/likes"
	PathBookmarks    = "/bookmarks"
	PathSearch       = "/search"
	PathSearchUsers  = "/search/users"
	PathPresign      = "/upload/presign"
	PathUsernameSet  = "/username/setup"
	PathUsernameEdit = "/username/change"
)

// UserPath addresses a user by id or username.
func UserPath(ref string) string {
	return "/users/" + url.PathEscape(ref)
}

func UserVideosPath(username string) string {
	return UserPath(username) + "/videos"
}

func FollowPath(username string) string {
	return UserPath(username) + "/follow"
}

func VideoCommentsPath(videoID string) string {
	return PathVideos + "/" + url.PathEscape(videoID) + "/comments"
}

func VideoViewPath(videoID string) string {
	return PathVideos + "/" + url.PathEscape(videoID) + "/view"
}

func LikePath(videoID string) string {
	return PathLikes + "/" + url.PathEscape(videoID)
}

func BookmarkPath(videoID string) string {
	return PathBookmarks + "/" + url.PathEscape(videoID)
}

func UsernameCheckPath(name string) string {
	return "/username/check/" + url.PathEscape(name)
}

// Paged appends limit and, when set, cursor to base.
func Paged(base string, limit int, cursor string) string {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	return base + "?" + q.Encode()
}

// SearchVideosPath builds /search?q=...&type=videos.
func SearchVideosPath(query string) string {
	q := url.Values{}
	q.Set("q", query)
	q.Set("type", "videos")
	return PathSearch + "?" + q.Encode()
}

// SearchUsersPath builds /search/users?q=...&limit=N.
func SearchUsersPath(query string, limit int) string {
	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))
	return PathSearchUsers + "?" + q.Encode()
}
