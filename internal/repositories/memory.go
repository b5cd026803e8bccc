// Package repositories holds the dev server's in-memory data set: accounts,
// videos and the relations between them.
package repositories

import (
	"sync"
	"time"
)

// Account is a stored user including credentials.
type Account struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	DisplayName  string
	Bio          string
	AvatarURL    string
	Verified     bool
	CreatedAt    time.Time
}

// Video is a stored media record. Engagement counters are derived.
type Video struct {
	ID           string
	UserID       string
	VideoURL     string
	ThumbnailURL string
	Caption      string
	Duration     int
	Views        int
	CreatedAt    time.Time
}

// Comment is a stored comment.
type Comment struct {
	ID        string
	VideoID   string
	UserID    string
	Text      string
	CreatedAt time.Time
}

// UserStats are the derived counters of an account.
type UserStats struct {
	Followers int
	Following int
	Likes     int
	Videos    int
}

// VideoStats are the derived counters of a video.
type VideoStats struct {
	Likes    int
	Comments int
}

type set map[string]struct{}

func (s set) has(k string) bool {
	_, ok := s[k]
	return ok
}

// Memory is the shared state behind Users and Videos.
type Memory struct {
	mu sync.RWMutex

	accounts map[string]Account
	byName   map[string]string
	byEmail  map[string]string
	follows  map[string]set

	videos     map[string]Video
	videoOrder []string
	comments   map[string][]Comment
	likes      map[string]set
	bookmarks  map[string][]string
}

func NewMemory() *Memory {
	return &Memory{
		accounts:  make(map[string]Account),
		byName:    make(map[string]string),
		byEmail:   make(map[string]string),
		follows:   make(map[string]set),
		videos:    make(map[string]Video),
		comments:  make(map[string][]Comment),
		likes:     make(map[string]set),
		bookmarks: make(map[string][]string),
	}
}

// Users returns the account repository.
func (m *Memory) Users() *Users {
	return &Users{db: m}
}

// Videos returns the video repository.
func (m *Memory) Videos() *Videos {
	return &Videos{db: m}
}
