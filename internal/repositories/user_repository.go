package repositories

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Users stores accounts and follow edges.
type Users struct {
	db *Memory
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Create inserts a new account. Usernames and emails are unique ignoring case.
func (u *Users) Create(_ context.Context, acc Account) error {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()

	if _, exists := u.db.accounts[acc.ID]; exists {
		return fmt.Errorf("account %s: %w", acc.ID, ErrConflict)
	}
	if _, taken := u.db.byName[normalize(acc.Username)]; taken {
		return fmt.Errorf("username %s: %w", acc.Username, ErrConflict)
	}
	if acc.Email != "" {
		if _, taken := u.db.byEmail[normalize(acc.Email)]; taken {
			return fmt.Errorf("email %s: %w", acc.Email, ErrConflict)
		}
		u.db.byEmail[normalize(acc.Email)] = acc.ID
	}
	u.db.accounts[acc.ID] = acc
	u.db.byName[normalize(acc.Username)] = acc.ID
	return nil
}

// Find resolves ref as an account id first, then as a username.
func (u *Users) Find(_ context.Context, ref string) (Account, error) {
	u.db.mu.RLock()
	defer u.db.mu.RUnlock()
	return u.findLocked(ref)
}

func (u *Users) findLocked(ref string) (Account, error) {
	if acc, ok := u.db.accounts[ref]; ok {
		return acc, nil
	}
	if id, ok := u.db.byName[normalize(ref)]; ok {
		return u.db.accounts[id], nil
	}
	return Account{}, ErrNotFound
}

// FindByLogin resolves login as a username or an email address.
func (u *Users) FindByLogin(_ context.Context, login string) (Account, error) {
	u.db.mu.RLock()
	defer u.db.mu.RUnlock()
	key := normalize(login)
	if id, ok := u.db.byName[key]; ok {
		return u.db.accounts[id], nil
	}
	if id, ok := u.db.byEmail[key]; ok {
		return u.db.accounts[id], nil
	}
	return Account{}, ErrNotFound
}

// Update replaces the profile fields of an existing account. Username and
// email changes go through Rename.
func (u *Users) Update(_ context.Context, acc Account) error {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()
	current, ok := u.db.accounts[acc.ID]
	if !ok {
		return ErrNotFound
	}
	acc.Username = current.Username
	acc.Email = current.Email
	u.db.accounts[acc.ID] = acc
	return nil
}

// UsernameTaken reports whether name belongs to any account.
func (u *Users) UsernameTaken(_ context.Context, name string) bool {
	u.db.mu.RLock()
	defer u.db.mu.RUnlock()
	_, taken := u.db.byName[normalize(name)]
	return taken
}

// Rename changes the username of id. Renaming to the current name (in any
// case) is allowed.
func (u *Users) Rename(_ context.Context, id, username string) (Account, error) {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()
	acc, ok := u.db.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	key := normalize(username)
	if owner, taken := u.db.byName[key]; taken && owner != id {
		return Account{}, fmt.Errorf("username %s: %w", username, ErrConflict)
	}
	delete(u.db.byName, normalize(acc.Username))
	acc.Username = username
	u.db.byName[key] = id
	u.db.accounts[id] = acc
	return acc, nil
}

// Search matches query against usernames and display names.
func (u *Users) Search(_ context.Context, query string, limit int) ([]Account, error) {
	q := normalize(query)
	u.db.mu.RLock()
	defer u.db.mu.RUnlock()

	var out []Account
	for _, acc := range u.db.accounts {
		if strings.Contains(normalize(acc.Username), q) || strings.Contains(normalize(acc.DisplayName), q) {
			out = append(out, acc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Follow records that followerID follows followeeID. Following twice is a no-op.
func (u *Users) Follow(_ context.Context, followerID, followeeID string) error {
	if followerID == followeeID {
		return ErrSelfReference
	}
	u.db.mu.Lock()
	defer u.db.mu.Unlock()
	if _, ok := u.db.accounts[followeeID]; !ok {
		return ErrNotFound
	}
	edges := u.db.follows[followerID]
	if edges == nil {
		edges = make(set)
		u.db.follows[followerID] = edges
	}
	edges[followeeID] = struct{}{}
	return nil
}

// Unfollow removes the edge if present.
func (u *Users) Unfollow(_ context.Context, followerID, followeeID string) error {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()
	if _, ok := u.db.accounts[followeeID]; !ok {
		return ErrNotFound
	}
	delete(u.db.follows[followerID], followeeID)
	return nil
}

func (u *Users) IsFollowing(_ context.Context, followerID, followeeID string) bool {
	u.db.mu.RLock()
	defer u.db.mu.RUnlock()
	return u.db.follows[followerID].has(followeeID)
}

// Followees lists the ids followed by userID.
func (u *Users) Followees(_ context.Context, userID string) []string {
	u.db.mu.RLock()
	defer u.db.mu.RUnlock()
	out := make([]string, 0, len(u.db.follows[userID]))
	for id := range u.db.follows[userID] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Stats derives the counters of userID.
func (u *Users) Stats(_ context.Context, userID string) UserStats {
	u.db.mu.RLock()
	defer u.db.mu.RUnlock()

	stats := UserStats{Following: len(u.db.follows[userID])}
	for _, edges := range u.db.follows {
		if edges.has(userID) {
			stats.Followers++
		}
	}
	for _, v := range u.db.videos {
		if v.UserID == userID {
			stats.Videos++
			stats.Likes += len(u.db.likes[v.ID])
		}
	}
	return stats
}
