package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

const testSecret = "test-secret"

func TestManagerIssueAndRefresh(t *testing.T) {
	store := NewInMemorySessionStore()
	manager := NewManager(testSecret, time.Minute, time.Hour, store)

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("expected non-empty tokens: %+v", tokens)
	}

	refreshed, err := manager.Refresh(context.Background(), tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.RefreshToken == tokens.RefreshToken {
		t.Fatal("expected new refresh token")
	}
	if _, err := store.Find(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("old token should have been removed, got %v", err)
	}
	if _, err := store.Find(context.Background(), refreshed.RefreshToken); err != nil {
		t.Fatalf("new token should be stored: %v", err)
	}
	if got := store.Count("user-1"); got != 1 {
		t.Fatalf("expected one session, got %d", got)
	}
}

func TestManagerIssueValidation(t *testing.T) {
	manager := NewManager(testSecret, time.Minute, time.Hour, NewInMemorySessionStore())
	if _, err := manager.Issue(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty user id")
	}
}

func TestManagerRefreshFailures(t *testing.T) {
	now := time.Now().UTC()
	manager := NewManager(testSecret, time.Minute, time.Hour, NewInMemorySessionStore()).
		WithNowFunc(func() time.Time { return now })

	if _, err := manager.Refresh(context.Background(), ""); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected session not found got %v", err)
	}

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	now = now.Add(2 * time.Hour)

	if _, err := manager.Refresh(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrRefreshTokenExpired) {
		t.Fatalf("expected refresh expired got %v", err)
	}

	tokens, err = manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	manager.Revoke(context.Background(), tokens.RefreshToken)
	if _, err := manager.Refresh(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected session not found after revoke got %v", err)
	}
}

func TestManagerVerify(t *testing.T) {
	now := time.Now().UTC()
	manager := NewManager(testSecret, time.Minute, time.Hour, NewInMemorySessionStore()).
		WithNowFunc(func() time.Time { return now })

	tokens, err := manager.Issue(context.Background(), "user-7")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	userID, err := manager.Verify(tokens.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if userID != "user-7" {
		t.Fatalf("expected user-7 got %q", userID)
	}

	now = now.Add(2 * time.Minute)
	if _, err := manager.Verify(tokens.AccessToken); !errors.Is(err, ErrInvalidAccessToken) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
}

func TestManagerVerifyRejectsForeignSignature(t *testing.T) {
	other := NewManager("another-secret", time.Minute, time.Hour, NewInMemorySessionStore())
	tokens, err := other.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	manager := NewManager(testSecret, time.Minute, time.Hour, NewInMemorySessionStore())
	if _, err := manager.Verify(tokens.AccessToken); !errors.Is(err, ErrInvalidAccessToken) {
		t.Fatalf("expected foreign token to be rejected, got %v", err)
	}
	if _, err := manager.Verify("not-a-jwt"); !errors.Is(err, ErrInvalidAccessToken) {
		t.Fatalf("expected garbage to be rejected, got %v", err)
	}
}

func TestInMemoryStoreDropsExpiredOnSave(t *testing.T) {
	store := NewInMemorySessionStore()
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	_ = store.Save(ctx, Session{RefreshToken: "old", UserID: "u1", IssuedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Minute)})
	_ = store.Save(ctx, Session{RefreshToken: "new", UserID: "u2", IssuedAt: now, ExpiresAt: now.Add(time.Hour)})

	if _, err := store.Find(ctx, "old"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expired session should be purged, got %v", err)
	}
	if store.Count("u1") != 0 || store.Count("u2") != 1 {
		t.Fatalf("unexpected counts u1=%d u2=%d", store.Count("u1"), store.Count("u2"))
	}
}

func TestInMemoryStoreCapsSessionsPerUser(t *testing.T) {
	store := NewInMemorySessionStore()
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i <= MaxSessionsPerUser; i++ {
		_ = store.Save(ctx, Session{
			RefreshToken: fmt.Sprintf("t%d", i),
			UserID:       "u1",
			IssuedAt:     now,
			ExpiresAt:    now.Add(time.Hour),
		})
	}

	if got := store.Count("u1"); got != MaxSessionsPerUser {
		t.Fatalf("expected %d sessions, got %d", MaxSessionsPerUser, got)
	}
	if _, err := store.Find(ctx, "t0"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("oldest session should be evicted, got %v", err)
	}
	_ = store.Delete(ctx, "t1")
	if got := store.Count("u1"); got != MaxSessionsPerUser-1 {
		t.Fatalf("expected %d sessions after delete, got %d", MaxSessionsPerUser-1, got)
	}
}
