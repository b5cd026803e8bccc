package api

import (
	"context"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/rift/client/internal/models"
)

type fakeCreds struct {
	mu          sync.Mutex
	access      string
	refresh     string
	invalidated int
	applied     int
}

func (f *fakeCreds) AccessToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.access
}

func (f *fakeCreds) RefreshToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refresh
}

func (f *fakeCreds) ApplyRefresh(_ context.Context, used, access, refresh string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if used == "" || f.refresh != used {
		return ErrSessionEnded
	}
	f.access = access
	if refresh != "" {
		f.refresh = refresh
	}
	f.applied++
	return nil
}

func (f *fakeCreds) Invalidate(_ context.Context, used string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refresh != used {
		return
	}
	f.access, f.refresh = "", ""
	f.invalidated++
}

func (f *fakeCreds) logout() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access, f.refresh = "", ""
}

// authServer accepts one valid bearer token and rotates it on refresh.
type authServer struct {
	mu           sync.Mutex
	valid        string
	refreshOK    bool
	rotate       bool
	refreshDelay time.Duration

	refreshCalls   atomic.Int32
	protectedCalls atomic.Int32
	lastRefreshReq models.RefreshRequest
	afterRefresh   http.HandlerFunc
}

func (s *authServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case PathRefresh:
			s.refreshCalls.Add(1)
			time.Sleep(s.refreshDelay)
			body, _ := io.ReadAll(r.Body)
			s.mu.Lock()
			_ = json.Unmarshal(body, &s.lastRefreshReq)
			if !s.refreshOK {
				s.mu.Unlock()
				respond(http.StatusUnauthorized, `{"error":"invalid refresh token"}`)(w, r)
				return
			}
			s.valid = "fresh-token"
			s.mu.Unlock()
			if s.rotate {
				respond(http.StatusOK, `{"accessToken":"fresh-token","refreshToken":"rotated"}`)(w, r)
				return
			}
			respond(http.StatusOK, `{"accessToken":"fresh-token"}`)(w, r)
		case "/public":
			respond(http.StatusUnauthorized, `{"error":"bad credentials"}`)(w, r)
		default:
			s.protectedCalls.Add(1)
			s.mu.Lock()
			ok := r.Header.Get("Authorization") == "Bearer "+s.valid
			after := s.afterRefresh
			s.mu.Unlock()
			if !ok {
				respond(http.StatusUnauthorized, `{"error":"token expired"}`)(w, r)
				return
			}
			if after != nil {
				after(w, r)
				return
			}
			respond(http.StatusOK, `{"id":"u1","username":"ana"}`)(w, r)
		}
	}
}

func newAuthClient(t *testing.T, s *authServer, creds *fakeCreds) *Client {
	t.Helper()
	srv := newTestServer(t, s.handler())
	return NewClient(NewTransport(srv.URL, 5*time.Second), creds, nil)
}

func TestClientConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	s := &authServer{valid: "not-yet", refreshOK: true, refreshDelay: 100 * time.Millisecond}
	creds := &fakeCreds{access: "stale-token", refresh: "refresh-1"}
	client := newAuthClient(t, s, creds)

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	users := make([]models.User, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = client.Do(context.Background(), Request{Method: http.MethodGet, Path: PathMe}, &users[i])
		}(i)
	}
	wg.Wait()

	for i := range n {
		require.NoError(t, errs[i])
		require.Equal(t, "ana", users[i].Username)
	}
	require.EqualValues(t, 1, s.refreshCalls.Load())
	require.Equal(t, "fresh-token", creds.AccessToken())
	require.Equal(t, "refresh-1", s.lastRefreshReq.RefreshToken)
	require.Equal(t, 1, creds.applied)
}

func TestClientConcurrentRefreshFailureFailsEveryone(t *testing.T) {
	s := &authServer{valid: "never", refreshOK: false, refreshDelay: 100 * time.Millisecond}
	creds := &fakeCreds{access: "stale-token", refresh: "revoked"}
	client := newAuthClient(t, s, creds)

	const n = 12
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = client.Do(context.Background(), Request{Method: http.MethodGet, Path: PathMe}, nil)
		}(i)
	}
	wg.Wait()

	for i := range n {
		require.ErrorIs(t, errs[i], ErrUnauthorized)
	}
	require.EqualValues(t, 1, s.refreshCalls.Load())
	require.Empty(t, creds.AccessToken())
	require.Empty(t, creds.RefreshToken())
	require.GreaterOrEqual(t, creds.invalidated, 1)
}

func TestClientAnonymousUnauthorizedNeverRefreshes(t *testing.T) {
	s := &authServer{valid: "x", refreshOK: true}
	creds := &fakeCreds{access: "stale-token", refresh: "refresh-1"}
	client := newAuthClient(t, s, creds)

	err := client.Do(context.Background(), Request{Method: http.MethodPost, Path: "/public", Anonymous: true}, nil)
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Zero(t, s.refreshCalls.Load())
	require.Equal(t, "stale-token", creds.AccessToken())
	require.Zero(t, creds.invalidated)
}

func TestClientAnonymousOmitsAuthorization(t *testing.T) {
	var auth string
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		respond(http.StatusOK, `{"available":true,"message":"ok"}`)(w, r)
	})
	client := NewClient(NewTransport(srv.URL, time.Second), &fakeCreds{access: "secret"}, nil)

	var check models.UsernameCheck
	require.NoError(t, client.Do(context.Background(), Request{Method: http.MethodGet, Path: UsernameCheckPath("ana"), Anonymous: true}, &check))
	require.True(t, check.Available)
	require.Empty(t, auth)
}

func TestClientWithoutTokenSkipsNetwork(t *testing.T) {
	s := &authServer{valid: "x", refreshOK: true}
	client := newAuthClient(t, s, &fakeCreds{})

	err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: PathMe}, nil)
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Zero(t, s.protectedCalls.Load())
	require.Zero(t, s.refreshCalls.Load())
}

func TestClientMissingRefreshTokenClearsSession(t *testing.T) {
	s := &authServer{valid: "other", refreshOK: true}
	creds := &fakeCreds{access: "stale-token"}
	client := newAuthClient(t, s, creds)

	err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: PathMe}, nil)
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Zero(t, s.refreshCalls.Load())
	require.Equal(t, 1, creds.invalidated)
}

func TestClientStoresRotatedRefreshToken(t *testing.T) {
	s := &authServer{valid: "not-yet", refreshOK: true, rotate: true}
	creds := &fakeCreds{access: "stale-token", refresh: "refresh-1"}
	client := newAuthClient(t, s, creds)

	require.NoError(t, client.Do(context.Background(), Request{Method: http.MethodGet, Path: PathMe}, nil))
	require.Equal(t, "fresh-token", creds.AccessToken())
	require.Equal(t, "rotated", creds.RefreshToken())
}

func TestClientRetriedFailureReturnedUnmodified(t *testing.T) {
	s := &authServer{valid: "not-yet", refreshOK: true}
	s.afterRefresh = respond(http.StatusForbidden, `{"error":"forbidden","message":"Not your video"}`)
	creds := &fakeCreds{access: "stale-token", refresh: "refresh-1"}
	client := newAuthClient(t, s, creds)

	err := client.Do(context.Background(), Request{Method: http.MethodDelete, Path: "/videos/v1"}, nil)
	require.ErrorIs(t, err, ErrServer)
	require.Equal(t, "Not your video", Message(err))
	require.EqualValues(t, 2, s.protectedCalls.Load())
	require.EqualValues(t, 1, s.refreshCalls.Load())
}

func TestClientSecondUnauthorizedAfterRetryIsReturned(t *testing.T) {
	s := &authServer{valid: "not-yet", refreshOK: true}
	s.afterRefresh = respond(http.StatusUnauthorized, `{"error":"still no"}`)
	creds := &fakeCreds{access: "stale-token", refresh: "refresh-1"}
	client := newAuthClient(t, s, creds)

	err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: PathMe}, nil)
	require.ErrorIs(t, err, ErrUnauthorized)
	require.EqualValues(t, 1, s.refreshCalls.Load())
	require.EqualValues(t, 2, s.protectedCalls.Load())
}

func TestClientSkipsRefreshWhenTokenAlreadyReplaced(t *testing.T) {
	s := &authServer{valid: "fresh-token", refreshOK: true}
	creds := &fakeCreds{access: "fresh-token", refresh: "refresh-1"}
	client := newAuthClient(t, s, creds)

	token, err := client.refresh(context.Background(), "older-token")
	require.NoError(t, err)
	require.Equal(t, "fresh-token", token)
	require.Zero(t, s.refreshCalls.Load())
}

func TestClientWaiterCancellationLeavesRefreshRunning(t *testing.T) {
	s := &authServer{valid: "not-yet", refreshOK: true, refreshDelay: 200 * time.Millisecond}
	creds := &fakeCreds{access: "stale-token", refresh: "refresh-1"}
	client := newAuthClient(t, s, creds)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := client.Do(ctx, Request{Method: http.MethodGet, Path: PathMe}, nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.Eventually(t, func() bool {
		return creds.AccessToken() == "fresh-token"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestClientRefreshAfterLogoutIsDiscarded(t *testing.T) {
	s := &authServer{valid: "not-yet", refreshOK: true, rotate: true, refreshDelay: 300 * time.Millisecond}
	creds := &fakeCreds{access: "stale-token", refresh: "refresh-1"}
	client := newAuthClient(t, s, creds)

	done := make(chan error, 1)
	go func() {
		done <- client.Do(context.Background(), Request{Method: http.MethodGet, Path: PathMe}, nil)
	}()

	require.Eventually(t, func() bool {
		return s.refreshCalls.Load() == 1
	}, 2*time.Second, 5*time.Millisecond)
	creds.logout()

	err := <-done
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Empty(t, creds.AccessToken())
	require.Empty(t, creds.RefreshToken())
	require.Zero(t, creds.applied)
	require.Zero(t, creds.invalidated)
	require.Equal(t, int32(1), s.protectedCalls.Load())
}
