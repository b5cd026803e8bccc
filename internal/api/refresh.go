package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/rift/client/internal/logging"
	"github.com/rift/client/internal/metrics"
	"github.com/rift/client/internal/models"
)

// RefreshTimeout bounds one refresh exchange. It is independent of the
// context of the caller that triggered it.
const RefreshTimeout = 30 * time.Second

const refreshKey = "refresh"

// refresh returns an access token newer than stale. At most one refresh
// request is in flight at any time; every caller that arrives while it runs
// receives the same outcome.
func (c *Client) refresh(ctx context.Context, stale string) (string, error) {
	if current := c.creds.AccessToken(); current != "" && current != stale {
		c.metrics.ObserveRefresh(metrics.RefreshShared)
		return current, nil
	}

	ch := c.refreshes.DoChan(refreshKey, func() (any, error) {
		return c.runRefresh(context.WithoutCancel(ctx), stale)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			c.metrics.ObserveRefresh(metrics.RefreshShared)
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Client) runRefresh(ctx context.Context, stale string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, RefreshTimeout)
	defer cancel()

	ctx, span := logging.StartSpan(ctx, "auth.refresh")
	logger := logging.FromContext(ctx)

	// A refresh that finished just before this one started already did the work.
	if current := c.creds.AccessToken(); current != "" && current != stale {
		span.End(nil)
		return current, nil
	}

	refreshToken := c.creds.RefreshToken()
	if refreshToken == "" {
		c.creds.Invalidate(ctx, refreshToken)
		c.metrics.ObserveRefresh(metrics.RefreshFailure)
		err := newError(KindUnauthorized, 0, "", nil)
		span.End(err)
		return "", err
	}

	var resp models.RefreshResponse
	err := c.transport.Do(ctx, Request{
		Method:    http.MethodPost,
		Path:      PathRefresh,
		Body:      models.RefreshRequest{RefreshToken: refreshToken},
		Anonymous: true,
	}, &resp)
	if err == nil && resp.AccessToken == "" {
		err = newError(KindNoData, 0, "", nil)
	}
	if err != nil {
		logger.Warn("token refresh failed, ending session", slog.Any("error", err))
		c.creds.Invalidate(ctx, refreshToken)
		c.metrics.ObserveRefresh(metrics.RefreshFailure)
		span.End(err)
		return "", newError(KindUnauthorized, 0, "", nil)
	}

	rotated := ""
	if resp.RefreshToken != nil {
		rotated = *resp.RefreshToken
	}
	if err := c.creds.ApplyRefresh(ctx, refreshToken, resp.AccessToken, rotated); err != nil {
		if errors.Is(err, ErrSessionEnded) {
			logger.Info("session ended while refreshing, discarding tokens")
			c.metrics.ObserveRefresh(metrics.RefreshFailure)
			err := newError(KindUnauthorized, 0, "", nil)
			span.End(err)
			return "", err
		}
		// The token is live in memory; only persistence failed.
		logger.Warn("persist refreshed token", slog.Any("error", err))
	}

	c.metrics.ObserveRefresh(metrics.RefreshSuccess)
	span.End(nil)
	return resp.AccessToken, nil
}
