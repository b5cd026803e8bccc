package api

import (
	"context"
	"errors"
	"io"
	"maps"

	"golang.org/x/sync/singleflight"

	"github.com/rift/client/internal/metrics"
)

// Credentials is the token holder the Client reads from and reports back to.
// session.State is the production implementation.
type Credentials interface {
	AccessToken() string
	RefreshToken() string
	// ApplyRefresh installs a refreshed access token obtained with the
	// refresh token used. refresh is empty when the server did not rotate
	// it. ErrSessionEnded means the session moved on meanwhile and nothing
	// was stored.
	ApplyRefresh(ctx context.Context, used, access, refresh string) error
	// Invalidate drops every credential locally after an unrecoverable
	// refresh failure, unless the session no longer holds used.
	Invalidate(ctx context.Context, used string)
}

// Client injects bearer tokens and recovers from a single 401 per call by
// refreshing the access token. Concurrent refreshes collapse into one.
type Client struct {
	transport *Transport
	creds     Credentials
	metrics   *metrics.Collector
	refreshes singleflight.Group
}

// NewClient wires the orchestrator. m may be nil.
func NewClient(transport *Transport, creds Credentials, m *metrics.Collector) *Client {
	return &Client{transport: transport, creds: creds, metrics: m}
}

// Transport returns the underlying transport.
func (c *Client) Transport() *Transport {
	return c.transport
}

// Do performs req. Authenticated calls fail fast with ErrUnauthorized when no
// access token is held. A 401 on an authenticated call triggers one refresh
// and exactly one retry; the retried outcome is returned as is.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	if req.Anonymous {
		return c.transport.Do(ctx, req, out)
	}

	token := c.creds.AccessToken()
	if token == "" {
		return newError(KindUnauthorized, 0, "", nil)
	}

	err := c.transport.Do(ctx, withBearer(req, token), out)
	if !errors.Is(err, ErrUnauthorized) {
		return err
	}

	fresh, err := c.refresh(ctx, token)
	if err != nil {
		return err
	}
	return c.transport.Do(ctx, withBearer(req, fresh), out)
}

// Upload forwards to the transport. Pre-signed URLs carry their own
// authorization.
func (c *Client) Upload(ctx context.Context, rawURL string, body io.Reader, size int64, contentType string) error {
	return c.transport.Upload(ctx, rawURL, body, size, contentType)
}

func withBearer(req Request, token string) Request {
	headers := make(map[string]string, len(req.Headers)+1)
	maps.Copy(headers, req.Headers)
	headers["Authorization"] = "Bearer " + token
	req.Headers = headers
	return req
}
