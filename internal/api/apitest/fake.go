// Package apitest provides an in-memory api.Doer for model tests.
package apitest

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/goccy/go-json"

	"github.com/rift/client/internal/api"
)

// Handler answers one request. A non-nil response is JSON encoded into out.
type Handler func(ctx context.Context, req api.Request) (any, error)

// Fake routes requests by "METHOD path" and records every call.
type Fake struct {
	mu       sync.Mutex
	routes   map[string]Handler
	calls    []api.Request
	fallback Handler

	uploads   []Upload
	uploadErr error
}

// Upload records one call to Fake.Upload.
type Upload struct {
	URL         string
	ContentType string
	Size        int64
	Data        []byte
}

// New returns a Fake that fails unknown routes with a 404-style server error.
func New() *Fake {
	return &Fake{routes: make(map[string]Handler)}
}

// Handle registers h for method and path. path must match exactly,
// including the query string.
func (f *Fake) Handle(method, path string, h Handler) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[method+" "+path] = h
	return f
}

// Reply registers a handler that always returns resp.
func (f *Fake) Reply(method, path string, resp any) *Fake {
	return f.Handle(method, path, func(context.Context, api.Request) (any, error) { return resp, nil })
}

// Fail registers a handler that always returns err.
func (f *Fake) Fail(method, path string, err error) *Fake {
	return f.Handle(method, path, func(context.Context, api.Request) (any, error) { return nil, err })
}

// Fallback answers every unregistered route.
func (f *Fake) Fallback(h Handler) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fallback = h
	return f
}

func (f *Fake) Do(ctx context.Context, req api.Request, out any) error {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	h, ok := f.routes[req.Method+" "+req.Path]
	if !ok {
		h = f.fallback
	}
	f.mu.Unlock()

	if h == nil {
		return &api.Error{Kind: api.KindServer, Status: 404, Message: fmt.Sprintf("no route for %s %s", req.Method, req.Path)}
	}
	resp, err := h(ctx, req)
	if err != nil {
		return err
	}
	if resp == nil || out == nil {
		return nil
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &api.Error{Kind: api.KindDecoding, Err: err}
	}
	return nil
}

// Calls returns a copy of every recorded request.
func (f *Fake) Calls() []api.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]api.Request(nil), f.calls...)
}

// Count reports how many calls matched method and path.
func (f *Fake) Count(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Method == method && c.Path == path {
			n++
		}
	}
	return n
}

// ServerError is shorthand for a server failure carrying msg.
func ServerError(status int, msg string) error {
	return &api.Error{Kind: api.KindServer, Status: status, Message: msg}
}

// FailUploads makes every later Upload return err.
func (f *Fake) FailUploads(err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadErr = err
	return f
}

func (f *Fake) Upload(_ context.Context, rawURL string, body io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, Upload{URL: rawURL, ContentType: contentType, Size: size, Data: data})
	return f.uploadErr
}

// Uploads returns a copy of every recorded upload.
func (f *Fake) Uploads() []Upload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Upload(nil), f.uploads...)
}
