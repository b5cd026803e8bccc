// Package api talks to the Rift REST API: a Transport for single HTTP
// exchanges and a Client that layers bearer authentication and token refresh
// on top of it.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/rift/client/internal/logging"
	"github.com/rift/client/internal/metrics"
	"github.com/rift/client/internal/models"
)

// DefaultTimeout bounds every exchange.
const DefaultTimeout = 30 * time.Second

// HeaderRequestID correlates client and server logs.
const HeaderRequestID = "X-Request-ID"

const maxResponseBytes = 16 << 20

// Request describes one API call. Path is relative to the base URL and may
// carry a query string. Anonymous requests never receive an Authorization
// header and never trigger a token refresh.
type Request struct {
	Method    string
	Path      string
	Body      any
	Headers   map[string]string
	Anonymous bool
}

// Doer is satisfied by both Transport and Client.
type Doer interface {
	Do(ctx context.Context, req Request, out any) error
}

// Transport performs exactly one HTTP exchange per call and maps the outcome
// onto the Error taxonomy. It holds no session state and never retries.
type Transport struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*rawResponse]
	metrics    *metrics.Collector
}

// TransportOption customises a Transport.
type TransportOption func(*Transport)

// WithHTTPClient replaces the underlying client. Its Timeout is left as is.
func WithHTTPClient(c *http.Client) TransportOption {
	return func(t *Transport) {
		if c != nil {
			t.httpClient = c
		}
	}
}

// WithMetrics records every exchange on c.
func WithMetrics(c *metrics.Collector) TransportOption {
	return func(t *Transport) { t.metrics = c }
}

// WithCircuitBreaker guards exchanges with a breaker that opens after
// threshold consecutive transport failures or 5xx responses and probes again
// after cooldown.
func WithCircuitBreaker(threshold uint32, cooldown time.Duration) TransportOption {
	return func(t *Transport) {
		if threshold == 0 {
			threshold = 5
		}
		t.breaker = gobreaker.NewCircuitBreaker[*rawResponse](gobreaker.Settings{
			Name:        "rift-api",
			MaxRequests: 1,
			Timeout:     cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("circuit breaker state changed",
					slog.String("breaker", name),
					slog.String("from", from.String()),
					slog.String("to", to.String()))
				t.metrics.SetBreakerOpen(to == gobreaker.StateOpen)
			},
		})
	}
}

// NewTransport targets baseURL. A zero timeout means DefaultTimeout.
func NewTransport(baseURL string, timeout time.Duration, opts ...TransportOption) *Transport {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	t := &Transport{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// BaseURL returns the API root every path is resolved against.
func (t *Transport) BaseURL() string {
	return t.baseURL
}

type rawResponse struct {
	status int
	body   []byte
}

// errStatus marks a 5xx response so the breaker counts it as a failure while
// the response itself is still classified normally.
var errStatus = errors.New("server status")

// Do sends req and decodes a 2xx body into out. out may be nil or
// *models.Empty when the response carries nothing of interest.
func (t *Transport) Do(ctx context.Context, req Request, out any) error {
	target, err := t.resolve(req.Path)
	if err != nil {
		return err
	}

	var payload io.Reader
	if req.Body != nil {
		buf, err := json.Marshal(req.Body)
		if err != nil {
			return newError(KindInvalidResponse, 0, "", fmt.Errorf("encode %s %s body: %w", req.Method, req.Path, err))
		}
		payload = bytes.NewReader(buf)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, payload)
	if err != nil {
		return newError(KindInvalidURL, 0, "", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	requestID := logging.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	httpReq.Header.Set(HeaderRequestID, requestID)
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	logger := logging.FromContext(ctx).With(
		slog.String("method", req.Method),
		slog.String("path", req.Path),
		slog.String("request_id", requestID),
	)

	start := time.Now()
	raw, err := t.exchange(httpReq)
	elapsed := time.Since(start)

	if err != nil && !errors.Is(err, errStatus) {
		t.metrics.ObserveRequest(req.Method, 0, elapsed)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			logger.Warn("api request rejected by circuit breaker")
			return newError(KindServer, 0, "service unavailable", err)
		}
		logger.Warn("api request failed", slog.Any("error", err), slog.Duration("duration", elapsed))
		return newError(KindInvalidResponse, 0, "", err)
	}

	t.metrics.ObserveRequest(req.Method, raw.status, elapsed)
	logger.Debug("api request completed",
		slog.Int("status", raw.status),
		slog.Duration("duration", elapsed))

	return classify(raw, out)
}

func (t *Transport) exchange(req *http.Request) (*rawResponse, error) {
	if t.breaker == nil {
		return t.roundTrip(req)
	}
	return t.breaker.Execute(func() (*rawResponse, error) {
		return t.roundTrip(req)
	})
}

func (t *Transport) roundTrip(req *http.Request) (*rawResponse, error) {
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	raw := &rawResponse{status: resp.StatusCode, body: body}
	if resp.StatusCode >= 500 && resp.StatusCode <= 599 {
		return raw, errStatus
	}
	return raw, nil
}

func (t *Transport) resolve(path string) (string, error) {
	target := t.baseURL + path
	u, err := url.Parse(target)
	if err != nil {
		return "", newError(KindInvalidURL, 0, "", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", newError(KindInvalidURL, 0, "", fmt.Errorf("%q is not absolute", target))
	}
	return target, nil
}

func classify(raw *rawResponse, out any) error {
	switch status := raw.status; {
	case status >= 200 && status <= 299:
		return decode(raw.body, out)
	case status == http.StatusUnauthorized:
		return newError(KindUnauthorized, status, "", nil)
	case status >= 400 && status <= 499:
		var payload models.ErrorResponse
		if err := json.Unmarshal(raw.body, &payload); err == nil {
			if payload.Message != nil && *payload.Message != "" {
				return newError(KindServer, status, *payload.Message, nil)
			}
			if payload.Error != "" {
				return newError(KindServer, status, payload.Error, nil)
			}
		}
		return newError(KindServer, status, fmt.Sprintf("client error: %d", status), nil)
	case status >= 500 && status <= 599:
		return newError(KindServer, status, fmt.Sprintf("server error: %d", status), nil)
	default:
		return newError(KindInvalidResponse, status, "", nil)
	}
}

func decode(body []byte, out any) error {
	if out == nil {
		return nil
	}
	if _, ok := out.(*models.Empty); ok {
		return nil
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return newError(KindNoData, 0, "", nil)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return newError(KindDecoding, 0, "", err)
	}
	return nil
}

// Upload PUTs size bytes from body to a fully qualified, usually pre-signed,
// URL. No authentication header is attached.
func (t *Transport) Upload(ctx context.Context, rawURL string, body io.Reader, size int64, contentType string) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return newError(KindInvalidURL, 0, "", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, rawURL, body)
	if err != nil {
		return newError(KindInvalidURL, 0, "", err)
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", contentType)

	logger := logging.FromContext(ctx).With(slog.String("host", u.Host), slog.Int64("bytes", size))

	start := time.Now()
	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.metrics.ObserveRequest(http.MethodPut, 0, time.Since(start))
		logger.Warn("upload failed", slog.Any("error", err))
		return newError(KindServer, 0, "upload failed", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	t.metrics.ObserveRequest(http.MethodPut, resp.StatusCode, time.Since(start))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Warn("upload rejected", slog.Int("status", resp.StatusCode))
		return newError(KindServer, resp.StatusCode, "upload failed", nil)
	}
	t.metrics.AddUploadBytes(size)
	logger.Debug("upload completed", slog.Duration("duration", time.Since(start)))
	return nil
}
