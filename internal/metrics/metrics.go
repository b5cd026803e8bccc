// Package metrics exposes Prometheus instruments for the Rift client.
//
// Every instrument lives on a private registry so tests and multiple clients in
// one process never collide on the global default registerer. A nil *Collector
// is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Refresh outcomes.
const (
	RefreshSuccess = "success"
	RefreshFailure = "failure"
	RefreshShared  = "shared"
)

// Collector groups the client instruments.
type Collector struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	refreshes       *prometheus.CounterVec
	rollbacks       *prometheus.CounterVec
	uploadBytes     prometheus.Counter
	breakerState    prometheus.Gauge

	served      *prometheus.CounterVec
	rateLimited prometheus.Counter
}

// New registers every instrument on a fresh registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rift",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "API requests by method and response status class.",
		}, []string{"method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rift",
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Round-trip latency of API requests.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"method"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rift",
			Subsystem: "client",
			Name:      "token_refresh_total",
			Help:      "Access token refresh attempts by outcome.",
		}, []string{"outcome"}),
		rollbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rift",
			Subsystem: "client",
			Name:      "optimistic_rollbacks_total",
			Help:      "Optimistic mutations reverted after the server rejected them.",
		}, []string{"kind"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rift",
			Subsystem: "client",
			Name:      "upload_bytes_total",
			Help:      "Bytes sent to pre-signed upload URLs.",
		}),
		breakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rift",
			Subsystem: "client",
			Name:      "breaker_open",
			Help:      "1 while the API circuit breaker rejects requests.",
		}),
		served: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rift",
			Subsystem: "devserver",
			Name:      "requests_total",
			Help:      "Requests answered by the development server.",
		}, []string{"method", "status"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rift",
			Subsystem: "devserver",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the development server rate limiter.",
		}),
	}
	reg.MustRegister(
		c.requests,
		c.requestDuration,
		c.refreshes,
		c.rollbacks,
		c.uploadBytes,
		c.breakerState,
		c.served,
		c.rateLimited,
		prometheus.NewGoCollector(),
	)
	return c
}

// ObserveRequest records one completed round trip. status 0 means the request
// never produced a response.
func (c *Collector) ObserveRequest(method string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.requests.WithLabelValues(method, StatusClass(status)).Inc()
	c.requestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveRefresh counts a refresh outcome.
func (c *Collector) ObserveRefresh(outcome string) {
	if c == nil {
		return
	}
	c.refreshes.WithLabelValues(outcome).Inc()
}

// ObserveRollback counts a reverted optimistic mutation.
func (c *Collector) ObserveRollback(kind string) {
	if c == nil {
		return
	}
	c.rollbacks.WithLabelValues(kind).Inc()
}

// AddUploadBytes adds n to the upload byte counter.
func (c *Collector) AddUploadBytes(n int64) {
	if c == nil || n <= 0 {
		return
	}
	c.uploadBytes.Add(float64(n))
}

// SetBreakerOpen flips the breaker gauge.
func (c *Collector) SetBreakerOpen(open bool) {
	if c == nil {
		return
	}
	if open {
		c.breakerState.Set(1)
		return
	}
	c.breakerState.Set(0)
}

// ObserveServed counts a request answered by the development server.
func (c *Collector) ObserveServed(method string, status int) {
	if c == nil {
		return
	}
	c.served.WithLabelValues(method, StatusClass(status)).Inc()
}

// ObserveRateLimited counts a request rejected with 429.
func (c *Collector) ObserveRateLimited() {
	if c == nil {
		return
	}
	c.rateLimited.Inc()
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the collector in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// StatusClass buckets an HTTP status into 2xx, 4xx, 5xx and so on.
func StatusClass(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}
