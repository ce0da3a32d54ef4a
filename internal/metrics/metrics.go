// Package metrics exposes Prometheus counters for the coaching pipeline. All
// methods are safe on a nil *Recorder so callers never need to guard them.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "carbon_coach"

type Recorder struct {
	registry *prometheus.Registry

	feedback        *prometheus.CounterVec
	gatewayFailures *prometheus.CounterVec
	gatewayLatency  prometheus.Histogram
	badges          *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
}

type Option func(*Recorder)

// WithRegistry registers the metrics on reg instead of a fresh registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(r *Recorder) { r.registry = reg }
}

func New(opts ...Option) *Recorder {
	r := &Recorder{}
	for _, opt := range opts {
		opt(r)
	}
	if r.registry == nil {
		r.registry = prometheus.NewRegistry()
	}

	auto := promauto.With(r.registry)
	r.feedback = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feedback_total",
		Help:      "Coaching reports returned, by source (llm or fallback).",
	}, []string{"source"})
	r.gatewayFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gateway_failures_total",
		Help:      "Model calls that did not produce a valid report, by failure kind.",
	}, []string{"kind"})
	r.gatewayLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "gateway_latency_seconds",
		Help:      "Latency of successful model calls.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40},
	})
	r.badges = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "badges_awarded_total",
		Help:      "Badges handed out, by badge id.",
	}, []string{"id"})
	r.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests served.",
	}, []string{"method", "path", "status"})
	return r
}

func (r *Recorder) Feedback(source string) {
	if r == nil {
		return
	}
	r.feedback.WithLabelValues(source).Inc()
}

func (r *Recorder) GatewayFailure(kind string) {
	if r == nil {
		return
	}
	r.gatewayFailures.WithLabelValues(kind).Inc()
}

func (r *Recorder) GatewayLatency(d time.Duration) {
	if r == nil {
		return
	}
	r.gatewayLatency.Observe(d.Seconds())
}

func (r *Recorder) BadgeAwarded(id string) {
	if r == nil {
		return
	}
	r.badges.WithLabelValues(id).Inc()
}

// HTTPRequest counts one request. path should be the route template, not the
// raw URL, to keep label cardinality bounded.
func (r *Recorder) HTTPRequest(method, path string, status int) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
