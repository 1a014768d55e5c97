// Package metrics defines the proxy's Prometheus collectors and the label
// normalization that keeps their cardinality bounded.
package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Histogram buckets for API latency. Streaming responses are held open for
// the duration of generation, so the upper buckets stretch into minutes.
var defaultBuckets = []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

// httpLabels label inbound HTTP series. Values are normalized to a bounded
// set before use.
var httpLabels = []string{"method", "status_code", "path_prefix"}

// Metrics groups every collector the proxy exports, all registered on one
// private registry so the metrics endpoint serves nothing else.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	UpstreamDuration  *prometheus.HistogramVec
	UpstreamResponses *prometheus.CounterVec

	PolicyDenials      prometheus.Counter
	RelayBytes         prometheus.Counter
	ReasoningFragments prometheus.Counter

	knownPrefixes []string
}

// New creates a Metrics instance with a custom registry and all collectors
// registered. pathPrefix and metricsPath bound the path label values.
func New(pathPrefix, metricsPath string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "llm_proxy_http_requests_total",
			Help: "Inbound requests served, by method, status and route group.",
		}, httpLabels),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "llm_proxy_http_request_duration_seconds",
			Help:    "Wall time from request arrival to the last response byte.",
			Buckets: defaultBuckets,
		}, httpLabels),
		RequestsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "llm_proxy_http_requests_in_flight",
			Help: "Requests currently inside the handler chain.",
		}),

		UpstreamDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "llm_proxy_upstream_request_duration_seconds",
			Help:    "Upstream call latency in seconds, request sent to response headers.",
			Buckets: defaultBuckets,
		}, []string{"method"}),
		UpstreamResponses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "llm_proxy_upstream_responses_total",
			Help: "Responses received from the provider, by method and status.",
		}, []string{"method", "status_code"}),

		PolicyDenials: f.NewCounter(prometheus.CounterOpts{
			Name: "llm_proxy_policy_denials_total",
			Help: "Requests rejected by the model allowlist.",
		}),
		RelayBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "llm_proxy_relay_bytes_total",
			Help: "Response bytes relayed to clients.",
		}),
		ReasoningFragments: f.NewCounter(prometheus.CounterOpts{
			Name: "llm_proxy_reasoning_fragments_total",
			Help: "Reasoning log lines emitted to the observation sink.",
		}),

		knownPrefixes: []string{pathPrefix, "/healthz", "/status", metricsPath},
	}
}

// NormalizeMethod maps anything outside the standard HTTP methods to "other"
// so arbitrary verbs cannot mint new label values.
func NormalizeMethod(method string) string {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete,
		http.MethodPatch, http.MethodHead, http.MethodOptions:
		return method
	default:
		return "other"
	}
}

// NormalizePath collapses a request path to its registered route group, or
// "other" for unrouted paths.
func (m *Metrics) NormalizePath(path string) string {
	for _, prefix := range m.knownPrefixes {
		if prefix == "" {
			continue
		}
		if path == prefix || strings.HasPrefix(path, prefix+"/") || strings.HasPrefix(path, prefix+"?") {
			return prefix
		}
	}
	return "other"
}
