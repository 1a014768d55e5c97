package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_RegistersCollectors(t *testing.T) {
	m := New("/proxy", "/metrics")

	// Vec collectors export nothing until a child exists.
	m.RequestsTotal.WithLabelValues("POST", "200", "/proxy").Inc()
	m.UpstreamResponses.WithLabelValues("POST", "200").Inc()
	m.RelayBytes.Add(1024)

	names := []string{
		"llm_proxy_http_requests_total",
		"llm_proxy_upstream_responses_total",
		"llm_proxy_policy_denials_total",
		"llm_proxy_relay_bytes_total",
		"llm_proxy_reasoning_fragments_total",
		"go_goroutines",
	}
	for _, name := range names {
		n, err := testutil.GatherAndCount(m.Registry, name)
		if err != nil {
			t.Fatalf("GatherAndCount(%s) error = %v", name, err)
		}
		if n == 0 {
			t.Errorf("metric %s not gathered", name)
		}
	}

	if got := testutil.ToFloat64(m.RelayBytes); got != 1024 {
		t.Errorf("relay_bytes = %v, want 1024", got)
	}
}

func TestNormalizeMethod(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"GET", "GET"},
		{"POST", "POST"},
		{"OPTIONS", "OPTIONS"},
		{"PATCH", "PATCH"},
		{"XYZZY", "other"},
		{"post", "other"},
		{"", "other"},
	}

	for _, tt := range tests {
		if got := NormalizeMethod(tt.in); got != tt.want {
			t.Errorf("NormalizeMethod(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		path   string
		want   string
	}{
		{"subpath under prefix", "/proxy", "/proxy/chat/completions", "/proxy"},
		{"prefix itself", "/proxy", "/proxy", "/proxy"},
		{"health endpoint", "/proxy", "/healthz", "/healthz"},
		{"status endpoint", "/proxy", "/status", "/status"},
		{"metrics endpoint", "/proxy", "/metrics", "/metrics"},
		{"unknown path", "/proxy", "/unknown", "other"},
		{"root", "/proxy", "/", "other"},
		{"shared prefix is not a match", "/proxy", "/proxyfoo", "other"},
		{"nested custom prefix", "/api/llm", "/api/llm/chat/completions", "/api/llm"},
		{"old prefix after reconfigure", "/api/llm", "/proxy/chat/completions", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(tt.prefix, "/metrics")
			if got := m.NormalizePath(tt.path); got != tt.want {
				t.Errorf("NormalizePath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
