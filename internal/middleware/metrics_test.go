package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"llm-proxy-go/internal/metrics"
)

func serveWithMetrics(m *metrics.Metrics, register func(e *echo.Echo), method, target string) *httptest.ResponseRecorder {
	e := echo.New()
	e.Use(MetricsMiddleware(m))
	if register != nil {
		register(e)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(method, target, http.NoBody))
	return rec
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func TestMetricsMiddleware_RequestsTotalLabels(t *testing.T) {
	tests := []struct {
		name     string
		register func(e *echo.Echo)
		method   string
		target   string
		want     [3]string // method, status_code, path_prefix
	}{
		{
			name:     "success under proxy prefix",
			register: func(e *echo.Echo) { e.POST("/proxy/chat/completions", okHandler) },
			method:   http.MethodPost,
			target:   "/proxy/chat/completions",
			want:     [3]string{"POST", "200", "/proxy"},
		},
		{
			name: "http error carries its code",
			register: func(e *echo.Echo) {
				e.POST("/proxy/chat/completions", func(c echo.Context) error {
					return echo.NewHTTPError(http.StatusBadGateway, "upstream failed")
				})
			},
			method: http.MethodPost,
			target: "/proxy/chat/completions",
			want:   [3]string{"POST", "502", "/proxy"},
		},
		{
			name:     "unknown method normalized",
			register: func(e *echo.Echo) { e.Add("XYZZY", "/proxy/chat/completions", okHandler) },
			method:   "XYZZY",
			target:   "/proxy/chat/completions",
			want:     [3]string{"other", "200", "/proxy"},
		},
		{
			name:     "health endpoint keeps own prefix",
			register: func(e *echo.Echo) { e.GET("/healthz", okHandler) },
			method:   http.MethodGet,
			target:   "/healthz",
			want:     [3]string{"GET", "200", "/healthz"},
		},
		{
			name:   "unrouted path normalized",
			method: http.MethodGet,
			target: "/nonexistent",
			want:   [3]string{"GET", "404", "other"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.New("/proxy", "/metrics")
			serveWithMetrics(m, tt.register, tt.method, tt.target)

			got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues(tt.want[0], tt.want[1], tt.want[2]))
			if got != 1 {
				t.Errorf("requests_total%v = %v, want 1", tt.want, got)
			}
		})
	}
}

func TestMetricsMiddleware_ObservesDuration(t *testing.T) {
	m := metrics.New("/proxy", "/metrics")
	serveWithMetrics(m, func(e *echo.Echo) { e.GET("/healthz", okHandler) }, http.MethodGet, "/healthz")

	n := testutil.CollectAndCount(m.RequestDuration, "llm_proxy_http_request_duration_seconds")
	if n != 1 {
		t.Errorf("duration series count = %d, want 1", n)
	}
}

func TestMetricsMiddleware_TracksInFlight(t *testing.T) {
	m := metrics.New("/proxy", "/metrics")

	var during float64
	serveWithMetrics(m, func(e *echo.Echo) {
		e.POST("/proxy/chat/completions", func(c echo.Context) error {
			during = testutil.ToFloat64(m.RequestsInFlight)
			return c.String(http.StatusOK, "ok")
		})
	}, http.MethodPost, "/proxy/chat/completions")

	if during != 1 {
		t.Errorf("in-flight during request = %v, want 1", during)
	}
	if after := testutil.ToFloat64(m.RequestsInFlight); after != 0 {
		t.Errorf("in-flight after request = %v, want 0", after)
	}
}
