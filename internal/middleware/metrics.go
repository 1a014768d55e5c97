package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"llm-proxy-go/internal/metrics"
)

// MetricsMiddleware returns an Echo middleware recording Prometheus metrics
// for every inbound request. The duration covers the full response lifetime,
// so streamed completions land in the minutes-wide upper buckets instead of
// being reported at time-to-first-byte.
func MetricsMiddleware(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m.RequestsInFlight.Inc()
			defer m.RequestsInFlight.Dec()

			start := time.Now()
			err := next(c)
			elapsed := time.Since(start).Seconds()

			labels := []string{
				metrics.NormalizeMethod(c.Request().Method),
				strconv.Itoa(responseStatus(c.Response(), err)),
				m.NormalizePath(c.Request().URL.Path),
			}
			m.RequestsTotal.WithLabelValues(labels...).Inc()
			m.RequestDuration.WithLabelValues(labels...).Observe(elapsed)

			return err
		}
	}
}
