package handler

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"llm-proxy-go/internal/auth"
	"llm-proxy-go/internal/config"
	"llm-proxy-go/internal/metrics"
	"llm-proxy-go/internal/middleware"
)

// RegisterRoutes wires all route handlers onto the Echo instance. Health,
// status and metrics endpoints are open; everything under the proxy prefix
// requires client authentication.
func RegisterRoutes(e *echo.Echo, cfg *config.Config, proxy *ProxyHandler, health *HealthHandler, m *metrics.Metrics, authn auth.Authenticator, logger *slog.Logger) {
	e.GET("/healthz", health.Healthz)
	e.GET("/status", health.Status)

	if cfg.Metrics.Enabled {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}

	g := e.Group(cfg.Server.PathPrefix, middleware.ClientAuth(authn, logger))
	g.Any("", proxy.Handle)
	g.Any("/*", proxy.Handle)
}
