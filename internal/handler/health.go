package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"llm-proxy-go/internal/config"
)

// Version carries the build version through the constructor graph as its own
// type so it cannot be confused with other strings.
type Version string

type statusResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Provider      string `json:"provider"`
	UpstreamURL   string `json:"upstream_url"`
	ModelsAllowed int    `json:"models_allowed"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// HealthHandler answers the liveness and status endpoints.
type HealthHandler struct {
	cfg     *config.Config
	version Version
	started time.Time
}

// NewHealthHandler captures the process start time for uptime reporting.
func NewHealthHandler(cfg *config.Config, v Version) *HealthHandler {
	return &HealthHandler{cfg: cfg, version: v, started: time.Now()}
}

// Healthz answers liveness probes.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Status reports the proxied provider, the upstream base URL, the allowlist
// size, and uptime. Key material never appears in the payload.
func (h *HealthHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, statusResponse{
		Status:        "ok",
		Version:       string(h.version),
		Provider:      h.cfg.Provider.Name,
		UpstreamURL:   h.cfg.Upstream.BaseURL,
		ModelsAllowed: len(h.cfg.Provider.AllowedModels),
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
	})
}
