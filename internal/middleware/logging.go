// Package middleware holds the Echo middleware applied in front of every
// route: request logging, Prometheus instrumentation, client authentication,
// body limits, and header hygiene.
package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestLogger emits one access-log line per request once the handler
// returns. The level tracks the response status, warn for client errors and
// error for server errors, so denials and upstream failures stand out from
// routine streaming traffic.
func RequestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			req := c.Request()
			res := c.Response()
			status := responseStatus(res, err)

			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}

			logger.Log(req.Context(), level, "request",
				"method", req.Method,
				"path", req.URL.Path,
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", res.Header().Get(echo.HeaderXRequestID),
				"remote_ip", c.RealIP(),
				"bytes_out", res.Size,
			)

			return err
		}
	}
}

// responseStatus resolves the status code a request is answered with. When a
// handler returns an *echo.HTTPError the response is not committed yet and
// the code still travels inside the error; any other uncommitted error
// becomes a 500 in Echo's central error handler.
func responseStatus(res *echo.Response, err error) int {
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he.Code
		}
		if !res.Committed {
			return http.StatusInternalServerError
		}
	}
	return res.Status
}
