package middleware

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"llm-proxy-go/internal/auth"
	"llm-proxy-go/internal/model"
)

// ClientAuth returns an Echo middleware that runs the credential pre-check
// before any proxying happens. A denied request is answered with 401 carrying
// the check's message and is never forwarded. OPTIONS requests bypass the
// check; preflights carry no credentials and are answered locally.
func ClientAuth(a auth.Authenticator, logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method == http.MethodOptions {
				return next(c)
			}

			if err := a.Authenticate(c.Request()); err != nil {
				logger.Warn("authentication denied",
					"reason", err.Error(),
					"remote_ip", c.RealIP(),
				)
				return c.JSON(http.StatusUnauthorized, model.NewError(err.Error()))
			}

			return next(c)
		}
	}
}
