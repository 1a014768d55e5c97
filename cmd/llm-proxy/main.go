package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"golang.org/x/time/rate"

	"llm-proxy-go/internal/auth"
	"llm-proxy-go/internal/client"
	"llm-proxy-go/internal/config"
	"llm-proxy-go/internal/handler"
	"llm-proxy-go/internal/metrics"
	"llm-proxy-go/internal/middleware"
	"llm-proxy-go/internal/service"
)

// Overridden by -ldflags at release time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func buildVersion() string {
	return fmt.Sprintf("%s (%s, %s)", version, commit, date)
}

func main() {
	var cli config.CLI
	kong.Parse(&cli,
		kong.Name("llm-proxy"),
		kong.Description("Streaming reverse proxy for LLM chat-completion APIs."),
		kong.Vars{"version": buildVersion()},
	)

	fx.New(
		fx.Supply(&cli, handler.Version(version)),
		fx.Provide(
			config.Load,
			newLogger,
			newMetrics,
			newAuthenticator,
			newEcho,
			client.NewUpstreamClient,
			service.NewProxyService,
			handler.NewProxyHandler,
			handler.NewHealthHandler,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With("component", "fx")}
		}),
		fx.Invoke(
			handler.RegisterRoutes,
			func(cfg *config.Config, logger *slog.Logger) { cfg.WarnPermissions(logger) },
			startServer,
		),
	).Run()
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if strings.EqualFold(cfg.Log.Format, "text") {
		h = slog.NewTextHandler(os.Stdout, opts)
	} else {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(h)
}

func newMetrics(cfg *config.Config) *metrics.Metrics {
	return metrics.New(cfg.Server.PathPrefix, cfg.Metrics.Path)
}

func newAuthenticator(cfg *config.Config) auth.Authenticator {
	return auth.NewKeyAuthenticator(cfg.Provider.Name, cfg.Auth.ClientKeys)
}

func newEcho(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Inbound timeouts to mitigate slow-client attacks. WriteTimeout stays 0:
	// streamed completions are held open for minutes, bounded instead by the
	// upstream request timeout.
	e.Server.ReadTimeout = 30 * time.Second
	e.Server.ReadHeaderTimeout = 10 * time.Second
	e.Server.WriteTimeout = 0
	e.Server.IdleTimeout = 120 * time.Second

	e.Use(
		echomw.Recover(),
		echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}),
		middleware.RequestLogger(logger),
		middleware.MetricsMiddleware(m),
		echomw.BodyLimit(fmt.Sprintf("%dB", cfg.Server.BodyMaxBytes)),
		middleware.SecurityHeaders(),
	)

	if rl := cfg.Server.RateLimit; rl.Enabled {
		e.Use(echomw.RateLimiter(echomw.NewRateLimiterMemoryStore(rate.Limit(rl.RequestsPerSecond))))
		logger.Info("rate limiting enabled", "requests_per_second", rl.RequestsPerSecond)
	}

	return e
}

func startServer(lc fx.Lifecycle, sd fx.Shutdowner, e *echo.Echo, cfg *config.Config, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			addr := cfg.Server.Addr()
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", addr, err)
			}
			logger.Info("starting server",
				"addr", ln.Addr().String(),
				"provider", cfg.Provider.Name,
				"upstream", cfg.Upstream.BaseURL,
			)
			go func() {
				if err := e.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("serve failed", "err", err)
					sd.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping server")
			return e.Shutdown(ctx)
		},
	})
}
