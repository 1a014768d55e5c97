package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"llm-proxy-go/internal/config"
	"llm-proxy-go/internal/metrics"
	"llm-proxy-go/internal/model"
	"llm-proxy-go/internal/reasoning"
	"llm-proxy-go/internal/relay"
	"llm-proxy-go/internal/service"
)

// ProxyHandler forwards chat-completion requests to the upstream API and
// streams responses back, watching each stream for reasoning deltas.
type ProxyHandler struct {
	service *service.ProxyService
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	sink    reasoning.Sink
}

// NewProxyHandler creates a ProxyHandler. The metrics parameter is optional;
// pass nil to disable relay metrics recording.
func NewProxyHandler(svc *service.ProxyService, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *ProxyHandler {
	var fragments prometheus.Counter
	if m != nil {
		fragments = m.ReasoningFragments
	}
	return &ProxyHandler{
		service: svc,
		cfg:     cfg,
		logger:  logger.With("component", "proxy_handler"),
		metrics: m,
		sink:    reasoning.NewLogSink(logger.With("component", "reasoning"), fragments),
	}
}

// Handle proxies the request to the upstream API and streams the response
// back. The request lives under a single context composed from the client's
// connection and the configured absolute timeout; either one aborts the
// upstream call, and the deferred cancel releases the timer on every exit
// path.
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()

	// Preflight requests are answered locally and never forwarded.
	if req.Method == http.MethodOptions {
		return c.JSON(http.StatusOK, map[string]string{"body": "OK"})
	}

	body, err := io.ReadAll(req.Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, model.NewError("failed to read request body"))
	}

	ctx, cancel := context.WithTimeout(req.Context(), h.cfg.Upstream.Timeout())
	defer cancel()

	pr := &model.ProxyRequest{
		Ctx:    ctx,
		Method: req.Method,
		Path:   strings.TrimPrefix(req.URL.Path, h.cfg.Server.PathPrefix),
		Header: req.Header,
		Body:   body,
	}

	resp, err := h.service.Forward(pr)
	if err != nil {
		return h.mapError(c, err)
	}
	defer func() { _ = resp.Body.Close() }()

	for key, vals := range resp.Header {
		for _, v := range vals {
			c.Response().Header().Add(key, v)
		}
	}

	c.Response().WriteHeader(resp.StatusCode)

	// Duplicate the upstream body: one view streams to the client, the other
	// feeds the reasoning observer. Parse outcomes never gate the relay.
	stream := relay.Tee(resp.Body, reasoning.NewObserver(h.sink))
	defer func() { _ = stream.Close() }()

	// Relay to the client, flushing every chunk. If the copy fails mid-stream
	// (client disconnect, upstream abort, timeout), the status line has
	// already been sent; the client simply sees the stream end. Bytes already
	// relayed stay sent.
	written, err := io.Copy(&flushWriter{resp: c.Response()}, stream)
	if h.metrics != nil {
		h.metrics.RelayBytes.Add(float64(written))
	}
	if err != nil {
		h.logger.Error("relay interrupted",
			"err", err,
			"path", req.URL.Path,
			"bytes_relayed", written,
		)
	}

	return nil
}

// flushWriter pushes every chunk through to the client as soon as it is
// written, instead of leaving it in server buffers until they fill.
type flushWriter struct {
	resp *echo.Response
}

func (w *flushWriter) Write(p []byte) (int, error) {
	n, err := w.resp.Write(p)
	if err != nil {
		return n, err
	}
	w.resp.Flush()
	return n, nil
}

// mapError turns a Forward failure into the client-facing error response.
// Denials are the client's fault and are not logged as errors. The Canceled
// check must run before the url.Error one: the transport wraps context errors
// in *url.Error, and the more specific cause wins.
func (h *ProxyHandler) mapError(c echo.Context, err error) error {
	var denied *service.ModelDeniedError
	if errors.As(err, &denied) {
		return c.JSON(http.StatusForbidden, model.NewError(denied.Error()))
	}

	h.logger.Error("forward failed",
		"err", err,
		"path", c.Request().URL.Path,
	)

	status, message := http.StatusBadGateway, "upstream request failed"
	var (
		dnsErr *net.DNSError
		urlErr *url.Error
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		status, message = http.StatusGatewayTimeout, "upstream request timed out"
	case errors.Is(err, context.Canceled):
		message = "client disconnected"
	case errors.As(err, &dnsErr):
		message = "upstream host unreachable"
	case errors.As(err, &urlErr):
		message = "upstream connection failed"
	}
	return c.JSON(status, model.NewError(message))
}
