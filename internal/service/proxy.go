// Package service applies the admission policy and builds the outbound
// upstream call.
package service

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/tidwall/gjson"

	"llm-proxy-go/internal/client"
	"llm-proxy-go/internal/config"
	"llm-proxy-go/internal/metrics"
	"llm-proxy-go/internal/model"
	"llm-proxy-go/internal/policy"
)

// ModelDeniedError reports a request rejected by the model allowlist.
// Its message is surfaced to the client verbatim in the 403 body.
type ModelDeniedError struct {
	Model string
}

func (e *ModelDeniedError) Error() string {
	return fmt.Sprintf("you are not allowed to use %s model", e.Model)
}

// forwardableRequestHeaders is the allowlist copied onto the outbound call.
// The credential header is copied verbatim; Accept-Encoding is deliberately
// absent so the transport negotiates compression itself and hands back a
// plaintext stream.
var forwardableRequestHeaders = []string{
	"Authorization",
	"Content-Type",
	"Accept",
}

const userAgent = "llm-proxy-go/1.0"

// ProxyService admits requests and forwards them to the configured upstream.
type ProxyService struct {
	client  *client.UpstreamClient
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewProxyService creates a ProxyService. The metrics parameter is optional;
// pass nil to disable policy metrics recording.
func NewProxyService(c *client.UpstreamClient, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *ProxyService {
	return &ProxyService{
		client:  c,
		cfg:     cfg,
		logger:  logger.With("component", "proxy_service"),
		metrics: m,
	}
}

// Forward applies the admission policy and sends a ProxyRequest to the
// upstream API. The caller is responsible for closing the response body.
//
// On denial a *ModelDeniedError is returned and no outbound request is made.
// The upstream URL is the configured base joined with the request path; the
// inbound query string is dropped. All upstream response headers are passed
// through except Www-Authenticate, which is removed, and X-Accel-Buffering,
// which is forced to "no" so intermediaries do not buffer the stream.
func (s *ProxyService) Forward(pr *model.ProxyRequest) (*model.ProxyResponse, error) {
	if err := s.admit(pr.Body); err != nil {
		return nil, err
	}

	upstreamURL := s.cfg.Upstream.BaseURL + pr.Path
	header := s.buildRequestHeaders(pr.Header)

	s.logger.Debug("forwarding",
		"method", pr.Method,
		"url", upstreamURL,
	)

	var body io.Reader
	if len(pr.Body) > 0 {
		body = bytes.NewReader(pr.Body)
	}

	resp, err := s.client.DoStream(pr.Ctx, pr.Method, upstreamURL, header, body)
	if err != nil {
		return nil, fmt.Errorf("call upstream: %w", err)
	}

	resp.Header = editResponseHeaders(resp.Header)
	return resp, nil
}

// admit evaluates the model allowlist against the request body. Requests
// without a body, and bodies that are not valid JSON, are admitted as-is:
// the policy only ever filters requests it can actually read.
func (s *ProxyService) admit(body []byte) error {
	allowlist := s.cfg.Provider.AllowedModels
	if len(allowlist) == 0 || len(body) == 0 {
		return nil
	}
	if !gjson.ValidBytes(body) {
		s.logger.Debug("request body is not valid JSON; admission skipped")
		return nil
	}

	requested := gjson.GetBytes(body, "model").String()
	if policy.IsModelAllowed(allowlist, requested, s.cfg.Provider.Name) {
		return nil
	}

	s.logger.Info("model denied by allowlist",
		"model", requested,
		"provider", s.cfg.Provider.Name,
	)
	if s.metrics != nil {
		s.metrics.PolicyDenials.Inc()
	}
	return &ModelDeniedError{Model: requested}
}

func (s *ProxyService) buildRequestHeaders(src http.Header) http.Header {
	dst := make(http.Header, len(forwardableRequestHeaders)+1)
	for _, key := range forwardableRequestHeaders {
		for _, v := range src.Values(key) {
			dst.Add(key, v)
		}
	}
	dst.Set("User-Agent", userAgent)
	return dst
}

func editResponseHeaders(src http.Header) http.Header {
	dst := src.Clone()
	if dst == nil {
		dst = make(http.Header)
	}
	dst.Del("Www-Authenticate")
	dst.Set("X-Accel-Buffering", "no")
	return dst
}
