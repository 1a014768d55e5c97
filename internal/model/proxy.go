// Package model defines the types passed between the handler, service, and
// client layers.
package model

import (
	"context"
	"io"
	"net/http"
)

// ProxyRequest is a client request ready to forward. Path has the inbound
// route prefix already stripped; the query string is never carried upstream.
// Body is fully buffered so the admission policy can inspect it, and the
// same bytes go upstream untouched.
type ProxyRequest struct {
	Ctx    context.Context
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// ProxyResponse is the upstream response. Body is handed to the caller
// unread; relaying it verbatim is the handler's job.
type ProxyResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// ErrorBody is the JSON error envelope returned for denied or failed requests.
type ErrorBody struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

// NewError builds the error envelope with the error flag set.
func NewError(message string) ErrorBody {
	return ErrorBody{Error: true, Message: message}
}
