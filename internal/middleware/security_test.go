package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestSecurityHeaders_AddsHeaders(t *testing.T) {
	e := echo.New()
	e.Use(SecurityHeaders())
	e.GET("/healthz", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))

	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
	}
	for name, value := range want {
		if got := rec.Header().Get(name); got != value {
			t.Errorf("%s = %q, want %q", name, got, value)
		}
	}
}

func TestSecurityHeaders_PresentOnStreamedResponse(t *testing.T) {
	e := echo.New()
	e.Use(SecurityHeaders())
	e.GET("/stream", func(c echo.Context) error {
		// Write and flush a first chunk, committing the header block, then
		// keep writing the way the proxy handler does.
		c.Response().WriteHeader(http.StatusOK)
		c.Response().Write([]byte("data: one\n\n"))
		c.Response().Flush()
		c.Response().Write([]byte("data: two\n\n"))
		return nil
	})

	req := httptest.NewRequest(http.MethodGet, "/stream", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if v := rec.Header().Get("X-Content-Type-Options"); v != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want %q on streamed response", v, "nosniff")
	}
}

func TestStripHopByHop(t *testing.T) {
	tests := []struct {
		name    string
		set     map[string]string
		removed []string
		kept    map[string]string
	}{
		{
			name:    "fixed set",
			set:     map[string]string{"Connection": "keep-alive", "Proxy-Authorization": "Basic abc", "Keep-Alive": "timeout=5"},
			removed: []string{"Connection", "Proxy-Authorization", "Keep-Alive"},
		},
		{
			name:    "connection-named tokens",
			set:     map[string]string{"Connection": "close, X-Session-Token", "X-Session-Token": "abc123"},
			removed: []string{"Connection", "X-Session-Token"},
		},
		{
			name:    "end-to-end headers survive",
			set:     map[string]string{"Connection": "keep-alive", "Authorization": "Bearer sk-1", "Content-Type": "application/json"},
			removed: []string{"Connection"},
			kept:    map[string]string{"Authorization": "Bearer sk-1", "Content-Type": "application/json"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range tt.set {
				h.Set(k, v)
			}

			stripHopByHop(h)

			for _, name := range tt.removed {
				if got := h.Get(name); got != "" {
					t.Errorf("%s = %q, want removed", name, got)
				}
			}
			for name, want := range tt.kept {
				if got := h.Get(name); got != want {
					t.Errorf("%s = %q, want %q", name, got, want)
				}
			}
		})
	}
}

func TestSecurityHeaders_StripsBeforeHandler(t *testing.T) {
	e := echo.New()
	e.Use(SecurityHeaders())

	var seen http.Header
	e.POST("/proxy/chat/completions", func(c echo.Context) error {
		seen = c.Request().Header.Clone()
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/proxy/chat/completions", http.NoBody)
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Authorization", "Bearer sk-1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if got := seen.Get("Connection"); got != "" {
		t.Errorf("Connection reached the handler: %q", got)
	}
	if got := seen.Get("Authorization"); got != "Bearer sk-1" {
		t.Errorf("Authorization = %q, want %q", got, "Bearer sk-1")
	}
}
