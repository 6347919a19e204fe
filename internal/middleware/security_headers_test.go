package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func serveWithHeaders(env string, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	SecurityHeaders(env)(okHandler()).ServeHTTP(w, req)
	return w
}

func TestSecurityHeaders_Baseline(t *testing.T) {
	w := serveWithHeaders("development", httptest.NewRequest(http.MethodGet, "/admin/users", nil))

	tests := []struct {
		header   string
		expected string
	}{
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", "DENY"},
		{"Referrer-Policy", "no-referrer"},
		{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
		{"Cache-Control", "no-store"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, w.Header().Get(tt.header), tt.header)
	}
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestSecurityHeaders_HSTSOnlyOverTLSInProduction(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	assert.Empty(t, serveWithHeaders("production", req).Header().Get("Strict-Transport-Security"))

	req.Header.Set("X-Forwarded-Proto", "https")
	assert.Contains(t, serveWithHeaders("production", req).Header().Get("Strict-Transport-Security"), "max-age=31536000")

	assert.Empty(t, serveWithHeaders("development", req).Header().Get("Strict-Transport-Security"))
}

func TestSecurityHeaders_HealthIsCacheable(t *testing.T) {
	w := serveWithHeaders("production", httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Empty(t, w.Header().Get("Cache-Control"))
}
