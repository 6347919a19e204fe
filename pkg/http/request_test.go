package http_test

import (
	"net/http/httptest"
	"testing"

	pkghttp "github.com/BradenHooton/showroom/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustIPConfig(t *testing.T, proxies ...string) *pkghttp.IPConfig {
	t.Helper()
	cfg, err := pkghttp.NewIPConfig(proxies)
	require.NoError(t, err)
	return cfg
}

func TestExtractClientIP_DirectConnection_IgnoresHeaders(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/inquiries", nil)
	req.RemoteAddr = "203.0.113.10:54321"
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8")
	req.Header.Set("X-Real-IP", "192.168.1.1")

	ip := pkghttp.ExtractClientIP(req, mustIPConfig(t, "10.0.0.0/8", "127.0.0.1"))

	assert.Equal(t, "203.0.113.10", ip)
}

func TestExtractClientIP_TrustedProxy_UsesRightmostUntrustedHop(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/inquiries", nil)
	req.RemoteAddr = "10.0.0.5:54321"
	// the client prepended a fake address; the proxy appended the real one
	req.Header.Set("X-Forwarded-For", "1.1.1.1, 203.0.113.42, 10.0.0.7")

	ip := pkghttp.ExtractClientIP(req, mustIPConfig(t, "10.0.0.0/8"))

	assert.Equal(t, "203.0.113.42", ip)
}

func TestExtractClientIP_TrustedProxy_FallsBackToRealIP(t *testing.T) {
	req := httptest.NewRequest("POST", "/", nil)
	req.RemoteAddr = "10.0.0.5:54321"
	req.Header.Set("X-Forwarded-For", "not-an-ip")
	req.Header.Set("X-Real-IP", "198.51.100.9")

	ip := pkghttp.ExtractClientIP(req, mustIPConfig(t, "10.0.0.0/8"))

	assert.Equal(t, "198.51.100.9", ip)
}

func TestExtractClientIP_IPv6(t *testing.T) {
	req := httptest.NewRequest("POST", "/", nil)
	req.RemoteAddr = "[2001:db8::1]:443"
	req.Header.Set("X-Forwarded-For", "2001:db8:ffff::42")

	ip := pkghttp.ExtractClientIP(req, mustIPConfig(t, "2001:db8::/64"))

	assert.Equal(t, "2001:db8:ffff::42", ip)
}

func TestExtractClientIP_NilConfig(t *testing.T) {
	req := httptest.NewRequest("POST", "/", nil)
	req.RemoteAddr = "203.0.113.10"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")

	assert.Equal(t, "203.0.113.10", pkghttp.ExtractClientIP(req, nil))
}

func TestNewIPConfig_Invalid(t *testing.T) {
	_, err := pkghttp.NewIPConfig([]string{"10.0.0.0/33"})
	assert.Error(t, err)

	_, err = pkghttp.NewIPConfig([]string{"proxy.internal"})
	assert.Error(t, err)
}
