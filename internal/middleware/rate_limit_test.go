package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/showroom/internal/config"
	pkghttp "github.com/BradenHooton/showroom/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
}

func submissionLimits() config.RateLimitConfig {
	return config.RateLimitConfig{
		SubmissionShortLimit:  3,
		SubmissionShortWindow: 15 * time.Minute,
		SubmissionLongLimit:   10,
		SubmissionLongWindow:  time.Hour,
		LoginLimit:            5,
		LoginWindow:           time.Minute,
	}
}

func post(h http.Handler, remoteAddr string) int {
	req := httptest.NewRequest(http.MethodPost, "/api/inquiries", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimitByIP_ShortWindow(t *testing.T) {
	h := RateLimitByIP(nil, SubmissionWindows(submissionLimits())...)(okHandler())

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusCreated, post(h, "198.51.100.1:1000"), "request %d", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, post(h, "198.51.100.1:1000"))

	// other clients keep their own budget
	assert.Equal(t, http.StatusCreated, post(h, "198.51.100.2:1000"))
}

func TestRateLimitByIP_LongWindowAppliesIndependently(t *testing.T) {
	h := RateLimitByIP(nil,
		Window{Requests: 100, Length: time.Minute},
		Window{Requests: 2, Length: time.Hour},
	)(okHandler())

	assert.Equal(t, http.StatusCreated, post(h, "198.51.100.1:1000"))
	assert.Equal(t, http.StatusCreated, post(h, "198.51.100.1:1000"))
	assert.Equal(t, http.StatusTooManyRequests, post(h, "198.51.100.1:1000"))
}

func TestRateLimitByIP_KeysOnForwardedClientBehindTrustedProxy(t *testing.T) {
	ipConfig, err := pkghttp.NewIPConfig([]string{"10.0.0.0/8"})
	require.NoError(t, err)
	h := RateLimitByIP(ipConfig, Window{Requests: 1, Length: time.Minute})(okHandler())

	send := func(client string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/inquiries", nil)
		req.RemoteAddr = "10.0.0.5:443"
		req.Header.Set("X-Forwarded-For", client)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusCreated, send("203.0.113.1"))
	assert.Equal(t, http.StatusCreated, send("203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.1"))
}

func TestRateLimitByIP_RejectionBody(t *testing.T) {
	h := RateLimitByIP(nil, LoginWindow(config.RateLimitConfig{LoginLimit: 1, LoginWindow: time.Minute}))(okHandler())
	post(h, "198.51.100.1:1000")

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "198.51.100.1:1000"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"rate_limit_exceeded"`)
}

func TestRateLimitByIP_SeparateInstancesDoNotShareState(t *testing.T) {
	first := RateLimitByIP(nil, Window{Requests: 1, Length: time.Minute})(okHandler())
	second := RateLimitByIP(nil, Window{Requests: 1, Length: time.Minute})(okHandler())

	assert.Equal(t, http.StatusCreated, post(first, "198.51.100.1:1000"))
	assert.Equal(t, http.StatusCreated, post(second, "198.51.100.1:1000"))
}
