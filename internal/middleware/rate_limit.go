package middleware

import (
	"net/http"
	"time"

	"github.com/BradenHooton/showroom/internal/config"
	pkghttp "github.com/BradenHooton/showroom/pkg/http"
	"github.com/go-chi/httprate"
)

// Window is one sliding-window limit.
type Window struct {
	Requests int
	Length   time.Duration
}

// SubmissionWindows returns the short and long windows applied to the public
// submission routes.
func SubmissionWindows(cfg config.RateLimitConfig) []Window {
	return []Window{
		{Requests: cfg.SubmissionShortLimit, Length: cfg.SubmissionShortWindow},
		{Requests: cfg.SubmissionLongLimit, Length: cfg.SubmissionLongWindow},
	}
}

// LoginWindow returns the login limit (5 per minute by default).
func LoginWindow(cfg config.RateLimitConfig) Window {
	return Window{Requests: cfg.LoginLimit, Length: cfg.LoginWindow}
}

// RateLimitByIP creates a middleware that enforces every window independently
// per client IP. A request rejected by any window gets 429 before reaching next.
// Each call builds fresh limiter state.
func RateLimitByIP(ipConfig *pkghttp.IPConfig, windows ...Window) func(next http.Handler) http.Handler {
	keyByClientIP := func(r *http.Request) (string, error) {
		return pkghttp.ExtractClientIP(r, ipConfig), nil
	}

	limiters := make([]func(http.Handler) http.Handler, 0, len(windows))
	for _, win := range windows {
		if win.Requests <= 0 || win.Length <= 0 {
			continue
		}
		limiters = append(limiters, httprate.Limit(
			win.Requests,
			win.Length,
			httprate.WithKeyFuncs(keyByClientIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				pkghttp.WriteTooManyRequests(w, "Rate limit exceeded. Please try again later.")
			}),
		))
	}

	return func(next http.Handler) http.Handler {
		h := next
		for i := len(limiters) - 1; i >= 0; i-- {
			h = limiters[i](h)
		}
		return h
	}
}
