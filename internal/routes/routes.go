package routes

import (
	"log/slog"

	"github.com/BradenHooton/showroom/internal/auth"
	"github.com/BradenHooton/showroom/internal/config"
	"github.com/BradenHooton/showroom/internal/handlers"
	"github.com/BradenHooton/showroom/internal/middleware"
	"github.com/BradenHooton/showroom/internal/models"
	"github.com/BradenHooton/showroom/internal/services"
	pkghttp "github.com/BradenHooton/showroom/pkg/http"
	"github.com/go-chi/chi/v5"
)

// Handlers groups the HTTP handlers mounted by RegisterRoutes.
type Handlers struct {
	Users       *handlers.UserHandler
	Submissions *handlers.SubmissionHandler
	Auth        *handlers.AuthHandler
	MFA         *handlers.MFAHandler
	Admin       *handlers.AdminHandler
	Health      *handlers.HealthHandler
}

// Security groups what the protected routes need to authenticate a request.
type Security struct {
	Tokens      *auth.TokenManager
	Revocations auth.TokenRevocationChecker
	Accounts    auth.AccountLoader
	IPConfig    *pkghttp.IPConfig
	RateLimits  config.RateLimitConfig
	Logger      *slog.Logger
}

// RegisterRoutes registers all application routes. Each call builds its own
// limiter state.
func RegisterRoutes(router chi.Router, h Handlers, sec Security) {
	router.Get("/health", h.Health.Check)

	// Public marketing-site forms
	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(sec.IPConfig, middleware.SubmissionWindows(sec.RateLimits)...))
		h.Submissions.RegisterPublicRoutes(r)
	})

	authenticate := auth.Authenticate(sec.Tokens, sec.Revocations, sec.Logger)
	activeAccount := auth.RequireActiveAccount(sec.Accounts, services.IsLoginAllowed)

	router.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(sec.IPConfig, middleware.LoginWindow(sec.RateLimits)))
			r.Post("/login", h.Auth.Login)
			r.Post("/refresh", h.Auth.RefreshToken)
		})

		// logout stays available to blocked accounts
		r.With(authenticate).Post("/logout", h.Auth.Logout)

		r.Group(func(r chi.Router) {
			r.Use(authenticate, activeAccount)
			r.Post("/mfa/setup", h.MFA.Setup)
			r.Post("/mfa/enable", h.MFA.Enable)
		})
	})

	router.Route("/admin", func(r chi.Router) {
		r.Use(authenticate, activeAccount, auth.RequireRole(models.RoleAdmin))
		h.Users.RegisterRoutes(r)
		h.Submissions.RegisterAdminRoutes(r)
		r.Get("/dashboard/stats", h.Admin.GetDashboardStats)
	})
}
