package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/BradenHooton/showroom/internal/models"
	pkghttp "github.com/BradenHooton/showroom/pkg/http"
)

type contextKey string

const (
	claimsContextKey  contextKey = "claims"
	accountContextKey contextKey = "account"
)

// TokenRevocationChecker reports whether a JTI was revoked by logout.
type TokenRevocationChecker interface {
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// AccountLoader fetches the current state of the token's account.
type AccountLoader interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// AccountGate decides whether an account may act. It returns
// *models.AccountBlockedError for suspended accounts.
type AccountGate func(account *models.User, now time.Time) error

// Authenticate validates the bearer access token, checks it against the
// revocation list and stores the claims in the request context. Revocation
// lookups that fail deny the request.
func Authenticate(tm *TokenManager, revocations TokenRevocationChecker, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, tokenString, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
				pkghttp.WriteUnauthorized(w, "missing or malformed authorization header")
				return
			}

			claims, err := tm.ValidateToken(r.Context(), tokenString)
			if err != nil {
				pkghttp.WriteUnauthorized(w, "invalid or expired token")
				return
			}

			if claims.Type != models.TokenTypeAccess {
				pkghttp.WriteUnauthorized(w, "refresh tokens cannot be used for API access")
				return
			}

			if revocations != nil {
				revoked, err := revocations.IsTokenRevoked(r.Context(), claims.ID)
				if err != nil {
					logger.ErrorContext(r.Context(), "token revocation check failed", slog.Any("error", err))
					pkghttp.WriteServiceUnavailable(w, "unable to verify token status")
					return
				}
				if revoked {
					pkghttp.WriteUnauthorized(w, "token has been revoked")
					return
				}
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireActiveAccount loads the authenticated account and refuses blocked,
// inactive and pending accounts even when their token is still valid.
// Must run after Authenticate.
func RequireActiveAccount(accounts AccountLoader, gate AccountGate) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r)
			if claims == nil {
				pkghttp.WriteUnauthorized(w, "unauthorized")
				return
			}

			account, err := accounts.GetByID(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					pkghttp.WriteUnauthorized(w, "account not found")
					return
				}
				pkghttp.WriteInternalError(w, "failed to load account")
				return
			}

			if err := gate(account, time.Now()); err != nil {
				var blocked *models.AccountBlockedError
				if errors.As(err, &blocked) {
					pkghttp.WriteAccountBlocked(w, blocked.RemainingBlockSeconds)
					return
				}
				pkghttp.WriteForbidden(w, "account is not active")
				return
			}

			switch account.Status {
			case models.StatusInactive:
				pkghttp.WriteError(w, http.StatusForbidden, "account_inactive", models.ErrAccountInactive.Error())
				return
			case models.StatusPending:
				pkghttp.WriteError(w, http.StatusForbidden, "account_pending", models.ErrAccountPending.Error())
				return
			}

			ctx := context.WithValue(r.Context(), accountContextKey, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole checks the role of the account loaded by RequireActiveAccount.
func RequireRole(role models.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account := GetAccount(r)
			if account == nil {
				pkghttp.WriteUnauthorized(w, "unauthorized")
				return
			}

			if account.Role != role {
				pkghttp.WriteForbidden(w, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func GetClaims(r *http.Request) *models.TokenClaims {
	claims, _ := r.Context().Value(claimsContextKey).(*models.TokenClaims)
	return claims
}

func GetAccount(r *http.Request) *models.User {
	account, _ := r.Context().Value(accountContextKey).(*models.User)
	return account
}

// WithClaims and WithAccount seed a context the way the middleware does.
// Handler tests use them.
func WithClaims(ctx context.Context, claims *models.TokenClaims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

func WithAccount(ctx context.Context, account *models.User) context.Context {
	return context.WithValue(ctx, accountContextKey, account)
}
