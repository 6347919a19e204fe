package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/BradenHooton/showroom/internal/auth"
	"github.com/BradenHooton/showroom/internal/models"
	"github.com/BradenHooton/showroom/internal/services"
	pkghttp "github.com/BradenHooton/showroom/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, in services.LoginInput) (*services.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*services.AuthResponse, error)
	Logout(ctx context.Context, claims *models.TokenClaims, refreshToken string) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

// Request DTOs

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	TOTPCode string `json:"totp_code" validate:"omitempty,len=6,numeric"`
}

// RefreshTokenRequest represents the request body for token refresh
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutRequest optionally carries the refresh token to revoke with the access token
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// writeAuthError answers login and refresh failures. Unknown email and wrong
// password share one response.
func writeAuthError(w http.ResponseWriter, err error) {
	var blocked *models.AccountBlockedError

	switch {
	case errors.As(err, &blocked):
		pkghttp.WriteAccountBlocked(w, blocked.RemainingBlockSeconds)
	case errors.Is(err, models.ErrAccountInactive):
		pkghttp.WriteError(w, http.StatusForbidden, "account_inactive", err.Error())
	case errors.Is(err, models.ErrAccountPending):
		pkghttp.WriteError(w, http.StatusForbidden, "account_pending", err.Error())
	case errors.Is(err, models.ErrMFARequired):
		pkghttp.WriteError(w, http.StatusUnauthorized, "mfa_required", "a TOTP code is required")
	case errors.Is(err, models.ErrInvalidMFACode):
		pkghttp.WriteError(w, http.StatusUnauthorized, "invalid_mfa_code", "invalid TOTP code")
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Authentication failed")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		writeServiceError(w, err)
		return
	}

	authResp, err := h.service.Login(r.Context(), services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		TOTPCode: req.TOTPCode,
	})
	if err != nil {
		writeAuthError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, authResp)
}

// RefreshToken handles POST /auth/refresh
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		writeServiceError(w, err)
		return
	}

	authResp, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, authResp)
}

// Logout handles POST /auth/logout. The body is optional.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaims(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	var req LogoutRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			pkghttp.WriteBadRequest(w, "Invalid request body")
			return
		}
	}

	if err := h.service.Logout(r.Context(), claims, req.RefreshToken); err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
