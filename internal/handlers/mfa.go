package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/showroom/internal/auth"
	"github.com/BradenHooton/showroom/internal/models"
	"github.com/BradenHooton/showroom/internal/services"
	pkghttp "github.com/BradenHooton/showroom/pkg/http"
)

// MFAServiceInterface covers TOTP enrolment
type MFAServiceInterface interface {
	Setup(ctx context.Context, account *models.User) (*services.MFASetup, error)
	Enable(ctx context.Context, account *models.User, code string) error
}

// MFAHandler handles MFA-related HTTP requests
type MFAHandler struct {
	service MFAServiceInterface
	logger  *slog.Logger
}

// NewMFAHandler creates a new MFA handler
func NewMFAHandler(service MFAServiceInterface, logger *slog.Logger) *MFAHandler {
	return &MFAHandler{
		service: service,
		logger:  logger,
	}
}

// EnableMFARequest confirms enrolment with a code from the authenticator app
type EnableMFARequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

func writeMFAError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrMFAUnavailable):
		pkghttp.WriteServiceUnavailable(w, "MFA is not available")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "MFA is already enabled")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "MFA setup has not been started")
	case errors.Is(err, models.ErrInvalidMFACode), errors.Is(err, models.ErrMFARequired):
		pkghttp.WriteError(w, http.StatusUnauthorized, "invalid_mfa_code", "invalid TOTP code")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

// Setup handles POST /auth/mfa/setup
func (h *MFAHandler) Setup(w http.ResponseWriter, r *http.Request) {
	account := auth.GetAccount(r)
	if account == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	setup, err := h.service.Setup(r.Context(), account)
	if err != nil {
		h.logger.WarnContext(r.Context(), "mfa setup failed", slog.String("user_id", account.ID), slog.Any("error", err))
		writeMFAError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, setup)
}

// Enable handles POST /auth/mfa/enable
func (h *MFAHandler) Enable(w http.ResponseWriter, r *http.Request) {
	account := auth.GetAccount(r)
	if account == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	var req EnableMFARequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request")
		return
	}
	if err := ValidateRequest(req); err != nil {
		writeServiceError(w, err)
		return
	}

	if err := h.service.Enable(r.Context(), account, req.Code); err != nil {
		h.logger.WarnContext(r.Context(), "mfa enable failed", slog.String("user_id", account.ID), slog.Any("error", err))
		writeMFAError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]bool{"mfa_enabled": true})
}
