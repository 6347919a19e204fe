package handlers

import (
	"errors"
	"net/http"

	"github.com/BradenHooton/showroom/internal/models"
	pkgauth "github.com/BradenHooton/showroom/pkg/auth"
	pkghttp "github.com/BradenHooton/showroom/pkg/http"
)

// writeServiceError maps service errors onto the API error body. Errors with
// no mapping become 500 without leaking their text.
func writeServiceError(w http.ResponseWriter, err error) {
	var authErr *models.AuthorizationError
	var fieldErr *models.FieldError
	var blocked *models.AccountBlockedError

	switch {
	case errors.As(err, &authErr):
		pkghttp.WriteError(w, http.StatusForbidden, authErr.Code, authErr.Message)
	case errors.As(err, &blocked):
		pkghttp.WriteAccountBlocked(w, blocked.RemainingBlockSeconds)
	case errors.As(err, &fieldErr):
		pkghttp.WriteFieldError(w, fieldErr.Field, fieldErr.Message)
	case errors.Is(err, pkgauth.ErrWeakPassword):
		pkghttp.WriteFieldError(w, "password", err.Error())
	case errors.Is(err, models.ErrInvalidStatus):
		pkghttp.WriteFieldError(w, "status", err.Error())
	case errors.Is(err, models.ErrBlockedUntilInPast), errors.Is(err, models.ErrBlockedUntilWithoutBlock):
		pkghttp.WriteFieldError(w, "blocked_until", err.Error())
	case errors.Is(err, models.ErrInvalidStatusTransition):
		pkghttp.WriteError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, models.ErrSelfDelete):
		pkghttp.WriteError(w, http.StatusForbidden, "self_delete_forbidden", err.Error())
	case errors.Is(err, models.ErrSpamDetected):
		pkghttp.WriteBadRequest(w, err.Error())
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "resource not found")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "resource already exists")
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "authentication failed")
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, "forbidden")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "invalid request")
	default:
		pkghttp.WriteInternalError(w, "internal server error")
	}
}
