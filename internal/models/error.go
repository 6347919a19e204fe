package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Account state errors
	ErrAccountInactive = errors.New("account is inactive")
	ErrAccountPending  = errors.New("account is pending activation")
	ErrMFARequired     = errors.New("mfa code required")
	ErrInvalidMFACode  = errors.New("invalid mfa code")

	// Account update validation
	ErrInvalidStatus            = errors.New("invalid account status")
	ErrBlockedUntilInPast       = errors.New("blocked_until must be in the future")
	ErrBlockedUntilWithoutBlock = errors.New("blocked_until requires a blocked account")
	ErrSelfDelete               = errors.New("cannot delete your own account")

	// Submission errors
	ErrSpamDetected            = errors.New("submission rejected")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

// AuthorizationError is a terminal rejection of an account update.
// Every instance matches ErrForbidden under errors.Is.
type AuthorizationError struct {
	Code    string
	Message string
}

func (e *AuthorizationError) Error() string {
	return e.Message
}

func (e *AuthorizationError) Is(target error) bool {
	return target == ErrForbidden
}

// Authorization rejections of the account update matrix, in evaluation order.
var (
	ErrSelfBlock            = &AuthorizationError{Code: "self_block_forbidden", Message: "you cannot block your own account"}
	ErrSelfRoleChange       = &AuthorizationError{Code: "self_role_change_forbidden", Message: "you cannot change your own role"}
	ErrAdminModifyForbidden = &AuthorizationError{Code: "insufficient_privilege", Message: "insufficient privilege to modify an admin account"}
	ErrAdminBlockForbidden  = &AuthorizationError{Code: "admin_block_forbidden", Message: "only another admin may block an admin"}
	ErrAdminGrantForbidden  = &AuthorizationError{Code: "admin_grant_forbidden", Message: "only admins may grant the admin role"}
)

// AccountBlockedError is returned by the login gate for suspended accounts.
type AccountBlockedError struct {
	RemainingBlockSeconds *int64
}

func (e *AccountBlockedError) Error() string {
	if e.RemainingBlockSeconds == nil {
		return "account blocked"
	}
	return fmt.Sprintf("account blocked (%ds remaining)", *e.RemainingBlockSeconds)
}

func (e *AccountBlockedError) Is(target error) bool {
	return target == ErrForbidden
}

// FieldError is a validation failure tied to a single form field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *FieldError) Is(target error) bool {
	return target == ErrBadRequest
}
