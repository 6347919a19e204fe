package services

import (
	"time"

	"github.com/BradenHooton/showroom/internal/models"
)

// Actor identifies the account performing an update.
type Actor struct {
	ID   string
	Role models.Role
}

// AccountChanges holds the optional fields of an account update request.
// Role is kept raw so that unsupported values go through models.NormalizeRole.
type AccountChanges struct {
	Role         *string
	Status       *models.AccountStatus
	BlockedUntil *time.Time
	AdminNotes   *string
	Reason       *string
}

// SuspensionOutcome is the result of a successful ApplyUserUpdate.
type SuspensionOutcome struct {
	Account     *models.User
	Audit       *models.SuspensionAuditEntry // nil unless a block, unblock or extend happened
	RoleCoerced bool
}

// ApplyUserUpdate authorizes an account update and computes the resulting state.
// It does not touch any store; the caller persists Account and appends Audit.
func ApplyUserUpdate(actor Actor, target *models.User, changes AccountChanges, now time.Time) (*SuspensionOutcome, error) {
	if changes.Status != nil {
		status, err := models.ParseAccountStatus(string(*changes.Status))
		if err != nil {
			return nil, err
		}
		changes.Status = &status
	}

	var requestedRole *models.Role
	coerced := false
	if changes.Role != nil {
		role, downgraded := models.NormalizeRole(*changes.Role)
		requestedRole = &role
		coerced = downgraded
	}

	if err := authorizeUpdate(actor, target, changes, requestedRole); err != nil {
		return nil, err
	}

	updated := *target
	if requestedRole != nil {
		updated.Role = *requestedRole
	}
	if changes.AdminNotes != nil {
		updated.AdminNotes = *changes.AdminNotes
	}

	action, err := applyBlockTransition(&updated, target.IsBlocked(), changes, now)
	if err != nil {
		return nil, err
	}

	outcome := &SuspensionOutcome{Account: &updated, RoleCoerced: coerced}
	if action != "" {
		outcome.Audit = &models.SuspensionAuditEntry{
			UserID:               target.ID,
			ActorID:              actor.ID,
			Action:               action,
			Reason:               changes.Reason,
			PreviousBlockedUntil: cloneTime(target.BlockedUntil),
			NewBlockedUntil:      cloneTime(updated.BlockedUntil),
			CreatedAt:            now,
		}
	}

	return outcome, nil
}

// authorizeUpdate applies the role matrix. Rules are checked in a fixed order
// and each one fails with its own error.
func authorizeUpdate(actor Actor, target *models.User, changes AccountChanges, requestedRole *models.Role) error {
	self := actor.ID == target.ID
	blocking := changes.Status != nil && *changes.Status == models.StatusBlocked

	if blocking && self {
		return models.ErrSelfBlock
	}

	if self && requestedRole != nil && *requestedRole != target.Role {
		return models.ErrSelfRoleChange
	}

	if target.Role == models.RoleAdmin && actor.Role != models.RoleAdmin {
		return models.ErrAdminModifyForbidden
	}

	if blocking && target.Role == models.RoleAdmin && (actor.Role != models.RoleAdmin || self) {
		return models.ErrAdminBlockForbidden
	}

	if requestedRole != nil && *requestedRole == models.RoleAdmin && actor.Role != models.RoleAdmin {
		return models.ErrAdminGrantForbidden
	}

	return nil
}

// applyBlockTransition mutates account and returns the audit action, or "" when
// the block state did not change.
func applyBlockTransition(account *models.User, wasBlocked bool, changes AccountChanges, now time.Time) (models.SuspensionAction, error) {
	switch {
	case changes.Status != nil && *changes.Status == models.StatusBlocked:
		if changes.BlockedUntil != nil && !changes.BlockedUntil.After(now) {
			return "", models.ErrBlockedUntilInPast
		}

		account.Status = models.StatusBlocked
		if account.BlockedAt == nil {
			account.BlockedAt = cloneTime(&now)
		}

		if !wasBlocked {
			account.BlockedUntil = cloneTime(changes.BlockedUntil)
			return models.SuspensionActionBlock, nil
		}

		if changes.BlockedUntil != nil {
			account.BlockedUntil = cloneTime(changes.BlockedUntil)
			return models.SuspensionActionExtend, nil
		}
		return "", nil

	case changes.Status != nil:
		if changes.BlockedUntil != nil {
			return "", models.ErrBlockedUntilWithoutBlock
		}

		account.Status = *changes.Status
		if wasBlocked {
			account.BlockedAt = nil
			account.BlockedUntil = nil
			return models.SuspensionActionUnblock, nil
		}
		return "", nil

	case changes.BlockedUntil != nil:
		if !wasBlocked {
			return "", models.ErrBlockedUntilWithoutBlock
		}
		if !changes.BlockedUntil.After(now) {
			return "", models.ErrBlockedUntilInPast
		}

		account.BlockedUntil = cloneTime(changes.BlockedUntil)
		return models.SuspensionActionExtend, nil
	}

	return "", nil
}

// RemainingBlockSeconds returns the whole seconds left on a timed block, floored
// at zero. It returns nil for accounts that are not blocked or are blocked
// indefinitely. The value is derived from the clock on every call.
func RemainingBlockSeconds(account *models.User, now time.Time) *int64 {
	if account == nil || !account.IsBlocked() || account.BlockedUntil == nil {
		return nil
	}

	secs := int64(account.BlockedUntil.Sub(now) / time.Second)
	if secs < 0 {
		secs = 0
	}
	return &secs
}

// IsLoginAllowed rejects every blocked account, including those whose
// blocked_until has already passed. Expired blocks are lifted only by an
// explicit unblock.
func IsLoginAllowed(account *models.User, now time.Time) error {
	if account.IsBlocked() {
		return &models.AccountBlockedError{RemainingBlockSeconds: RemainingBlockSeconds(account, now)}
	}
	return nil
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
