package models

import "time"

// SuspensionAction is the closed set of audit actions persisted in
// suspension_audit_entries.action.
type SuspensionAction string

const (
	SuspensionActionBlock   SuspensionAction = "block"
	SuspensionActionUnblock SuspensionAction = "unblock"
	SuspensionActionExtend  SuspensionAction = "extend"
)

// SuspensionAuditEntry is an append-only record of one block, unblock or extend.
type SuspensionAuditEntry struct {
	ID                   string           `db:"id"`
	UserID               string           `db:"user_id"`
	ActorID              string           `db:"actor_id"`
	Action               SuspensionAction `db:"action"`
	Reason               *string          `db:"reason"`
	PreviousBlockedUntil *time.Time       `db:"previous_blocked_until"`
	NewBlockedUntil      *time.Time       `db:"new_blocked_until"`
	CreatedAt            time.Time        `db:"created_at"`
}
