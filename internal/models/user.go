package models

import (
	"strings"
	"time"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// AccountStatus is the closed set of account states persisted in users.status.
type AccountStatus string

const (
	StatusActive   AccountStatus = "active"
	StatusInactive AccountStatus = "inactive"
	StatusPending  AccountStatus = "pending"
	StatusBlocked  AccountStatus = "blocked"
)

type User struct {
	ID                string
	Email             string
	PasswordHash      string
	Name              string
	TokenKey          string // Per-user secret mixed into the token signing key
	Role              Role
	Status            AccountStatus
	BlockedAt         *time.Time
	BlockedUntil      *time.Time // nil while blocked means an indefinite block
	AdminNotes        string
	MFAEnabled        bool
	MFASecret         []byte // AES-GCM ciphertext of the TOTP secret
	MFANonce          []byte
	PasswordChangedAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsBlocked reports whether the account is currently suspended.
func (u *User) IsBlocked() bool {
	return u.Status == StatusBlocked
}

// NormalizeRole maps a requested role onto the supported set.
// Values other than "admin" and "user" (for example "moderator") are downgraded
// to RoleUser. The second return value is true when a downgrade happened.
func NormalizeRole(raw string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin, false
	case RoleUser:
		return RoleUser, false
	default:
		return RoleUser, true
	}
}

// ParseAccountStatus validates a status string.
func ParseAccountStatus(raw string) (AccountStatus, error) {
	switch s := AccountStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusActive, StatusInactive, StatusPending, StatusBlocked:
		return s, nil
	default:
		return "", ErrInvalidStatus
	}
}
