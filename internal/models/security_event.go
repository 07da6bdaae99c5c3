package models

import (
	"time"

	"gorm.io/datatypes"
)

// SecurityAction enumerates the canonical audit action taxonomy. Every
// recorder uses this set; there are no module-local synonyms.
type SecurityAction string

const (
	ActionLoginSuccess         SecurityAction = "LOGIN_SUCCESS"
	ActionLoginFailed          SecurityAction = "LOGIN_FAILED"
	ActionAccountLocked        SecurityAction = "ACCOUNT_LOCKED"
	ActionTokenRejected        SecurityAction = "TOKEN_REJECTED"
	ActionPasswordChanged      SecurityAction = "PASSWORD_CHANGED"
	ActionPasswordChangeFailed SecurityAction = "PASSWORD_CHANGE_FAILED"
	ActionUnauthorizedAccess   SecurityAction = "UNAUTHORIZED_ACCESS_ATTEMPT"
	ActionUserRegistered       SecurityAction = "USER_REGISTERED"
	ActionRoleChanged          SecurityAction = "ROLE_CHANGED"
	ActionAccountDeactivated   SecurityAction = "ACCOUNT_DEACTIVATED"
	ActionAccountReactivated   SecurityAction = "ACCOUNT_REACTIVATED"
	ActionAuditExported        SecurityAction = "AUDIT_EXPORTED"
)

// KnownSecurityAction reports whether the action belongs to the canonical set.
func KnownSecurityAction(action SecurityAction) bool {
	switch action {
	case ActionLoginSuccess, ActionLoginFailed, ActionAccountLocked,
		ActionTokenRejected, ActionPasswordChanged, ActionPasswordChangeFailed,
		ActionUnauthorizedAccess, ActionUserRegistered, ActionRoleChanged,
		ActionAccountDeactivated, ActionAccountReactivated, ActionAuditExported:
		return true
	default:
		return false
	}
}

// SecurityEvent is one immutable entry in the security audit trail.
// ActorID is nil for failures that happen before authentication resolves
// an identity. The repository exposes no update or delete for this model.
type SecurityEvent struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	ActorID       *uint             `gorm:"index" json:"actor_id"`
	Action        SecurityAction    `gorm:"size:64;index;not null" json:"action"`
	ResourceType  string            `gorm:"size:64;not null" json:"resource_type"`
	ResourceID    *uint             `json:"resource_id,omitempty"`
	Details       datatypes.JSONMap `gorm:"type:json" json:"details"`
	SourceAddress string            `gorm:"size:64" json:"source_address"`
	UserAgent     string            `gorm:"size:255" json:"user_agent"`
	Success       bool              `gorm:"not null" json:"success"`
	ErrorDetail   string            `gorm:"size:255" json:"error_detail,omitempty"`
	CreatedAt     time.Time         `gorm:"index" json:"created_at"`
}
