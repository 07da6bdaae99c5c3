package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Role enumerates the closed set of roles known to the authorization engine.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleInstructor Role = "instructor"
	RoleStudent    Role = "student"
)

// ParseRole normalizes a raw role string into the closed enumeration.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleInstructor:
		return RoleInstructor, true
	case RoleStudent:
		return RoleStudent, true
	default:
		return "", false
	}
}

// PasswordHistoryDepth caps how many prior hashes an identity retains.
const PasswordHistoryDepth = 5

// Identity is the security record for a user: credentials, role and lockout state.
type Identity struct {
	ID                uint                        `gorm:"primaryKey" json:"id"`
	Username          string                      `gorm:"size:32;uniqueIndex;not null" json:"username"`
	Email             string                      `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash      string                      `gorm:"size:255;not null" json:"-"`
	Role              Role                        `gorm:"size:16;not null" json:"role"`
	Active            bool                        `gorm:"not null;default:true" json:"active"`
	FailedAttempts    int                         `gorm:"not null;default:0" json:"-"`
	LockedUntil       *time.Time                  `json:"-"`
	PasswordChangedAt *time.Time                  `json:"-"`
	PasswordHistory   datatypes.JSONSlice[string] `gorm:"type:json" json:"-"`
	LastLogin         *time.Time                  `json:"last_login,omitempty"`
	CreatedAt         time.Time                   `json:"created_at"`
	UpdatedAt         time.Time                   `json:"updated_at"`
}

// PushPasswordHistory appends an outgoing hash to the history ring,
// evicting the oldest entry once the depth cap is reached.
func (i *Identity) PushPasswordHistory(hash string) {
	history := append([]string(i.PasswordHistory), hash)
	if len(history) > PasswordHistoryDepth {
		history = history[len(history)-PasswordHistoryDepth:]
	}
	i.PasswordHistory = datatypes.NewJSONSlice(history)
}
