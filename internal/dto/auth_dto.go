package dto

import (
	"time"

	"github.com/CedricAlejo21/securelms-api/internal/models"
)

// RegisterRequest captures a self-service registration payload.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32,alphanum"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=12,max=128"`
	Role     string `json:"role" validate:"omitempty,oneof=student instructor"`
}

// LoginRequest carries login credentials. Identifier is a username or email.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// ChangePasswordRequest carries a password rotation payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=12,max=128"`
}

// IdentitySummary is the public shape of an identity; it never carries
// credential or lockout fields.
type IdentitySummary struct {
	ID        uint       `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	Active    bool       `json:"active"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// LoginResponse is returned on successful authentication.
type LoginResponse struct {
	Token string          `json:"token"`
	User  IdentitySummary `json:"user"`
}

// IdentityListResponse wraps a paginated admin identity listing.
type IdentityListResponse struct {
	Items      []IdentitySummary `json:"items"`
	Pagination PaginationMeta    `json:"pagination"`
}

// IdentityListRequest defines filters for the admin identity listing.
type IdentityListRequest struct {
	Page     int
	PageSize int
	Role     string
	Active   *bool
	Search   string
}

// RoleUpdateRequest changes an identity's role through the admin surface.
type RoleUpdateRequest struct {
	Role string `json:"role" validate:"required,oneof=admin instructor student"`
}

// StatusUpdateRequest flips an identity's active flag through the admin surface.
type StatusUpdateRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// NewIdentitySummary converts an identity model into its public summary.
func NewIdentitySummary(identity models.Identity) IdentitySummary {
	return IdentitySummary{
		ID:        identity.ID,
		Username:  identity.Username,
		Email:     identity.Email,
		Role:      string(identity.Role),
		Active:    identity.Active,
		LastLogin: identity.LastLogin,
		CreatedAt: identity.CreatedAt,
	}
}
