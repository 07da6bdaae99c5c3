package service

import "errors"

// Expected security outcomes. Handlers branch on these with errors.Is and
// map them to the standard status codes; anything else coming out of the
// service layer is an infrastructure fault and surfaces as a generic 500.
var (
	// ErrInvalidCredentials covers both unknown identifiers and wrong
	// passwords so that responses reveal neither.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountLocked is returned while an identity's lockout window is open.
	ErrAccountLocked = errors.New("account locked")

	// ErrTokenInvalid covers malformed, expired, badly signed and stale tokens.
	ErrTokenInvalid = errors.New("invalid token")

	// ErrAccessDenied is the authorization engine's only failure outcome.
	ErrAccessDenied = errors.New("access denied")

	// ErrPasswordReused rejects rotation to the current password or any
	// password retained in the history ring.
	ErrPasswordReused = errors.New("password was used recently")

	// ErrPasswordTooRecent enforces the minimum password age between rotations.
	ErrPasswordTooRecent = errors.New("password changed too recently")

	// ErrDuplicateIdentity rejects registration with a taken username or email.
	ErrDuplicateIdentity = errors.New("username or email already in use")

	// ErrIdentityNotFound is returned by admin lookups for unknown identities.
	ErrIdentityNotFound = errors.New("identity not found")
)
