package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/CedricAlejo21/securelms-api/internal/models"
	"github.com/CedricAlejo21/securelms-api/internal/observability"
	"github.com/CedricAlejo21/securelms-api/internal/repository"
)

// LockoutService is the failed-attempt state machine over an identity.
// Counter updates are applied atomically at the storage layer so concurrent
// wrong-password requests against one identity never lose an increment.
type LockoutService interface {
	RecordFailure(ctx context.Context, identityID uint) (*models.Identity, error)
	RecordSuccess(ctx context.Context, identityID uint) error
	IsLocked(identity *models.Identity) bool
}

type lockoutService struct {
	repo      repository.IdentityRepository
	threshold int
	window    time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

// NewLockoutService constructs the lockout policy.
func NewLockoutService(repo repository.IdentityRepository, threshold int, window time.Duration, logger zerolog.Logger) LockoutService {
	if threshold <= 0 {
		threshold = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}

	return &lockoutService{
		repo:      repo,
		threshold: threshold,
		window:    window,
		logger:    logger.With().Str("component", "lockout_service").Logger(),
		now:       time.Now,
	}
}

// RecordFailure counts one failed attempt. An expired lock opens a fresh
// window before the increment; crossing the threshold sets the lock.
func (s *lockoutService) RecordFailure(ctx context.Context, identityID uint) (*models.Identity, error) {
	identity, err := s.repo.RecordFailure(ctx, identityID, s.threshold, s.window)
	if err != nil {
		return nil, err
	}

	if s.IsLocked(identity) && identity.FailedAttempts == s.threshold {
		observability.Lockouts().Inc()
		s.logger.Warn().
			Uint("identity_id", identity.ID).
			Time("locked_until", *identity.LockedUntil).
			Msg("identity locked after repeated failures")
	}

	return identity, nil
}

// RecordSuccess resets the counter and stamps the login time. Only called
// after a successful credential check.
func (s *lockoutService) RecordSuccess(ctx context.Context, identityID uint) error {
	return s.repo.RecordSuccess(ctx, identityID, s.now())
}

// IsLocked reports whether the lockout window is still open. Callers check
// this before any hash comparison so a locked account costs no crypto work.
func (s *lockoutService) IsLocked(identity *models.Identity) bool {
	if identity == nil || identity.LockedUntil == nil {
		return false
	}
	return identity.LockedUntil.After(s.now())
}
