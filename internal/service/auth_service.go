package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/CedricAlejo21/securelms-api/internal/dto"
	"github.com/CedricAlejo21/securelms-api/internal/models"
	"github.com/CedricAlejo21/securelms-api/internal/observability"
	"github.com/CedricAlejo21/securelms-api/internal/repository"
)

// RequestMeta carries the request-scoped transport details that end up on
// audit records. It is passed explicitly into each call; there is no shared
// mutable request state.
type RequestMeta struct {
	SourceAddress string
	UserAgent     string
}

// AuthService orchestrates the login and password-rotation flows across the
// credential store, lockout policy, token service and audit trail. It is the
// layer that owns the one-security-event-per-call contract.
type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest, meta RequestMeta) (dto.LoginResponse, error)
	Register(ctx context.Context, req dto.RegisterRequest, meta RequestMeta) (dto.IdentitySummary, error)
	ChangePassword(ctx context.Context, identity *models.Identity, req dto.ChangePasswordRequest, meta RequestMeta) error
}

type authService struct {
	identities  repository.IdentityRepository
	credentials CredentialService
	lockout     LockoutService
	tokens      TokenService
	recorder    SecurityRecorder
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewAuthService constructs the authentication orchestrator.
func NewAuthService(
	identities repository.IdentityRepository,
	credentials CredentialService,
	lockout LockoutService,
	tokens TokenService,
	recorder SecurityRecorder,
	validate *validator.Validate,
	logger zerolog.Logger,
) AuthService {
	return &authService{
		identities:  identities,
		credentials: credentials,
		lockout:     lockout,
		tokens:      tokens,
		recorder:    recorder,
		validator:   validate,
		logger:      logger.With().Str("component", "auth_service").Logger(),
	}
}

// Login authenticates an identifier/password pair. The lockout check runs
// before the hash comparison, so a locked account is rejected without any
// crypto work and without touching the failure counter. Exactly one security
// event is recorded per call.
func (s *authService) Login(ctx context.Context, req dto.LoginRequest, meta RequestMeta) (dto.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.LoginResponse{}, err
	}

	identity, err := s.identities.FindByIdentifier(ctx, req.Identifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.LoginAttempts().WithLabelValues("failure").Inc()
			s.recorder.Record(ctx, SecurityEventEntry{
				Action:        models.ActionLoginFailed,
				ResourceType:  "identity",
				Details:       map[string]interface{}{"reason": "unknown_identifier"},
				SourceAddress: meta.SourceAddress,
				UserAgent:     meta.UserAgent,
				Success:       false,
				ErrorDetail:   "invalid credentials",
			})
			return dto.LoginResponse{}, ErrInvalidCredentials
		}
		return dto.LoginResponse{}, err
	}

	actorID := identity.ID

	if !identity.Active {
		observability.LoginAttempts().WithLabelValues("failure").Inc()
		s.recorder.Record(ctx, SecurityEventEntry{
			ActorID:       &actorID,
			Action:        models.ActionLoginFailed,
			ResourceType:  "identity",
			ResourceID:    &actorID,
			Details:       map[string]interface{}{"reason": "inactive_account"},
			SourceAddress: meta.SourceAddress,
			UserAgent:     meta.UserAgent,
			Success:       false,
			ErrorDetail:   "invalid credentials",
		})
		return dto.LoginResponse{}, ErrInvalidCredentials
	}

	if s.lockout.IsLocked(identity) {
		observability.LoginAttempts().WithLabelValues("locked").Inc()
		s.recorder.Record(ctx, SecurityEventEntry{
			ActorID:       &actorID,
			Action:        models.ActionAccountLocked,
			ResourceType:  "identity",
			ResourceID:    &actorID,
			Details:       map[string]interface{}{"reason": "AccountLocked"},
			SourceAddress: meta.SourceAddress,
			UserAgent:     meta.UserAgent,
			Success:       false,
			ErrorDetail:   "account locked",
		})
		return dto.LoginResponse{}, ErrAccountLocked
	}

	if err := s.credentials.ComparePassword(identity, req.Password); err != nil {
		if !errors.Is(err, ErrInvalidCredentials) {
			return dto.LoginResponse{}, err
		}

		updated, recordErr := s.lockout.RecordFailure(ctx, identity.ID)
		if recordErr != nil {
			return dto.LoginResponse{}, recordErr
		}

		observability.LoginAttempts().WithLabelValues("failure").Inc()

		entry := SecurityEventEntry{
			ActorID:       &actorID,
			Action:        models.ActionLoginFailed,
			ResourceType:  "identity",
			ResourceID:    &actorID,
			Details:       map[string]interface{}{"reason": "invalid_credentials", "failed_attempts": updated.FailedAttempts},
			SourceAddress: meta.SourceAddress,
			UserAgent:     meta.UserAgent,
			Success:       false,
			ErrorDetail:   "invalid credentials",
		}
		if s.lockout.IsLocked(updated) {
			entry.Action = models.ActionAccountLocked
			entry.Details["reason"] = "AccountLocked"
		}
		s.recorder.Record(ctx, entry)

		// The locking attempt itself still answers with the generic
		// credential failure; only subsequent requests see the lock.
		return dto.LoginResponse{}, ErrInvalidCredentials
	}

	if err := s.lockout.RecordSuccess(ctx, identity.ID); err != nil {
		return dto.LoginResponse{}, err
	}

	token, _, err := s.tokens.Issue(identity)
	if err != nil {
		return dto.LoginResponse{}, err
	}

	observability.LoginAttempts().WithLabelValues("success").Inc()
	s.recorder.Record(ctx, SecurityEventEntry{
		ActorID:       &actorID,
		Action:        models.ActionLoginSuccess,
		ResourceType:  "identity",
		ResourceID:    &actorID,
		SourceAddress: meta.SourceAddress,
		UserAgent:     meta.UserAgent,
		Success:       true,
	})

	return dto.LoginResponse{
		Token: token,
		User:  dto.NewIdentitySummary(*identity),
	}, nil
}

func (s *authService) Register(ctx context.Context, req dto.RegisterRequest, meta RequestMeta) (dto.IdentitySummary, error) {
	identity, err := s.credentials.Register(ctx, req)
	if err != nil {
		return dto.IdentitySummary{}, err
	}

	actorID := identity.ID
	s.recorder.Record(ctx, SecurityEventEntry{
		ActorID:       &actorID,
		Action:        models.ActionUserRegistered,
		ResourceType:  "identity",
		ResourceID:    &actorID,
		Details:       map[string]interface{}{"role": string(identity.Role)},
		SourceAddress: meta.SourceAddress,
		UserAgent:     meta.UserAgent,
		Success:       true,
	})

	return dto.NewIdentitySummary(*identity), nil
}

// ChangePassword rotates the caller's password and records exactly one
// security event for the attempt, success or failure.
func (s *authService) ChangePassword(ctx context.Context, identity *models.Identity, req dto.ChangePasswordRequest, meta RequestMeta) error {
	actorID := identity.ID

	if err := s.validator.Struct(req); err != nil {
		s.recordPasswordChange(ctx, actorID, meta, false, "validation_failed")
		return err
	}

	if err := s.credentials.ChangePassword(ctx, identity, req.CurrentPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			s.recordPasswordChange(ctx, actorID, meta, false, "invalid_current_password")
		case errors.Is(err, ErrPasswordReused):
			s.recordPasswordChange(ctx, actorID, meta, false, "password_reused")
		case errors.Is(err, ErrPasswordTooRecent):
			s.recordPasswordChange(ctx, actorID, meta, false, "password_too_recent")
		}
		return err
	}

	s.recordPasswordChange(ctx, actorID, meta, true, "")
	return nil
}

func (s *authService) recordPasswordChange(ctx context.Context, actorID uint, meta RequestMeta, success bool, reason string) {
	entry := SecurityEventEntry{
		ActorID:       &actorID,
		Action:        models.ActionPasswordChanged,
		ResourceType:  "identity",
		ResourceID:    &actorID,
		SourceAddress: meta.SourceAddress,
		UserAgent:     meta.UserAgent,
		Success:       success,
	}
	if !success {
		entry.Action = models.ActionPasswordChangeFailed
		entry.Details = map[string]interface{}{"reason": reason}
		entry.ErrorDetail = reason
	}
	s.recorder.Record(ctx, entry)
}
