package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/CedricAlejo21/securelms-api/internal/dto"
	"github.com/CedricAlejo21/securelms-api/internal/models"
	"github.com/CedricAlejo21/securelms-api/internal/repository"
)

// CredentialService owns password verification, registration and rotation.
// It records no audit events itself: the login/change flows that compose it
// with the lockout policy hold that contract, which keeps every call to one
// event and avoids double logging.
type CredentialService interface {
	Verify(ctx context.Context, identifier, password string) (*models.Identity, error)
	ComparePassword(identity *models.Identity, password string) error
	Register(ctx context.Context, req dto.RegisterRequest) (*models.Identity, error)
	ChangePassword(ctx context.Context, identity *models.Identity, current, next string) error
}

type credentialService struct {
	repo           repository.IdentityRepository
	validator      *validator.Validate
	bcryptCost     int
	minPasswordAge time.Duration
	logger         zerolog.Logger
	now            func() time.Time
}

// NewCredentialService constructs the credential service.
func NewCredentialService(repo repository.IdentityRepository, validate *validator.Validate, bcryptCost int, minPasswordAge time.Duration, logger zerolog.Logger) CredentialService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}

	return &credentialService{
		repo:           repo,
		validator:      validate,
		bcryptCost:     bcryptCost,
		minPasswordAge: minPasswordAge,
		logger:         logger.With().Str("component", "credential_service").Logger(),
		now:            time.Now,
	}
}

// Verify compares the plaintext against the stored hash for the identity
// matching the username or email. Unknown identifier and wrong password are
// indistinguishable to the caller.
func (s *credentialService) Verify(ctx context.Context, identifier, password string) (*models.Identity, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	identity, err := s.repo.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := s.ComparePassword(identity, password); err != nil {
		return identity, ErrInvalidCredentials
	}

	return identity, nil
}

// ComparePassword runs the slow hash comparison alone, for flows that must
// order a lockout check ahead of the expensive compare.
func (s *credentialService) ComparePassword(identity *models.Identity, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

func (s *credentialService) Register(ctx context.Context, req dto.RegisterRequest) (*models.Identity, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	// The DTO restricts self-service roles to student|instructor; admin
	// accounts are never created through this path.
	role := models.RoleStudent
	if parsed, ok := models.ParseRole(req.Role); ok {
		role = parsed
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if existing, err := s.repo.FindByIdentifier(ctx, username); err == nil && existing != nil {
		return nil, ErrDuplicateIdentity
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing, err := s.repo.FindByIdentifier(ctx, email); err == nil && existing != nil {
		return nil, ErrDuplicateIdentity
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, err
	}

	identity := models.Identity{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	}

	if err := s.repo.Create(ctx, &identity); err != nil {
		return nil, err
	}

	return &identity, nil
}

// ChangePassword rotates the password after re-verifying the current one.
// The outgoing hash joins the history ring; reuse of the current password or
// any retained hash is rejected, as is a rotation inside the minimum age
// window. The first rotation after registration is always allowed.
func (s *credentialService) ChangePassword(ctx context.Context, identity *models.Identity, current, next string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(current)); err != nil {
		return ErrInvalidCredentials
	}

	if identity.PasswordChangedAt != nil {
		if s.now().Sub(*identity.PasswordChangedAt) < s.minPasswordAge {
			return ErrPasswordTooRecent
		}
	}

	if bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(next)) == nil {
		return ErrPasswordReused
	}
	for _, prior := range identity.PasswordHistory {
		if bcrypt.CompareHashAndPassword([]byte(prior), []byte(next)) == nil {
			return ErrPasswordReused
		}
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(next), s.bcryptCost)
	if err != nil {
		return err
	}

	identity.PushPasswordHistory(identity.PasswordHash)
	identity.PasswordHash = string(newHash)
	changedAt := s.now()
	identity.PasswordChangedAt = &changedAt

	if err := s.repo.UpdateCredentials(ctx, identity); err != nil {
		s.logger.Error().Err(err).Uint("identity_id", identity.ID).Msg("failed to persist password rotation")
		return err
	}

	return nil
}
