package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/CedricAlejo21/securelms-api/internal/models"
	"github.com/CedricAlejo21/securelms-api/internal/observability"
)

// AccessDeniedMessage is the only wording any denial response may carry,
// whatever the underlying cause (role mismatch or ownership mismatch).
const AccessDeniedMessage = "Access denied. Insufficient privileges."

// Actor is the request-scoped subject of an authorization decision.
type Actor struct {
	ID            uint
	Role          models.Role
	SourceAddress string
	UserAgent     string
}

// AuthorizationService is the single role/ownership decision point. Every
// protected route consults it — never a per-route role check — and every
// Deny is recorded in the audit trail before the response is produced.
// A nil return is Allow; ErrAccessDenied is Deny.
type AuthorizationService interface {
	Decide(ctx context.Context, actor Actor, required []models.Role, resourceType string, resourceID *uint) error
	CheckOwnership(ctx context.Context, actor Actor, ownerID uint, resourceType string, resourceID *uint) error
}

type authorizationService struct {
	recorder SecurityRecorder
	logger   zerolog.Logger
}

// NewAuthorizationService constructs the authorization engine.
func NewAuthorizationService(recorder SecurityRecorder, logger zerolog.Logger) AuthorizationService {
	return &authorizationService{
		recorder: recorder,
		logger:   logger.With().Str("component", "authorization_service").Logger(),
	}
}

func (s *authorizationService) Decide(ctx context.Context, actor Actor, required []models.Role, resourceType string, resourceID *uint) error {
	for _, role := range required {
		if actor.Role == role {
			return nil
		}
	}

	s.deny(ctx, actor, resourceType, resourceID, map[string]interface{}{
		"required_roles": roleStrings(required),
		"user_role":      string(actor.Role),
	})

	return ErrAccessDenied
}

func (s *authorizationService) CheckOwnership(ctx context.Context, actor Actor, ownerID uint, resourceType string, resourceID *uint) error {
	if actor.Role == models.RoleAdmin || actor.ID == ownerID {
		return nil
	}

	s.deny(ctx, actor, resourceType, resourceID, map[string]interface{}{
		"required_roles": []string{string(models.RoleAdmin)},
		"user_role":      string(actor.Role),
		"owner_id":       ownerID,
	})

	return ErrAccessDenied
}

// deny records exactly one audit event per denial. Audit persistence
// failures are surfaced operationally inside the recorder and do not change
// the decision.
func (s *authorizationService) deny(ctx context.Context, actor Actor, resourceType string, resourceID *uint, details map[string]interface{}) {
	observability.AuthorizationDenials().Inc()

	actorID := actor.ID
	var actorRef *uint
	if actorID > 0 {
		actorRef = &actorID
	}

	s.recorder.Record(ctx, SecurityEventEntry{
		ActorID:       actorRef,
		Action:        models.ActionUnauthorizedAccess,
		ResourceType:  resourceType,
		ResourceID:    resourceID,
		Details:       details,
		SourceAddress: actor.SourceAddress,
		UserAgent:     actor.UserAgent,
		Success:       false,
		ErrorDetail:   "insufficient privileges",
	})
}

func roleStrings(roles []models.Role) []string {
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		out = append(out, string(role))
	}
	return out
}
