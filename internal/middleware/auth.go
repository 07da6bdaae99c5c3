package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/CedricAlejo21/securelms-api/internal/models"
	"github.com/CedricAlejo21/securelms-api/internal/observability"
	"github.com/CedricAlejo21/securelms-api/internal/repository"
	"github.com/CedricAlejo21/securelms-api/internal/service"
	"github.com/CedricAlejo21/securelms-api/internal/utils"
)

// TokenInvalidMessage is the generic wording for every token rejection;
// callers never learn whether the token was malformed, expired or stale.
const TokenInvalidMessage = "Invalid token."

// Authenticated validates the bearer token and then re-checks the live
// identity: an inactive account, an open lockout window, or a password
// change after issuance all reject the token as stale. This re-validation is
// what gives a stateless token effective revocation semantics.
func Authenticated(tokens service.TokenService, identities repository.IdentityRepository, lockout service.LockoutService, recorder service.SecurityRecorder, logger zerolog.Logger) fiber.Handler {
	log := logger.With().Str("component", "auth_middleware").Logger()

	return func(c *fiber.Ctx) error {
		authorization := c.Get("Authorization")

		const bearer = "Bearer "
		if authorization == "" || !strings.HasPrefix(strings.ToLower(authorization), strings.ToLower(bearer)) {
			return utils.SendError(c, fiber.StatusUnauthorized, TokenInvalidMessage)
		}

		raw := strings.TrimSpace(authorization[len(bearer):])
		if raw == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, TokenInvalidMessage)
		}

		claims, err := tokens.Verify(raw)
		if err != nil {
			observability.TokenRejections().WithLabelValues("invalid").Inc()
			recorder.Record(c.UserContext(), service.SecurityEventEntry{
				Action:        models.ActionTokenRejected,
				ResourceType:  "token",
				Details:       map[string]interface{}{"reason": "invalid"},
				SourceAddress: c.IP(),
				UserAgent:     c.Get("User-Agent"),
				Success:       false,
				ErrorDetail:   "token verification failed",
			})
			return utils.SendError(c, fiber.StatusUnauthorized, TokenInvalidMessage)
		}

		identity, err := identities.FindByID(c.UserContext(), claims.SubjectID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return rejectStale(c, recorder, claims.SubjectID, "unknown_subject")
			}
			log.Error().Err(err).Msg("failed to load identity for token check")
			return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
		}

		switch {
		case !identity.Active:
			return rejectStale(c, recorder, identity.ID, "inactive_account")
		case lockout.IsLocked(identity):
			return rejectStale(c, recorder, identity.ID, "account_locked")
		case identity.PasswordChangedAt != nil && claims.IssuedAt.Before(*identity.PasswordChangedAt):
			return rejectStale(c, recorder, identity.ID, "password_changed")
		}

		c.Locals("user_id", identity.ID)
		c.Locals("user_role", string(identity.Role))
		c.Locals("identity", identity)

		return c.Next()
	}
}

func rejectStale(c *fiber.Ctx, recorder service.SecurityRecorder, subjectID uint, reason string) error {
	observability.TokenRejections().WithLabelValues("stale").Inc()

	actorID := subjectID
	recorder.Record(c.UserContext(), service.SecurityEventEntry{
		ActorID:       &actorID,
		Action:        models.ActionTokenRejected,
		ResourceType:  "token",
		Details:       map[string]interface{}{"reason": reason},
		SourceAddress: c.IP(),
		UserAgent:     c.Get("User-Agent"),
		Success:       false,
		ErrorDetail:   "stale token",
	})

	return utils.SendError(c, fiber.StatusUnauthorized, TokenInvalidMessage)
}

// IdentityFromContext returns the live identity attached by Authenticated.
func IdentityFromContext(c *fiber.Ctx) *models.Identity {
	if v := c.Locals("identity"); v != nil {
		if identity, ok := v.(*models.Identity); ok {
			return identity
		}
	}
	return nil
}
