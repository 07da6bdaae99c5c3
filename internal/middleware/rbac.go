package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/CedricAlejo21/securelms-api/internal/models"
	"github.com/CedricAlejo21/securelms-api/internal/service"
	"github.com/CedricAlejo21/securelms-api/internal/utils"
)

// RequireRoles gates a route group on the authorization engine. It is the
// only role check in the routing layer; handlers never test roles themselves,
// so response wording and deny auditing cannot drift between endpoints.
func RequireRoles(authz service.AuthorizationService, resourceType string, roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := ActorFromContext(c)

		if err := authz.Decide(c.UserContext(), actor, roles, resourceType, nil); err != nil {
			return utils.SendError(c, fiber.StatusForbidden, service.AccessDeniedMessage)
		}

		return c.Next()
	}
}

// ActorFromContext builds the request-scoped authorization subject from the
// values attached by Authenticated.
func ActorFromContext(c *fiber.Ctx) service.Actor {
	actor := service.Actor{
		SourceAddress: c.IP(),
		UserAgent:     c.Get("User-Agent"),
	}

	if v := c.Locals("user_id"); v != nil {
		if id, ok := v.(uint); ok {
			actor.ID = id
		}
	}
	if v := c.Locals("user_role"); v != nil {
		if raw, ok := v.(string); ok {
			if role, ok := models.ParseRole(raw); ok {
				actor.Role = role
			}
		}
	}

	return actor
}
