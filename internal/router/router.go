package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/CedricAlejo21/securelms-api/internal/config"
	"github.com/CedricAlejo21/securelms-api/internal/handler"
	"github.com/CedricAlejo21/securelms-api/internal/middleware"
	"github.com/CedricAlejo21/securelms-api/internal/models"
	"github.com/CedricAlejo21/securelms-api/internal/observability"
	"github.com/CedricAlejo21/securelms-api/internal/service"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler      *handler.AuthHandler
	AuditHandler     *handler.AuditHandler
	AdminUserHandler *handler.AdminUserHandler
	Authenticated    fiber.Handler
	Authorization    service.AuthorizationService
	LoginRateLimit   fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	authenticated := deps.Authenticated
	if authenticated == nil {
		authenticated = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.AuthHandler != nil {
		public := api.Group("/auth")
		if deps.LoginRateLimit != nil {
			public.Use(deps.LoginRateLimit)
		}
		deps.AuthHandler.RegisterPublic(public)

		protected := api.Group("/auth", authenticated)
		deps.AuthHandler.RegisterProtected(protected)

		users := api.Group("/users", authenticated)
		deps.AuthHandler.RegisterUsers(users)
	}

	// Admin surface: every group below is gated through the authorization
	// engine, which audits each denial.
	if deps.Authorization != nil {
		admin := api.Group("/admin", authenticated)

		if deps.AuditHandler != nil {
			audit := admin.Group("/audit", middleware.RequireRoles(deps.Authorization, "audit_trail", models.RoleAdmin))
			deps.AuditHandler.Register(audit)
		}

		if deps.AdminUserHandler != nil {
			users := admin.Group("/users", middleware.RequireRoles(deps.Authorization, "identity", models.RoleAdmin))
			deps.AdminUserHandler.Register(users)
		}
	}
}
