package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/CedricAlejo21/securelms-api/internal/dto"
	"github.com/CedricAlejo21/securelms-api/internal/middleware"
	"github.com/CedricAlejo21/securelms-api/internal/repository"
	"github.com/CedricAlejo21/securelms-api/internal/service"
	"github.com/CedricAlejo21/securelms-api/internal/utils"
)

// Generic response wording for authentication outcomes. The same sentence is
// used whether the identifier or the password was wrong.
const (
	invalidCredentialsMessage = "Invalid credentials."
	accountLockedMessage      = "Account temporarily locked. Try again later."
)

// AuthHandler exposes the authentication endpoints.
type AuthHandler struct {
	service    service.AuthService
	authz      service.AuthorizationService
	identities repository.IdentityRepository
	logger     zerolog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(service service.AuthService, authz service.AuthorizationService, identities repository.IdentityRepository, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service:    service,
		authz:      authz,
		identities: identities,
		logger:     logger.With().Str("component", "auth_handler").Logger(),
	}
}

// RegisterPublic attaches the unauthenticated auth routes.
func (h *AuthHandler) RegisterPublic(router fiber.Router) {
	router.Post("/register", h.register)
	router.Post("/login", h.login)
}

// RegisterProtected attaches the routes that require a valid bearer token.
func (h *AuthHandler) RegisterProtected(router fiber.Router) {
	router.Post("/change-password", h.changePassword)
	router.Get("/me", h.me)
}

// RegisterUsers attaches the identity lookup route (self or admin).
func (h *AuthHandler) RegisterUsers(router fiber.Router) {
	router.Get("/:id", h.show)
}

func (h *AuthHandler) register(c *fiber.Ctx) error {
	var payload dto.RegisterRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	summary, err := h.service.Register(c.UserContext(), payload, requestMeta(c))
	if err != nil {
		switch {
		case isValidationError(err):
			return utils.SendValidationError(c, err)
		case errors.Is(err, service.ErrDuplicateIdentity):
			return utils.SendError(c, fiber.StatusBadRequest, "Username or email already in use.")
		}
		h.logger.Error().Err(err).Msg("registration failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "account created", summary)
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var payload dto.LoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.service.Login(c.UserContext(), payload, requestMeta(c))
	if err != nil {
		switch {
		case isValidationError(err):
			return utils.SendValidationError(c, err)
		case errors.Is(err, service.ErrInvalidCredentials):
			return utils.SendError(c, fiber.StatusUnauthorized, invalidCredentialsMessage)
		case errors.Is(err, service.ErrAccountLocked):
			return utils.SendError(c, fiber.StatusLocked, accountLockedMessage)
		}
		h.logger.Error().Err(err).Msg("login failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "login successful", response)
}

func (h *AuthHandler) changePassword(c *fiber.Ctx) error {
	identity := middleware.IdentityFromContext(c)
	if identity == nil {
		return utils.SendError(c, fiber.StatusUnauthorized, middleware.TokenInvalidMessage)
	}

	var payload dto.ChangePasswordRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	if err := h.service.ChangePassword(c.UserContext(), identity, payload, requestMeta(c)); err != nil {
		switch {
		case isValidationError(err):
			return utils.SendValidationError(c, err)
		case errors.Is(err, service.ErrInvalidCredentials):
			return utils.SendError(c, fiber.StatusUnauthorized, invalidCredentialsMessage)
		case errors.Is(err, service.ErrPasswordReused):
			return utils.SendError(c, fiber.StatusBadRequest, "New password must not match a recently used password.")
		case errors.Is(err, service.ErrPasswordTooRecent):
			return utils.SendError(c, fiber.StatusBadRequest, "Password was changed recently. Try again later.")
		}
		h.logger.Error().Err(err).Msg("password change failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "password changed", nil)
}

func (h *AuthHandler) me(c *fiber.Ctx) error {
	identity := middleware.IdentityFromContext(c)
	if identity == nil {
		return utils.SendError(c, fiber.StatusUnauthorized, middleware.TokenInvalidMessage)
	}

	return utils.SendSuccess(c, "profile", dto.NewIdentitySummary(*identity))
}

// show returns an identity summary to its owner or to an admin. The
// ownership decision lives in the authorization engine, which audits every
// denial.
func (h *AuthHandler) show(c *fiber.Ctx) error {
	identity := middleware.IdentityFromContext(c)
	if identity == nil {
		return utils.SendError(c, fiber.StatusUnauthorized, middleware.TokenInvalidMessage)
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identity id")
	}

	targetID := uint(id)
	actor := middleware.ActorFromContext(c)
	if err := h.authz.CheckOwnership(c.UserContext(), actor, targetID, "identity", &targetID); err != nil {
		return utils.SendError(c, fiber.StatusForbidden, service.AccessDeniedMessage)
	}

	if targetID == identity.ID {
		return utils.SendSuccess(c, "profile", dto.NewIdentitySummary(*identity))
	}

	target, err := h.identities.FindByID(c.UserContext(), targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "identity not found")
		}
		h.logger.Error().Err(err).Msg("failed to load identity")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "profile", dto.NewIdentitySummary(*target))
}
