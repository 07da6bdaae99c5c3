package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/CedricAlejo21/securelms-api/internal/dto"
	"github.com/CedricAlejo21/securelms-api/internal/middleware"
	"github.com/CedricAlejo21/securelms-api/internal/service"
	"github.com/CedricAlejo21/securelms-api/internal/utils"
)

// AdminUserHandler exposes the admin-only identity management endpoints.
type AdminUserHandler struct {
	service service.AdminUserService
	logger  zerolog.Logger
}

// NewAdminUserHandler constructs the handler.
func NewAdminUserHandler(service service.AdminUserService, logger zerolog.Logger) *AdminUserHandler {
	return &AdminUserHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_user_handler").Logger(),
	}
}

// Register attaches the identity management routes to an admin-gated group.
func (h *AdminUserHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Put("/:id/role", h.updateRole)
	router.Put("/:id/status", h.updateStatus)
}

func (h *AdminUserHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	if page <= 0 {
		page = 1
	}

	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}
	if pageSize <= 0 {
		pageSize = 25
	} else if pageSize > 200 {
		pageSize = 200
	}

	req := dto.IdentityListRequest{
		Page:     page,
		PageSize: pageSize,
		Role:     c.Query("role"),
		Search:   c.Query("search"),
	}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid active flag")
		}
		req.Active = &active
	}

	response, err := h.service.List(c.UserContext(), req)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list identities")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list identities")
	}

	return utils.SendSuccess(c, "identities", response)
}

func (h *AdminUserHandler) updateRole(c *fiber.Ctx) error {
	id, ok := h.parseID(c)
	if !ok {
		return nil
	}

	var payload dto.RoleUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	summary, err := h.service.SetRole(c.UserContext(), middleware.ActorFromContext(c), id, payload, requestMeta(c))
	if err != nil {
		return h.mapError(c, err, "failed to update role")
	}

	return utils.SendSuccess(c, "role updated", summary)
}

func (h *AdminUserHandler) updateStatus(c *fiber.Ctx) error {
	id, ok := h.parseID(c)
	if !ok {
		return nil
	}

	var payload dto.StatusUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	summary, err := h.service.SetActive(c.UserContext(), middleware.ActorFromContext(c), id, payload, requestMeta(c))
	if err != nil {
		return h.mapError(c, err, "failed to update status")
	}

	return utils.SendSuccess(c, "status updated", summary)
}

func (h *AdminUserHandler) parseID(c *fiber.Ctx) (uint, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		_ = utils.SendError(c, fiber.StatusBadRequest, "invalid identity id")
		return 0, false
	}
	return uint(id), true
}

func (h *AdminUserHandler) mapError(c *fiber.Ctx, err error, message string) error {
	switch {
	case isValidationError(err):
		return utils.SendValidationError(c, err)
	case errors.Is(err, service.ErrIdentityNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "identity not found")
	}

	h.logger.Error().Err(err).Msg(message)
	return utils.SendError(c, fiber.StatusInternalServerError, message)
}
