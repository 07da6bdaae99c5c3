package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/CedricAlejo21/securelms-api/internal/dto"
	"github.com/CedricAlejo21/securelms-api/internal/middleware"
	"github.com/CedricAlejo21/securelms-api/internal/models"
	"github.com/CedricAlejo21/securelms-api/internal/service"
	"github.com/CedricAlejo21/securelms-api/internal/utils"
)

// AuditHandler exposes the admin-only audit trail endpoints.
type AuditHandler struct {
	service  service.AuditService
	recorder service.SecurityRecorder
	logger   zerolog.Logger
}

// NewAuditHandler constructs the handler.
func NewAuditHandler(service service.AuditService, logger zerolog.Logger) *AuditHandler {
	return &AuditHandler{
		service:  service,
		recorder: service,
		logger:   logger.With().Str("component", "audit_handler").Logger(),
	}
}

// Register attaches the audit routes to an admin-gated router group.
func (h *AuditHandler) Register(router fiber.Router) {
	router.Get("", h.query)
	router.Get("/summary", h.summary)
	router.Get("/export", h.export)
}

func (h *AuditHandler) query(c *fiber.Ctx) error {
	req, ok := h.parseListRequest(c)
	if !ok {
		return nil
	}

	response, err := h.service.Query(c.UserContext(), req)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to query audit trail")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to query audit trail")
	}

	return utils.SendSuccess(c, "audit logs", response)
}

func (h *AuditHandler) summary(c *fiber.Ctx) error {
	window := 24 * time.Hour
	if raw := c.Query("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid window")
		}
		window = parsed
	}

	response, err := h.service.Aggregate(c.UserContext(), window)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to aggregate audit trail")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to aggregate audit trail")
	}

	return utils.SendSuccess(c, "audit summary", response)
}

func (h *AuditHandler) export(c *fiber.Ctx) error {
	req, ok := h.parseListRequest(c)
	if !ok {
		return nil
	}
	// Exports are unpaginated within the filter window up to a hard cap.
	req.Page = 1
	if req.Limit <= 0 || req.Limit > 10000 {
		req.Limit = 10000
	}

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="security-events.csv"`)

	rows, err := h.service.ExportCSV(c.UserContext(), req, c.Response().BodyWriter())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to export audit trail")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to export audit trail")
	}

	actor := middleware.ActorFromContext(c)
	actorID := actor.ID
	h.recorder.Record(c.UserContext(), service.SecurityEventEntry{
		ActorID:       &actorID,
		Action:        models.ActionAuditExported,
		ResourceType:  "audit_trail",
		Details:       map[string]interface{}{"rows": rows},
		SourceAddress: actor.SourceAddress,
		UserAgent:     actor.UserAgent,
		Success:       true,
	})

	return nil
}

func (h *AuditHandler) parseListRequest(c *fiber.Ctx) (dto.AuditListRequest, bool) {
	fail := func(message string) (dto.AuditListRequest, bool) {
		_ = utils.SendError(c, fiber.StatusBadRequest, message)
		return dto.AuditListRequest{}, false
	}

	page, err := parseQueryInt(c, "page")
	if err != nil {
		return fail("invalid page")
	}
	if page <= 0 {
		page = 1
	}

	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return fail("invalid limit")
	}
	if limit <= 0 {
		limit = 20
	} else if limit > 100 {
		limit = 100
	}

	actorID, err := parseQueryInt(c, "user")
	if err != nil || actorID < 0 {
		return fail("invalid user")
	}

	from, err := parseQueryTime(c, "start_date")
	if err != nil {
		return fail("invalid start_date")
	}
	to, err := parseQueryTime(c, "end_date")
	if err != nil {
		return fail("invalid end_date")
	}

	req := dto.AuditListRequest{
		Page:   page,
		Limit:  limit,
		Action: c.Query("action"),
		From:   from,
		To:     to,
	}
	if actorID > 0 {
		req.ActorID = uint(actorID)
	}

	if req.Action != "" && !models.KnownSecurityAction(models.SecurityAction(strings.ToUpper(req.Action))) {
		return fail(fmt.Sprintf("unknown action %q", req.Action))
	}

	return req, true
}
