package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/CedricAlejo21/securelms-api/internal/dto"
	"github.com/CedricAlejo21/securelms-api/internal/models"
	"github.com/CedricAlejo21/securelms-api/internal/observability"
	"github.com/CedricAlejo21/securelms-api/internal/repository"
)

// SecurityEventEntry captures the details required to append one audit record.
type SecurityEventEntry struct {
	ActorID       *uint
	Action        models.SecurityAction
	ResourceType  string
	ResourceID    *uint
	Details       map[string]interface{}
	SourceAddress string
	UserAgent     string
	Success       bool
	ErrorDetail   string
}

// SecurityRecorder is the cross-cutting audit hook. Credential, lockout,
// token and authorization decisions all record through this one interface so
// field names and masking cannot drift between call sites.
type SecurityRecorder interface {
	Record(ctx context.Context, entry SecurityEventEntry) error
}

// AuditService exposes the append-only security audit trail.
type AuditService interface {
	SecurityRecorder
	Query(ctx context.Context, req dto.AuditListRequest) (dto.AuditListResponse, error)
	Aggregate(ctx context.Context, window time.Duration) (dto.AuditSummaryResponse, error)
	ExportCSV(ctx context.Context, req dto.AuditListRequest, w io.Writer) (int, error)
}

type auditService struct {
	repo     repository.SecurityEventRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewAuditService constructs the audit trail service.
func NewAuditService(repo repository.SecurityEventRepository, cache *redis.Client, cacheTTL time.Duration, logger zerolog.Logger) AuditService {
	return &auditService{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger.With().Str("component", "audit_service").Logger(),
		tracer:   otel.Tracer("github.com/CedricAlejo21/securelms-api/internal/service/audit"),
		now:      time.Now,
	}
}

// Record appends one security event synchronously. A persistence failure is
// surfaced to operational monitoring (log + metric) and returned to the
// caller; it never changes the security decision that triggered the record
// and never reaches a response body.
func (s *auditService) Record(ctx context.Context, entry SecurityEventEntry) error {
	spanCtx, span := s.tracer.Start(ctx, "audit.record", trace.WithAttributes(
		attribute.String("audit.action", string(entry.Action)),
		attribute.Bool("audit.success", entry.Success),
	))
	defer span.End()

	if !models.KnownSecurityAction(entry.Action) {
		return fmt.Errorf("unknown security action %q", entry.Action)
	}

	resourceType := strings.TrimSpace(entry.ResourceType)
	if resourceType == "" {
		resourceType = "system"
	}

	event := models.SecurityEvent{
		ActorID:       entry.ActorID,
		Action:        entry.Action,
		ResourceType:  resourceType,
		ResourceID:    entry.ResourceID,
		Details:       maskSecrets(entry.Details),
		SourceAddress: entry.SourceAddress,
		UserAgent:     entry.UserAgent,
		Success:       entry.Success,
		ErrorDetail:   entry.ErrorDetail,
	}

	if err := s.repo.Create(spanCtx, &event); err != nil {
		span.RecordError(err)
		observability.AuditWriteFailures().Inc()
		s.logger.Error().Err(err).
			Str("action", string(entry.Action)).
			Msg("failed to persist security event")
		return err
	}

	return nil
}

func (s *auditService) Query(ctx context.Context, req dto.AuditListRequest) (dto.AuditListResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "audit.query")
	defer span.End()

	filter := repository.SecurityEventFilter{
		Page:  maxInt(req.Page, 1),
		Limit: req.Limit,
		From:  req.From,
		To:    req.To,
	}
	if req.ActorID > 0 {
		actorID := req.ActorID
		filter.ActorID = &actorID
	}
	if action := strings.TrimSpace(req.Action); action != "" {
		filter.Action = models.SecurityAction(strings.ToUpper(action))
	}

	events, total, err := s.repo.List(spanCtx, filter)
	if err != nil {
		span.RecordError(err)
		return dto.AuditListResponse{}, err
	}

	logs := make([]dto.SecurityEventResponse, 0, len(events))
	for _, event := range events {
		logs = append(logs, dto.NewSecurityEventResponse(event))
	}

	pagination := dto.PaginationMeta{
		Page:  filter.Page,
		Limit: filter.Limit,
		Total: total,
	}
	if filter.Limit > 0 {
		pagination.Pages = int(math.Ceil(float64(total) / float64(filter.Limit)))
	} else {
		pagination.Pages = 1
	}

	return dto.AuditListResponse{Logs: logs, Pagination: pagination}, nil
}

// Aggregate is a derived dashboard read; it is cached with a short TTL and is
// never consulted for security decisions.
func (s *auditService) Aggregate(ctx context.Context, window time.Duration) (dto.AuditSummaryResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "audit.aggregate")
	defer span.End()

	if window <= 0 {
		window = 24 * time.Hour
	}

	end := s.now()
	start := end.Add(-window)
	cacheKey := fmt.Sprintf("audit:summary:%s", window)

	if s.cache != nil {
		if cached, err := s.cache.Get(spanCtx, cacheKey).Result(); err == nil {
			var response dto.AuditSummaryResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Str("window", window.String()).Msg("audit summary cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read audit summary cache")
		}
	}

	counts, err := s.repo.CountByAction(spanCtx, start)
	if err != nil {
		span.RecordError(err)
		return dto.AuditSummaryResponse{}, err
	}

	byAction := make(map[string]int64, len(counts))
	for action, count := range counts {
		byAction[string(action)] = count
	}

	response := dto.AuditSummaryResponse{
		WindowStart: start,
		WindowEnd:   end,
		Counts:      byAction,
	}

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(spanCtx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store audit summary cache")
			}
		}
	}

	return response, nil
}

// ExportCSV streams the filtered trail as CSV and returns the row count.
func (s *auditService) ExportCSV(ctx context.Context, req dto.AuditListRequest, w io.Writer) (int, error) {
	spanCtx, span := s.tracer.Start(ctx, "audit.export")
	defer span.End()

	page, err := s.Query(spanCtx, req)
	if err != nil {
		return 0, err
	}

	writer := csv.NewWriter(w)
	header := []string{"id", "actor_id", "action", "resource_type", "resource_id", "success", "source_address", "user_agent", "error_detail", "created_at"}
	if err := writer.Write(header); err != nil {
		return 0, err
	}

	for _, event := range page.Logs {
		actor := ""
		if event.ActorID != nil {
			actor = strconv.FormatUint(uint64(*event.ActorID), 10)
		}
		resource := ""
		if event.ResourceID != nil {
			resource = strconv.FormatUint(uint64(*event.ResourceID), 10)
		}

		row := []string{
			strconv.FormatUint(uint64(event.ID), 10),
			actor,
			event.Action,
			event.ResourceType,
			resource,
			strconv.FormatBool(event.Success),
			event.SourceAddress,
			event.UserAgent,
			event.ErrorDetail,
			event.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			return 0, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return 0, err
	}

	return len(page.Logs), nil
}

// maskSecrets replaces values under credential-ish keys so that plaintext
// secrets can never reach the trail, whatever the call site passed in.
func maskSecrets(details map[string]interface{}) datatypes.JSONMap {
	if details == nil {
		return datatypes.JSONMap{}
	}

	masked := datatypes.JSONMap{}
	for key, value := range details {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "password") ||
			strings.Contains(lower, "token") ||
			strings.Contains(lower, "secret") ||
			strings.Contains(lower, "hash") ||
			strings.Contains(lower, "authorization") {
			masked[key] = "***"
			continue
		}
		masked[key] = value
	}
	return masked
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
