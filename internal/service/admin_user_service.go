package service

import (
	"context"
	"errors"
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/CedricAlejo21/securelms-api/internal/dto"
	"github.com/CedricAlejo21/securelms-api/internal/models"
	"github.com/CedricAlejo21/securelms-api/internal/repository"
)

// AdminUserService exposes the admin-only identity management operations.
// Role changes and activation flips happen only here, never through any
// self-service path, and each one lands in the audit trail.
type AdminUserService interface {
	List(ctx context.Context, req dto.IdentityListRequest) (dto.IdentityListResponse, error)
	SetRole(ctx context.Context, actor Actor, identityID uint, req dto.RoleUpdateRequest, meta RequestMeta) (dto.IdentitySummary, error)
	SetActive(ctx context.Context, actor Actor, identityID uint, req dto.StatusUpdateRequest, meta RequestMeta) (dto.IdentitySummary, error)
}

type adminUserService struct {
	repo      repository.IdentityRepository
	recorder  SecurityRecorder
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAdminUserService constructs the admin identity management service.
func NewAdminUserService(repo repository.IdentityRepository, recorder SecurityRecorder, validate *validator.Validate, logger zerolog.Logger) AdminUserService {
	return &adminUserService{
		repo:      repo,
		recorder:  recorder,
		validator: validate,
		logger:    logger.With().Str("component", "admin_user_service").Logger(),
	}
}

func (s *adminUserService) List(ctx context.Context, req dto.IdentityListRequest) (dto.IdentityListResponse, error) {
	filter := repository.IdentityFilter{
		Page:     maxInt(req.Page, 1),
		PageSize: req.PageSize,
		Active:   req.Active,
		Search:   req.Search,
	}
	if role, ok := models.ParseRole(req.Role); ok {
		filter.Role = role
	}

	identities, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.IdentityListResponse{}, err
	}

	items := make([]dto.IdentitySummary, 0, len(identities))
	for _, identity := range identities {
		items = append(items, dto.NewIdentitySummary(identity))
	}

	pagination := dto.PaginationMeta{
		Page:  filter.Page,
		Limit: filter.PageSize,
		Total: total,
	}
	if filter.PageSize > 0 {
		pagination.Pages = int(math.Ceil(float64(total) / float64(filter.PageSize)))
	} else {
		pagination.Pages = 1
	}

	return dto.IdentityListResponse{Items: items, Pagination: pagination}, nil
}

func (s *adminUserService) SetRole(ctx context.Context, actor Actor, identityID uint, req dto.RoleUpdateRequest, meta RequestMeta) (dto.IdentitySummary, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.IdentitySummary{}, err
	}

	// The DTO's oneof tag already restricted the value to the closed set.
	role, _ := models.ParseRole(req.Role)

	before, err := s.repo.FindByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.IdentitySummary{}, ErrIdentityNotFound
		}
		return dto.IdentitySummary{}, err
	}

	if err := s.repo.SetRole(ctx, identityID, role); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.IdentitySummary{}, ErrIdentityNotFound
		}
		return dto.IdentitySummary{}, err
	}

	actorID := actor.ID
	s.recorder.Record(ctx, SecurityEventEntry{
		ActorID:      &actorID,
		Action:       models.ActionRoleChanged,
		ResourceType: "identity",
		ResourceID:   &identityID,
		Details: map[string]interface{}{
			"previous_role": string(before.Role),
			"new_role":      string(role),
		},
		SourceAddress: meta.SourceAddress,
		UserAgent:     meta.UserAgent,
		Success:       true,
	})

	before.Role = role
	return dto.NewIdentitySummary(*before), nil
}

func (s *adminUserService) SetActive(ctx context.Context, actor Actor, identityID uint, req dto.StatusUpdateRequest, meta RequestMeta) (dto.IdentitySummary, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.IdentitySummary{}, err
	}

	active := *req.Active

	identity, err := s.repo.FindByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.IdentitySummary{}, ErrIdentityNotFound
		}
		return dto.IdentitySummary{}, err
	}

	if err := s.repo.SetActive(ctx, identityID, active); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.IdentitySummary{}, ErrIdentityNotFound
		}
		return dto.IdentitySummary{}, err
	}

	action := models.ActionAccountDeactivated
	if active {
		action = models.ActionAccountReactivated
	}

	actorID := actor.ID
	s.recorder.Record(ctx, SecurityEventEntry{
		ActorID:       &actorID,
		Action:        action,
		ResourceType:  "identity",
		ResourceID:    &identityID,
		SourceAddress: meta.SourceAddress,
		UserAgent:     meta.UserAgent,
		Success:       true,
	})

	identity.Active = active
	return dto.NewIdentitySummary(*identity), nil
}
