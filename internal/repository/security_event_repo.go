package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/CedricAlejo21/securelms-api/internal/models"
)

// SecurityEventFilter narrows audit trail queries.
type SecurityEventFilter struct {
	Page    int
	Limit   int
	ActorID *uint
	Action  models.SecurityAction
	From    *time.Time
	To      *time.Time
}

// SecurityEventRepository appends and reads the audit trail. The trail is
// append-only: no update or delete is exposed.
type SecurityEventRepository interface {
	Create(ctx context.Context, event *models.SecurityEvent) error
	List(ctx context.Context, filter SecurityEventFilter) ([]models.SecurityEvent, int64, error)
	CountByAction(ctx context.Context, since time.Time) (map[models.SecurityAction]int64, error)
}

type securityEventRepository struct {
	db *gorm.DB
}

// NewSecurityEventRepository constructs the security event repository.
func NewSecurityEventRepository(db *gorm.DB) SecurityEventRepository {
	return &securityEventRepository{db: db}
}

func (r *securityEventRepository) Create(ctx context.Context, event *models.SecurityEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *securityEventRepository) List(ctx context.Context, filter SecurityEventFilter) ([]models.SecurityEvent, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.SecurityEvent{})

	if filter.ActorID != nil {
		query = query.Where("actor_id = ?", *filter.ActorID)
	}

	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}

	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}

	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		offset := (page - 1) * filter.Limit
		query = query.Offset(offset).Limit(filter.Limit)
	}

	var events []models.SecurityEvent
	if err := query.Order("created_at DESC").Order("id DESC").Find(&events).Error; err != nil {
		return nil, 0, err
	}

	return events, total, nil
}

func (r *securityEventRepository) CountByAction(ctx context.Context, since time.Time) (map[models.SecurityAction]int64, error) {
	type actionCount struct {
		Action models.SecurityAction
		Total  int64
	}

	var rows []actionCount
	err := r.db.WithContext(ctx).
		Model(&models.SecurityEvent{}).
		Select("action, COUNT(*) AS total").
		Where("created_at >= ?", since).
		Group("action").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.SecurityAction]int64, len(rows))
	for _, row := range rows {
		counts[row.Action] = row.Total
	}

	return counts, nil
}
