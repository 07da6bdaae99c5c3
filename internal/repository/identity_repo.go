package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/CedricAlejo21/securelms-api/internal/models"
)

// IdentityFilter narrows identity listings for the admin surface.
type IdentityFilter struct {
	Page     int
	PageSize int
	Role     models.Role
	Active   *bool
	Search   string
}

// IdentityRepository persists identity records and their lockout state.
type IdentityRepository interface {
	Create(ctx context.Context, identity *models.Identity) error
	FindByID(ctx context.Context, id uint) (*models.Identity, error)
	FindByIdentifier(ctx context.Context, identifier string) (*models.Identity, error)
	List(ctx context.Context, filter IdentityFilter) ([]models.Identity, int64, error)
	UpdateCredentials(ctx context.Context, identity *models.Identity) error
	RecordFailure(ctx context.Context, id uint, threshold int, lockFor time.Duration) (*models.Identity, error)
	RecordSuccess(ctx context.Context, id uint, at time.Time) error
	SetRole(ctx context.Context, id uint, role models.Role) error
	SetActive(ctx context.Context, id uint, active bool) error
}

type identityRepository struct {
	db *gorm.DB
}

// NewIdentityRepository constructs the identity repository.
func NewIdentityRepository(db *gorm.DB) IdentityRepository {
	return &identityRepository{db: db}
}

func (r *identityRepository) Create(ctx context.Context, identity *models.Identity) error {
	return r.db.WithContext(ctx).Create(identity).Error
}

func (r *identityRepository) FindByID(ctx context.Context, id uint) (*models.Identity, error) {
	var identity models.Identity
	if err := r.db.WithContext(ctx).First(&identity, id).Error; err != nil {
		return nil, err
	}
	return &identity, nil
}

func (r *identityRepository) FindByIdentifier(ctx context.Context, identifier string) (*models.Identity, error) {
	var identity models.Identity
	err := r.db.WithContext(ctx).
		Where("username = ? OR email = ?", identifier, identifier).
		First(&identity).Error
	if err != nil {
		return nil, err
	}
	return &identity, nil
}

func (r *identityRepository) List(ctx context.Context, filter IdentityFilter) ([]models.Identity, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Identity{})

	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}

	if filter.Active != nil {
		query = query.Where("active = ?", *filter.Active)
	}

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("username LIKE ? OR email LIKE ?", pattern, pattern)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		offset := (page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	var identities []models.Identity
	if err := query.Order("created_at DESC").Find(&identities).Error; err != nil {
		return nil, 0, err
	}

	return identities, total, nil
}

// UpdateCredentials persists only the password rotation fields so that
// concurrent lockout updates on the same row are never overwritten.
func (r *identityRepository) UpdateCredentials(ctx context.Context, identity *models.Identity) error {
	return r.db.WithContext(ctx).
		Model(&models.Identity{}).
		Where("id = ?", identity.ID).
		Updates(map[string]interface{}{
			"password_hash":       identity.PasswordHash,
			"password_changed_at": identity.PasswordChangedAt,
			"password_history":    identity.PasswordHistory,
		}).Error
}

// RecordFailure applies one failed attempt as conditional updates inside a
// single transaction: an expired lock first resets the window, the increment
// is done in SQL so concurrent failures never lose a count, and the lock is
// set only when the threshold has been crossed and no lock is active.
func (r *identityRepository) RecordFailure(ctx context.Context, id uint, threshold int, lockFor time.Duration) (*models.Identity, error) {
	var identity models.Identity

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		reset := tx.Model(&models.Identity{}).
			Where("id = ? AND locked_until IS NOT NULL AND locked_until <= ?", id, now).
			Updates(map[string]interface{}{"failed_attempts": 0, "locked_until": nil})
		if reset.Error != nil {
			return reset.Error
		}

		increment := tx.Model(&models.Identity{}).
			Where("id = ?", id).
			UpdateColumn("failed_attempts", gorm.Expr("failed_attempts + ?", 1))
		if increment.Error != nil {
			return increment.Error
		}
		if increment.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		lockedUntil := now.Add(lockFor)
		lock := tx.Model(&models.Identity{}).
			Where("id = ? AND failed_attempts >= ? AND locked_until IS NULL", id, threshold).
			UpdateColumn("locked_until", lockedUntil)
		if lock.Error != nil {
			return lock.Error
		}

		return tx.First(&identity, id).Error
	})
	if err != nil {
		return nil, err
	}

	return &identity, nil
}

func (r *identityRepository) RecordSuccess(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Identity{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"failed_attempts": 0,
			"locked_until":    nil,
			"last_login":      at,
		}).Error
}

func (r *identityRepository) SetRole(ctx context.Context, id uint, role models.Role) error {
	result := r.db.WithContext(ctx).
		Model(&models.Identity{}).
		Where("id = ?", id).
		Update("role", role)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *identityRepository) SetActive(ctx context.Context, id uint, active bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.Identity{}).
		Where("id = ?", id).
		Update("active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
