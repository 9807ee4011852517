package organizations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/enrollment-backend/internal/repo"
	"github.com/angelmondragon/enrollment-backend/pkg/db/models"
	"github.com/angelmondragon/enrollment-backend/pkg/enums"
)

// Repository persists tenant organizations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, org *models.Organization) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	ListTrialsEndedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Organization, error)
	ExpireTrial(ctx context.Context, id uuid.UUID) (bool, error)
}

type repository struct {
	repo.Base
}

func NewRepository(conn *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(conn)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) Create(ctx context.Context, org *models.Organization) error {
	return r.DB(ctx).Create(org).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	var org models.Organization
	if err := r.DB(ctx).First(&org, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *repository) ListTrialsEndedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Organization, error) {
	var orgs []models.Organization
	q := r.DB(ctx).
		Where("status = ? AND trial_ends_at IS NOT NULL AND trial_ends_at < ?", enums.OrganizationStatusTrial, cutoff).
		Order("trial_ends_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&orgs).Error; err != nil {
		return nil, err
	}
	return orgs, nil
}

// ExpireTrial flips trial → expired. It reports false when the organization
// already left the trial state.
func (r *repository) ExpireTrial(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.DB(ctx).
		Model(&models.Organization{}).
		Where("id = ? AND status = ?", id, enums.OrganizationStatusTrial).
		Update("status", enums.OrganizationStatusExpired)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
