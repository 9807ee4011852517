package provisioning

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/enrollment-backend/internal/repo"
	"github.com/angelmondragon/enrollment-backend/pkg/db/models"
)

// Repository stores the append-only provisioning attempt history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.ProvisioningRecord) error
	ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]models.ProvisioningRecord, error)
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

func (r *repository) Create(ctx context.Context, record *models.ProvisioningRecord) error {
	return r.DB(ctx).Create(record).Error
}

func (r *repository) ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]models.ProvisioningRecord, error) {
	var records []models.ProvisioningRecord
	if err := r.DB(ctx).
		Where("application_id = ?", applicationID).
		Order("created_at ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
