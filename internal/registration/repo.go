package registration

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/enrollment-backend/internal/repo"
	"github.com/angelmondragon/enrollment-backend/pkg/db/models"
	"github.com/angelmondragon/enrollment-backend/pkg/enums"
)

// Repository persists trainee records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, trainee *models.Trainee) error
	FindByApplication(ctx context.Context, applicationID uuid.UUID) (*models.Trainee, error)
	Enroll(ctx context.Context, id uuid.UUID, classID *uuid.UUID, at time.Time) (bool, error)
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

func (r *repository) Create(ctx context.Context, trainee *models.Trainee) error {
	return r.DB(ctx).Create(trainee).Error
}

func (r *repository) FindByApplication(ctx context.Context, applicationID uuid.UUID) (*models.Trainee, error) {
	var trainee models.Trainee
	if err := r.DB(ctx).First(&trainee, "application_id = ?", applicationID).Error; err != nil {
		return nil, err
	}
	return &trainee, nil
}

func (r *repository) Enroll(ctx context.Context, id uuid.UUID, classID *uuid.UUID, at time.Time) (bool, error) {
	updates := map[string]any{
		"enrollment_status": enums.EnrollmentStatusEnrolled,
		"enrolled_at":       at,
	}
	if classID != nil {
		updates["class_id"] = *classID
	}
	res := r.DB(ctx).
		Model(&models.Trainee{}).
		Where("id = ? AND enrollment_status = ?", id, enums.EnrollmentStatusRegistered).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
