package applications

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/enrollment-backend/internal/repo"
	"github.com/angelmondragon/enrollment-backend/pkg/db/models"
)

// Repository persists applications. Every state change goes through
// Transition so the expected current values are re-checked by the database.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, app *models.Application) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Application, error)
	FindOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	Transition(ctx context.Context, id uuid.UUID, expect map[string]any, updates map[string]any) (bool, error)
	CountTraineeNumbers(ctx context.Context, organizationID uuid.UUID, prefix string) (int64, error)
	IdentifierTaken(ctx context.Context, traineeNumber, systemEmail string) (bool, error)
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

func (r *repository) Create(ctx context.Context, app *models.Application) error {
	return r.DB(ctx).Create(app).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	var app models.Application
	if err := r.DB(ctx).First(&app, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *repository) FindOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	var org models.Organization
	if err := r.DB(ctx).First(&org, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

// Transition applies updates only when every column in expect still holds its
// expected value (nil means IS NULL). It reports whether the row changed.
func (r *repository) Transition(ctx context.Context, id uuid.UUID, expect map[string]any, updates map[string]any) (bool, error) {
	q := r.DB(ctx).Model(&models.Application{}).Where("id = ?", id)
	for column, value := range expect {
		if value == nil {
			q = q.Where(column + " IS NULL")
			continue
		}
		q = q.Where(column+" = ?", value)
	}
	values := make(map[string]any, len(updates)+1)
	for k, v := range updates {
		values[k] = v
	}
	values["version"] = gorm.Expr("version + 1")
	res := q.Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// CountTraineeNumbers counts numbers starting with prefix. Wildcards in the
// prefix match literally.
func (r *repository) CountTraineeNumbers(ctx context.Context, organizationID uuid.UUID, prefix string) (int64, error) {
	var count int64
	err := r.DB(ctx).
		Model(&models.Application{}).
		Where(`organization_id = ? AND trainee_number LIKE ? ESCAPE '\'`, organizationID, likeEscaper.Replace(prefix)+"%").
		Count(&count).Error
	return count, err
}

func (r *repository) IdentifierTaken(ctx context.Context, traineeNumber, systemEmail string) (bool, error) {
	var count int64
	err := r.DB(ctx).
		Model(&models.Application{}).
		Where("trainee_number = ? OR system_email = ?", traineeNumber, systemEmail).
		Count(&count).Error
	return count > 0, err
}
