package recurring

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/enrollment-backend/internal/repo"
	"github.com/angelmondragon/enrollment-backend/pkg/db/models"
	"github.com/angelmondragon/enrollment-backend/pkg/enums"
)

// SourceRepository reads recurring obligation sources.
type SourceRepository interface {
	// ListActiveAllocations lists billable allocations of organizationID, or of
	// every organization when it is uuid.Nil.
	ListActiveAllocations(ctx context.Context, organizationID uuid.UUID) ([]models.HostelAllocation, error)
}

type sourceRepository struct {
	repo.Base
}

func NewSourceRepository(conn *gorm.DB) SourceRepository {
	return &sourceRepository{Base: repo.NewBase(conn)}
}

func (r *sourceRepository) ListActiveAllocations(ctx context.Context, organizationID uuid.UUID) ([]models.HostelAllocation, error) {
	var allocations []models.HostelAllocation
	query := r.DB(ctx).Where("status = ? AND monthly_amount_cents > 0", enums.AllocationStatusActive)
	if organizationID != uuid.Nil {
		query = query.Where("organization_id = ?", organizationID)
	}
	if err := query.
		Order("organization_id, created_at, id").
		Find(&allocations).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}
