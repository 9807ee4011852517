package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/enrollment-backend/internal/repo"
	"github.com/angelmondragon/enrollment-backend/pkg/db/models"
	"github.com/angelmondragon/enrollment-backend/pkg/enums"
)

// Repository manages ledger entries, their payment receipts and the fee catalogue.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateEntry(ctx context.Context, entry *models.LedgerEntry) error
	FindEntry(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error)
	FindEntryForUpdate(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error)
	FindEntryByApplicationPurpose(ctx context.Context, applicationID uuid.UUID, purpose enums.FeePurpose) (*models.LedgerEntry, error)
	ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]models.LedgerEntry, error)
	ListByTrainee(ctx context.Context, organizationID, traineeID uuid.UUID) ([]models.LedgerEntry, error)
	ListPeriodEntries(ctx context.Context, organizationID uuid.UUID, purpose enums.FeePurpose, period string) ([]models.LedgerEntry, error)
	CompareAndSwap(ctx context.Context, entry *models.LedgerEntry, expectedVersion int64) (bool, error)
	CreatePayment(ctx context.Context, payment *models.LedgerPayment) error
	ListPayments(ctx context.Context, entryID uuid.UUID) ([]models.LedgerPayment, error)
	FindActiveFeeType(ctx context.Context, organizationID uuid.UUID, purpose enums.FeePurpose) (*models.FeeType, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(conn)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) CreateEntry(ctx context.Context, entry *models.LedgerEntry) error {
	return r.DB(ctx).Create(entry).Error
}

func (r *repository) FindEntry(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	if err := r.DB(ctx).First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindEntryForUpdate loads the entry with a row lock held until the surrounding
// transaction ends.
func (r *repository) FindEntryForUpdate(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	if err := r.ForUpdate(ctx).First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) FindEntryByApplicationPurpose(ctx context.Context, applicationID uuid.UUID, purpose enums.FeePurpose) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	if err := r.DB(ctx).
		Where("application_id = ? AND purpose = ?", applicationID, purpose).
		First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	if err := r.DB(ctx).
		Where("application_id = ?", applicationID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListByTrainee(ctx context.Context, organizationID, traineeID uuid.UUID) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	if err := r.DB(ctx).
		Where("organization_id = ? AND trainee_id = ?", organizationID, traineeID).
		Order("period ASC, created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// ListPeriodEntries lists entries billed for period. uuid.Nil spans every organization.
func (r *repository) ListPeriodEntries(ctx context.Context, organizationID uuid.UUID, purpose enums.FeePurpose, period string) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	query := r.DB(ctx).Where("purpose = ? AND period = ?", purpose, period)
	if organizationID != uuid.Nil {
		query = query.Where("organization_id = ?", organizationID)
	}
	if err := query.
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// CompareAndSwap writes the payment-derived columns of entry only if the row
// still carries expectedVersion. It bumps the version on success.
func (r *repository) CompareAndSwap(ctx context.Context, entry *models.LedgerEntry, expectedVersion int64) (bool, error) {
	res := r.DB(ctx).
		Model(&models.LedgerEntry{}).
		Where("id = ? AND version = ?", entry.ID, expectedVersion).
		Updates(map[string]any{
			"amount_paid_cents": entry.AmountPaidCents,
			"balance_cents":     entry.BalanceCents,
			"credit_cents":      entry.CreditCents,
			"status":            entry.Status,
			"cleared_at":        entry.ClearedAt,
			"version":           expectedVersion + 1,
			"updated_at":        time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected != 1 {
		return false, nil
	}
	entry.Version = expectedVersion + 1
	return true, nil
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.LedgerPayment) error {
	return r.DB(ctx).Create(payment).Error
}

func (r *repository) ListPayments(ctx context.Context, entryID uuid.UUID) ([]models.LedgerPayment, error) {
	var payments []models.LedgerPayment
	if err := r.DB(ctx).
		Where("ledger_entry_id = ?", entryID).
		Order("created_at ASC").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repository) FindActiveFeeType(ctx context.Context, organizationID uuid.UUID, purpose enums.FeePurpose) (*models.FeeType, error) {
	var feeType models.FeeType
	if err := r.DB(ctx).
		Where("organization_id = ? AND purpose = ? AND is_active = ?", organizationID, purpose, true).
		Order("created_at DESC").
		First(&feeType).Error; err != nil {
		return nil, err
	}
	return &feeType, nil
}
