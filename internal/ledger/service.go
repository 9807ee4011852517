package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/enrollment-backend/pkg/auth"
	"github.com/angelmondragon/enrollment-backend/pkg/db"
	"github.com/angelmondragon/enrollment-backend/pkg/db/models"
	"github.com/angelmondragon/enrollment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/enrollment-backend/pkg/errors"
)

// Service creates fee obligations and serves ledger reads. Payments are
// applied by the clearance processor, never here.
type Service interface {
	EnsureFeeEntry(ctx context.Context, tx *gorm.DB, input FeeEntryInput) (*models.LedgerEntry, bool, error)
	GetEntry(ctx context.Context, principal auth.Principal, id uuid.UUID) (*EntryDTO, error)
	ListForApplication(ctx context.Context, principal auth.Principal, applicationID uuid.UUID) ([]EntryDTO, error)
	ListForTrainee(ctx context.Context, principal auth.Principal, traineeID uuid.UUID) ([]EntryDTO, error)
}

// FeeEntryInput identifies the one-per-application obligation to create.
type FeeEntryInput struct {
	OrganizationID uuid.UUID
	ApplicationID  uuid.UUID
	Purpose        enums.FeePurpose
}

type service struct {
	repo Repository
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

// EnsureFeeEntry returns the application's entry for input.Purpose, creating
// it from the organization's active fee type when absent. The boolean reports
// whether a row was created. ErrFeeNotConfigured is returned bare so callers
// can choose between degrading and failing.
func (s *service) EnsureFeeEntry(ctx context.Context, tx *gorm.DB, input FeeEntryInput) (*models.LedgerEntry, bool, error) {
	if tx == nil {
		return nil, false, fmt.Errorf("transaction required")
	}
	if input.OrganizationID == uuid.Nil || input.ApplicationID == uuid.Nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "organization and application are required")
	}
	if !input.Purpose.IsValid() || input.Purpose.IsRecurring() {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid one-off fee purpose %q", input.Purpose))
	}
	repo := s.repo.WithTx(tx)

	existing, err := repo.FindEntryByApplicationPurpose(ctx, input.ApplicationID, input.Purpose)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load fee entry")
	}

	feeType, err := repo.FindActiveFeeType(ctx, input.OrganizationID, input.Purpose)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrFeeNotConfigured
		}
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load fee type")
	}
	if feeType.AmountCents <= 0 {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "fee type amount must be positive")
	}

	entry := NewEntry(input.OrganizationID, input.Purpose, feeType.AmountCents, feeType.Name)
	appID := input.ApplicationID
	feeTypeID := feeType.ID
	entry.ApplicationID = &appID
	entry.FeeTypeID = &feeTypeID

	// Savepoint so a racing insert does not poison the caller's transaction.
	err = tx.Transaction(func(inner *gorm.DB) error {
		return s.repo.WithTx(inner).CreateEntry(ctx, &entry)
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			existing, findErr := repo.FindEntryByApplicationPurpose(ctx, input.ApplicationID, input.Purpose)
			if findErr != nil {
				return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "reload fee entry")
			}
			return existing, false, nil
		}
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create fee entry")
	}
	return &entry, true, nil
}

func (s *service) GetEntry(ctx context.Context, principal auth.Principal, id uuid.UUID) (*EntryDTO, error) {
	if err := principal.Require(enums.RoleBursar, enums.RoleRegistrar); err != nil {
		return nil, err
	}
	entry, err := s.repo.FindEntry(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrLedgerEntryNotFound, "ledger entry not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger entry")
	}
	if !principal.CanAccess(entry.OrganizationID) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrLedgerEntryNotFound, "ledger entry not found")
	}
	payments, err := s.repo.ListPayments(ctx, entry.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	dto := FromModel(entry, payments)
	return &dto, nil
}

func (s *service) ListForApplication(ctx context.Context, principal auth.Principal, applicationID uuid.UUID) ([]EntryDTO, error) {
	if err := principal.Require(enums.RoleBursar, enums.RoleRegistrar); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListByApplication(ctx, applicationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger entries")
	}
	out := make([]EntryDTO, 0, len(entries))
	for i := range entries {
		if !principal.CanAccess(entries[i].OrganizationID) {
			continue
		}
		out = append(out, FromModel(&entries[i], nil))
	}
	return out, nil
}

// ListForTrainee returns the trainee's obligations in the principal's
// organization, recurring hostel periods included.
func (s *service) ListForTrainee(ctx context.Context, principal auth.Principal, traineeID uuid.UUID) ([]EntryDTO, error) {
	if err := principal.Require(enums.RoleBursar, enums.RoleRegistrar); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListByTrainee(ctx, principal.OrganizationID, traineeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list trainee ledger")
	}
	out := make([]EntryDTO, 0, len(entries))
	for i := range entries {
		out = append(out, FromModel(&entries[i], nil))
	}
	return out, nil
}
