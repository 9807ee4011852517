package applications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/enrollment-backend/pkg/auth"
	"github.com/angelmondragon/enrollment-backend/pkg/db/models"
	"github.com/angelmondragon/enrollment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/enrollment-backend/pkg/errors"
)

// FeeHandler advances an application when its application fee clears. It runs
// inside the clearance transaction and is the only place trainee identifiers
// are minted.
type FeeHandler struct {
	repo   Repository
	outbox outboxPublisher
	now    func() time.Time
}

func NewFeeHandler(repo Repository, outbox outboxPublisher) (*FeeHandler, error) {
	if repo == nil {
		return nil, fmt.Errorf("application repository required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &FeeHandler{repo: repo, outbox: outbox, now: time.Now}, nil
}

// HandleCleared performs ClearApplicationFee for the entry's application.
func (h *FeeHandler) HandleCleared(ctx context.Context, tx *gorm.DB, principal auth.Principal, entry *models.LedgerEntry) error {
	if entry.Purpose != enums.FeePurposeApplication {
		return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("application fee handler received %s entry", entry.Purpose))
	}
	if entry.ApplicationID == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "application fee entry has no application")
	}
	_, err := h.ClearApplicationFee(ctx, tx, principal, *entry.ApplicationID)
	return err
}

// ClearApplicationFee flips pending_payment → payment_cleared and mints the
// trainee number and system e-mail in the same transaction.
func (h *FeeHandler) ClearApplicationFee(ctx context.Context, tx *gorm.DB, principal auth.Principal, applicationID uuid.UUID) (*models.Application, error) {
	repo := h.repo.WithTx(tx)
	app, err := Load(ctx, repo, principal, applicationID)
	if err != nil {
		return nil, err
	}
	if app.QualificationStatus != enums.QualificationStatusProvisionallyQualified {
		return nil, InvalidTransition(ReasonNotQualified, "application is not provisionally qualified")
	}
	if !CanAdvanceRegistration(app.RegistrationStatus, enums.RegistrationStatusPaymentCleared) {
		return nil, InvalidTransition(ReasonPaymentNotDue, "application is not awaiting its application fee")
	}
	org, err := repo.FindOrganization(ctx, app.OrganizationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load organization")
	}

	ids, err := mintAndClear(ctx, tx, repo, org, app, h.now())
	if err != nil {
		return nil, err
	}
	app.RegistrationStatus = enums.RegistrationStatusPaymentCleared
	app.TraineeNumber = &ids.TraineeNumber
	app.SystemEmail = &ids.SystemEmail
	app.Version++

	if err := h.outbox.Emit(ctx, tx, feeClearedEvent(principal, app, ids)); err != nil {
		return nil, err
	}
	return app, nil
}
