package registration

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/enrollment-backend/internal/applications"
	"github.com/angelmondragon/enrollment-backend/pkg/auth"
	"github.com/angelmondragon/enrollment-backend/pkg/db"
	"github.com/angelmondragon/enrollment-backend/pkg/db/models"
	"github.com/angelmondragon/enrollment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/enrollment-backend/pkg/errors"
)

// FeeHandler completes registration when the registration fee clears. It runs
// inside the clearance transaction.
type FeeHandler struct {
	applications applications.Repository
	trainees     Repository
	outbox       outboxPublisher
}

func NewFeeHandler(apps applications.Repository, trainees Repository, outbox outboxPublisher) (*FeeHandler, error) {
	if apps == nil {
		return nil, fmt.Errorf("application repository required")
	}
	if trainees == nil {
		return nil, fmt.Errorf("trainee repository required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &FeeHandler{applications: apps, trainees: trainees, outbox: outbox}, nil
}

func (h *FeeHandler) HandleCleared(ctx context.Context, tx *gorm.DB, principal auth.Principal, entry *models.LedgerEntry) error {
	if entry.Purpose != enums.FeePurposeRegistration {
		return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("registration fee handler received %s entry", entry.Purpose))
	}
	if entry.ApplicationID == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "registration fee entry has no application")
	}
	_, err := h.CompleteRegistration(ctx, tx, principal, *entry.ApplicationID)
	return err
}

// CompleteRegistration moves registration_fee_pending → registered and creates
// the trainee record. An existing trainee for the application is reused.
func (h *FeeHandler) CompleteRegistration(ctx context.Context, tx *gorm.DB, principal auth.Principal, applicationID uuid.UUID) (*models.Trainee, error) {
	repo := h.applications.WithTx(tx)
	app, err := applications.Load(ctx, repo, principal, applicationID)
	if err != nil {
		return nil, err
	}
	if !applications.CanAdvanceRegistration(app.RegistrationStatus, enums.RegistrationStatusRegistered) {
		return nil, applications.InvalidTransition(applications.ReasonPaymentNotDue, "application is not awaiting its registration fee")
	}
	if !app.HasIdentifiers() || app.QualificationID == nil {
		return nil, applications.InvalidTransition(ReasonIdentifiersMissing, "application has no trainee number or qualification")
	}

	changed, err := repo.Transition(ctx, app.ID, map[string]any{
		"registration_status": enums.RegistrationStatusRegistrationFeePending,
	}, map[string]any{
		"registration_status": enums.RegistrationStatusRegistered,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete registration")
	}
	if !changed {
		return nil, applications.InvalidTransition(applications.ReasonStatusChanged, "application changed while completing registration")
	}
	app.RegistrationStatus = enums.RegistrationStatusRegistered
	app.Version++

	trainee, err := h.ensureTrainee(ctx, tx, app)
	if err != nil {
		return nil, err
	}
	if err := h.outbox.Emit(ctx, tx, traineeRegisteredEvent(principal, app, trainee)); err != nil {
		return nil, err
	}
	return trainee, nil
}

func (h *FeeHandler) ensureTrainee(ctx context.Context, tx *gorm.DB, app *models.Application) (*models.Trainee, error) {
	trainees := h.trainees.WithTx(tx)
	existing, err := trainees.FindByApplication(ctx, app.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load trainee")
	}

	trainee := &models.Trainee{
		OrganizationID:   app.OrganizationID,
		ApplicationID:    app.ID,
		UserID:           app.UserID,
		TraineeNumber:    *app.TraineeNumber,
		QualificationID:  *app.QualificationID,
		EnrollmentStatus: enums.EnrollmentStatusRegistered,
	}
	err = tx.Transaction(func(inner *gorm.DB) error {
		return h.trainees.WithTx(inner).Create(ctx, trainee)
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			existing, findErr := trainees.FindByApplication(ctx, app.ID)
			if findErr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "reload trainee")
			}
			return existing, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create trainee")
	}
	return trainee, nil
}
