package registration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/enrollment-backend/internal/applications"
	"github.com/angelmondragon/enrollment-backend/internal/ledger"
	"github.com/angelmondragon/enrollment-backend/pkg/auth"
	"github.com/angelmondragon/enrollment-backend/pkg/db/models"
	"github.com/angelmondragon/enrollment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/enrollment-backend/pkg/errors"
	"github.com/angelmondragon/enrollment-backend/pkg/logger"
	"github.com/angelmondragon/enrollment-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type feeEntries interface {
	EnsureFeeEntry(ctx context.Context, tx *gorm.DB, input ledger.FeeEntryInput) (*models.LedgerEntry, bool, error)
}

// Service drives an admitted applicant through registration and enrollment.
type Service interface {
	Register(ctx context.Context, principal auth.Principal, applicationID uuid.UUID, input RegisterInput) (*RegisterResult, error)
	Finalize(ctx context.Context, principal auth.Principal, applicationID uuid.UUID, input FinalizeInput) (*TraineeDTO, error)
	GetTrainee(ctx context.Context, principal auth.Principal, applicationID uuid.UUID) (*TraineeDTO, error)
}

type service struct {
	applications applications.Repository
	trainees     Repository
	tx           txRunner
	outbox       outboxPublisher
	fees         feeEntries
	logg         *logger.Logger
	now          func() time.Time
}

func NewService(apps applications.Repository, trainees Repository, tx txRunner, outbox outboxPublisher, fees feeEntries, logg *logger.Logger) (Service, error) {
	if apps == nil {
		return nil, fmt.Errorf("application repository required")
	}
	if trainees == nil {
		return nil, fmt.Errorf("trainee repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if fees == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	return &service{
		applications: apps,
		trainees:     trainees,
		tx:           tx,
		outbox:       outbox,
		fees:         fees,
		logg:         logg,
		now:          time.Now,
	}, nil
}

// Register binds the chosen qualification and opens the registration-fee
// obligation. The registration fee entry is reused when it already exists.
func (s *service) Register(ctx context.Context, principal auth.Principal, applicationID uuid.UUID, input RegisterInput) (*RegisterResult, error) {
	if err := principal.Require(enums.RoleRegistrar); err != nil {
		return nil, err
	}
	if input.QualificationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "qualification_id is required")
	}

	var (
		app   *models.Application
		entry *models.LedgerEntry
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.applications.WithTx(tx)
		var err error
		app, err = applications.Load(ctx, repo, principal, applicationID)
		if err != nil {
			return err
		}
		if !applications.CanAdvanceRegistration(app.RegistrationStatus, enums.RegistrationStatusRegistrationFeePending) {
			return applications.InvalidTransition(ReasonNotRegistrable,
				fmt.Sprintf("application in %s cannot start registration", app.RegistrationStatus))
		}
		if !app.IsProvisioned() {
			return applications.InvalidTransition(ReasonAccountMissing, "applicant account has not been provisioned")
		}

		entry, _, err = s.fees.EnsureFeeEntry(ctx, tx, ledger.FeeEntryInput{
			OrganizationID: app.OrganizationID,
			ApplicationID:  app.ID,
			Purpose:        enums.FeePurposeRegistration,
		})
		if err != nil {
			if errors.Is(err, ledger.ErrFeeNotConfigured) {
				return feeNotConfigured()
			}
			return err
		}

		changed, err := repo.Transition(ctx, app.ID, map[string]any{
			"registration_status":         app.RegistrationStatus,
			"account_provisioning_status": enums.AccountProvisioningProvisioned,
		}, map[string]any{
			"registration_status": enums.RegistrationStatusRegistrationFeePending,
			"qualification_id":    input.QualificationID,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "start registration")
		}
		if !changed {
			return applications.InvalidTransition(applications.ReasonStatusChanged, "application changed while registering")
		}
		qualificationID := input.QualificationID
		app.QualificationID = &qualificationID
		app.RegistrationStatus = enums.RegistrationStatusRegistrationFeePending
		app.Version++

		return s.outbox.Emit(ctx, tx, registrationStartedEvent(principal, app, entry))
	})
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"application_id":  app.ID.String(),
			"ledger_entry_id": entry.ID.String(),
			"actor_id":        principal.UserID.String(),
		})
		s.logg.Info(ctx, "registration started")
	}
	return &RegisterResult{
		ApplicationID:      app.ID,
		RegistrationStatus: app.RegistrationStatus,
		QualificationID:    *app.QualificationID,
		LedgerEntryID:      entry.ID,
		AmountRequired:     ledger.FormatCents(entry.AmountRequiredCents),
		Balance:            ledger.FormatCents(entry.BalanceCents),
	}, nil
}

// Finalize confirms enrollment for a registered trainee.
func (s *service) Finalize(ctx context.Context, principal auth.Principal, applicationID uuid.UUID, input FinalizeInput) (*TraineeDTO, error) {
	if err := principal.Require(enums.RoleRegistrar); err != nil {
		return nil, err
	}

	var trainee *models.Trainee
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.applications.WithTx(tx)
		app, err := applications.Load(ctx, repo, principal, applicationID)
		if err != nil {
			return err
		}
		if !applications.CanAdvanceRegistration(app.RegistrationStatus, enums.RegistrationStatusFullyRegistered) {
			return applications.InvalidTransition(ReasonNotFinalizable,
				fmt.Sprintf("application in %s cannot be finalized", app.RegistrationStatus))
		}
		trainees := s.trainees.WithTx(tx)
		trainee, err = trainees.FindByApplication(ctx, app.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, ErrTraineeNotFound, "registered application has no trainee record")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load trainee")
		}

		changed, err := repo.Transition(ctx, app.ID, map[string]any{
			"registration_status": enums.RegistrationStatusRegistered,
		}, map[string]any{
			"registration_status": enums.RegistrationStatusFullyRegistered,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "finalize registration")
		}
		if !changed {
			return applications.InvalidTransition(applications.ReasonStatusChanged, "application changed while finalizing")
		}

		now := s.now().UTC()
		enrolled, err := trainees.Enroll(ctx, trainee.ID, input.ClassID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "enroll trainee")
		}
		if !enrolled {
			return applications.InvalidTransition(ReasonNotFinalizable, "trainee is already enrolled")
		}
		trainee.EnrollmentStatus = enums.EnrollmentStatusEnrolled
		trainee.EnrolledAt = &now
		if input.ClassID != nil {
			trainee.ClassID = input.ClassID
		}
		return s.outbox.Emit(ctx, tx, traineeFullyRegisteredEvent(principal, app, trainee))
	})
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"application_id": applicationID.String(),
			"trainee_id":     trainee.ID.String(),
		})
		s.logg.Info(ctx, "trainee fully registered")
	}
	return TraineeFromModel(trainee), nil
}

func (s *service) GetTrainee(ctx context.Context, principal auth.Principal, applicationID uuid.UUID) (*TraineeDTO, error) {
	if err := principal.Require(enums.RoleRegistrar, enums.RoleBursar); err != nil {
		return nil, err
	}
	if _, err := applications.Load(ctx, s.applications, principal, applicationID); err != nil {
		return nil, err
	}
	trainee, err := s.trainees.FindByApplication(ctx, applicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrTraineeNotFound, "trainee not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load trainee")
	}
	return TraineeFromModel(trainee), nil
}
