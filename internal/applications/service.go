package applications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/enrollment-backend/internal/ledger"
	"github.com/angelmondragon/enrollment-backend/pkg/auth"
	"github.com/angelmondragon/enrollment-backend/pkg/db"
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

type organizationGuard interface {
	EnsureWritable(ctx context.Context, id uuid.UUID) (*models.Organization, error)
}

// Service exposes the application store and its staff-driven transitions.
type Service interface {
	Submit(ctx context.Context, principal auth.Principal, input SubmitInput) (*ApplicationDTO, error)
	Get(ctx context.Context, principal auth.Principal, id uuid.UUID) (*ApplicationDTO, error)
	Screen(ctx context.Context, principal auth.Principal, id uuid.UUID, input ScreenInput) (*ApplicationDTO, error)
	Reject(ctx context.Context, principal auth.Principal, id uuid.UUID, remarks string) (*ApplicationDTO, error)
	Admit(ctx context.Context, principal auth.Principal, id uuid.UUID) (*ApplicationDTO, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	fees   feeEntries
	orgs   organizationGuard
	logg   *logger.Logger
	now    func() time.Time
}

func NewService(repo Repository, tx txRunner, outbox outboxPublisher, fees feeEntries, orgs organizationGuard, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("application repository required")
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
	if orgs == nil {
		return nil, fmt.Errorf("organization service required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: outbox,
		fees:   fees,
		orgs:   orgs,
		logg:   logg,
		now:    time.Now,
	}, nil
}

func (s *service) Submit(ctx context.Context, principal auth.Principal, input SubmitInput) (*ApplicationDTO, error) {
	if err := principal.Require(enums.RoleRegistrar); err != nil {
		return nil, err
	}
	input.NationalID = strings.TrimSpace(input.NationalID)
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	if input.NationalID == "" || input.FirstName == "" || input.LastName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "national id, first name and last name are required")
	}
	if _, err := s.orgs.EnsureWritable(ctx, principal.OrganizationID); err != nil {
		return nil, err
	}

	app := &models.Application{
		OrganizationID:      principal.OrganizationID,
		NationalID:          input.NationalID,
		FirstName:           input.FirstName,
		LastName:            input.LastName,
		Email:               input.Email,
		Phone:               input.Phone,
		TradeID:             input.TradeID,
		QualificationStatus: enums.QualificationStatusPending,
		RegistrationStatus:  enums.RegistrationStatusApplied,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, app); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, ErrDuplicateApplication, "an application with this national id already exists").
					WithReason(ReasonDuplicateNatID)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create application")
		}
		return s.outbox.Emit(ctx, tx, submittedEvent(principal, app))
	})
	if err != nil {
		return nil, err
	}
	s.logTransition(ctx, principal, app.ID, "application submitted")
	return FromModel(app), nil
}

func (s *service) Get(ctx context.Context, principal auth.Principal, id uuid.UUID) (*ApplicationDTO, error) {
	if err := principal.Require(enums.RoleRegistrar, enums.RoleBursar); err != nil {
		return nil, err
	}
	app, err := Load(ctx, s.repo, principal, id)
	if err != nil {
		return nil, err
	}
	return FromModel(app), nil
}

// Screen records the one-time qualification decision. A qualified applicant
// moves to pending_payment and receives an application-fee obligation when the
// organization has one configured.
func (s *service) Screen(ctx context.Context, principal auth.Principal, id uuid.UUID, input ScreenInput) (*ApplicationDTO, error) {
	if err := principal.Require(enums.RoleRegistrar); err != nil {
		return nil, err
	}
	if !input.Decision.IsScreeningDecision() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid screening decision %q", input.Decision))
	}
	if _, err := s.orgs.EnsureWritable(ctx, principal.OrganizationID); err != nil {
		return nil, err
	}

	var out *models.Application
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		app, err := Load(ctx, repo, principal, id)
		if err != nil {
			return err
		}
		if !CanQualify(app.QualificationStatus, input.Decision) {
			return InvalidTransition(ReasonAlreadyScreened, "application has already been screened")
		}

		now := s.now().UTC()
		remarks := strings.TrimSpace(input.Remarks)
		screener := principal.UserID
		updates := map[string]any{
			"qualification_status": input.Decision,
			"screening_remarks":    remarks,
			"screened_by":          screener,
			"screened_at":          now,
		}
		nextRegistration := app.RegistrationStatus
		if input.Decision == enums.QualificationStatusProvisionallyQualified {
			nextRegistration = enums.RegistrationStatusPendingPayment
			if !CanAdvanceRegistration(app.RegistrationStatus, nextRegistration) {
				return InvalidTransition(ReasonAlreadyScreened, "application is not awaiting screening")
			}
			updates["registration_status"] = nextRegistration
		}

		changed, err := repo.Transition(ctx, app.ID, map[string]any{
			"qualification_status": enums.QualificationStatusPending,
			"registration_status":  app.RegistrationStatus,
		}, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "screen application")
		}
		if !changed {
			return InvalidTransition(ReasonAlreadyScreened, "application has already been screened")
		}

		var feeEntryID *uuid.UUID
		if input.Decision == enums.QualificationStatusProvisionallyQualified {
			entry, _, err := s.fees.EnsureFeeEntry(ctx, tx, ledger.FeeEntryInput{
				OrganizationID: app.OrganizationID,
				ApplicationID:  app.ID,
				Purpose:        enums.FeePurposeApplication,
			})
			switch {
			case errors.Is(err, ledger.ErrFeeNotConfigured):
				if s.logg != nil {
					s.logg.Warn(s.logg.WithApplicationID(ctx, app.ID.String()), "no application fee type configured; skipping fee creation")
				}
			case err != nil:
				return err
			default:
				feeEntryID = &entry.ID
			}
		}

		app.QualificationStatus = input.Decision
		app.RegistrationStatus = nextRegistration
		app.ScreeningRemarks = &remarks
		app.ScreenedBy = &screener
		app.ScreenedAt = &now
		app.Version++
		out = app
		return s.outbox.Emit(ctx, tx, screenedEvent(principal, app, feeEntryID, remarks))
	})
	if err != nil {
		return nil, err
	}
	s.logTransition(ctx, principal, id, "application screened: "+string(input.Decision))
	return FromModel(out), nil
}

// Reject closes an application that did not qualify.
func (s *service) Reject(ctx context.Context, principal auth.Principal, id uuid.UUID, remarks string) (*ApplicationDTO, error) {
	if err := principal.Require(enums.RoleRegistrar); err != nil {
		return nil, err
	}
	var out *models.Application
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		app, err := Load(ctx, repo, principal, id)
		if err != nil {
			return err
		}
		if app.QualificationStatus != enums.QualificationStatusDoesNotQualify ||
			!CanAdvanceRegistration(app.RegistrationStatus, enums.RegistrationStatusRejected) {
			return InvalidTransition(ReasonNotRejectable, "only unqualified applications awaiting a decision can be rejected")
		}
		updates := map[string]any{"registration_status": enums.RegistrationStatusRejected}
		if remarks = strings.TrimSpace(remarks); remarks != "" {
			updates["screening_remarks"] = remarks
			app.ScreeningRemarks = &remarks
		}
		changed, err := repo.Transition(ctx, app.ID, map[string]any{
			"qualification_status": enums.QualificationStatusDoesNotQualify,
			"registration_status":  enums.RegistrationStatusApplied,
		}, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject application")
		}
		if !changed {
			return InvalidTransition(ReasonStatusChanged, "application changed concurrently")
		}
		app.RegistrationStatus = enums.RegistrationStatusRejected
		app.Version++
		out = app
		return s.outbox.Emit(ctx, tx, rejectedEvent(principal, app, remarks))
	})
	if err != nil {
		return nil, err
	}
	s.logTransition(ctx, principal, id, "application rejected")
	return FromModel(out), nil
}

// Admit records that the admission letter was issued.
func (s *service) Admit(ctx context.Context, principal auth.Principal, id uuid.UUID) (*ApplicationDTO, error) {
	if err := principal.Require(enums.RoleRegistrar); err != nil {
		return nil, err
	}
	var out *models.Application
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		app, err := Load(ctx, repo, principal, id)
		if err != nil {
			return err
		}
		if !CanAdvanceRegistration(app.RegistrationStatus, enums.RegistrationStatusProvisionallyAdmitted) {
			return InvalidTransition(ReasonNotAdmissible, "application fee has not been cleared")
		}
		changed, err := repo.Transition(ctx, app.ID,
			map[string]any{"registration_status": enums.RegistrationStatusPaymentCleared},
			map[string]any{"registration_status": enums.RegistrationStatusProvisionallyAdmitted})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "admit application")
		}
		if !changed {
			return InvalidTransition(ReasonStatusChanged, "application changed concurrently")
		}
		app.RegistrationStatus = enums.RegistrationStatusProvisionallyAdmitted
		app.Version++
		out = app
		return s.outbox.Emit(ctx, tx, admittedEvent(principal, app))
	})
	if err != nil {
		return nil, err
	}
	s.logTransition(ctx, principal, id, "application provisionally admitted")
	return FromModel(out), nil
}

// Load fetches an application visible to principal. Rows of other
// organizations are reported as missing.
func Load(ctx context.Context, repo Repository, principal auth.Principal, id uuid.UUID) (*models.Application, error) {
	app, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load application")
	}
	if !principal.CanAccess(app.OrganizationID) {
		return nil, notFound()
	}
	return app, nil
}

func (s *service) logTransition(ctx context.Context, principal auth.Principal, id uuid.UUID, msg string) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithOrganizationID(ctx, principal.OrganizationID.String())
	ctx = s.logg.WithApplicationID(ctx, id.String())
	ctx = s.logg.WithActorRole(ctx, string(principal.Role))
	s.logg.Info(ctx, msg)
}
