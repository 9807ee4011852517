package provisioning

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/enrollment-backend/internal/applications"
	"github.com/angelmondragon/enrollment-backend/internal/users"
	"github.com/angelmondragon/enrollment-backend/pkg/auth"
	"github.com/angelmondragon/enrollment-backend/pkg/config"
	"github.com/angelmondragon/enrollment-backend/pkg/db"
	"github.com/angelmondragon/enrollment-backend/pkg/db/models"
	"github.com/angelmondragon/enrollment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/enrollment-backend/pkg/errors"
	"github.com/angelmondragon/enrollment-backend/pkg/logger"
	"github.com/angelmondragon/enrollment-backend/pkg/metrics"
	"github.com/angelmondragon/enrollment-backend/pkg/outbox"
)

var (
	ErrNotEligible            = errors.New("application is not eligible for provisioning")
	ErrProvisioningInProgress = errors.New("application changed while provisioning")

	// errLinkedConcurrently rolls back a link that lost to an identical one.
	errLinkedConcurrently = errors.New("identity linked by a concurrent request")
)

const (
	ReasonInsufficientQualification = "insufficient_qualification_status"
	ReasonAlreadyProvisioned        = "already_provisioned"
	ReasonProvisioningFailed        = "provisioning_failed"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type passwordHasher interface {
	Hash(password string) (string, error)
}

// RoleAssigner grants the default role inside the linkage transaction.
type RoleAssigner interface {
	AssignRole(ctx context.Context, tx *gorm.DB, userID, organizationID uuid.UUID, role enums.Role) error
}

type identityRoles struct {
	users users.Repository
}

// NewRoleAssigner grants roles through the identity store.
func NewRoleAssigner(usersRepo users.Repository) RoleAssigner {
	return identityRoles{users: usersRepo}
}

func (r identityRoles) AssignRole(ctx context.Context, tx *gorm.DB, userID, organizationID uuid.UUID, role enums.Role) error {
	return r.users.WithTx(tx).AssignRole(ctx, userID, organizationID, role)
}

// Result is returned by Provision.
type Result struct {
	ApplicationID uuid.UUID                 `json:"application_id"`
	UserID        uuid.UUID                 `json:"user_id"`
	Email         string                    `json:"email"`
	Outcome       enums.ProvisioningOutcome `json:"outcome"`
}

type Service interface {
	Provision(ctx context.Context, principal auth.Principal, applicationID uuid.UUID, forceReprovision bool) (*Result, error)
	History(ctx context.Context, principal auth.Principal, applicationID uuid.UUID) ([]models.ProvisioningRecord, error)
}

type service struct {
	apps    applications.Repository
	users   users.Repository
	records Repository
	roles   RoleAssigner
	hasher  passwordHasher
	tx      txRunner
	outbox  outboxPublisher
	metrics *metrics.PipelineMetrics
	logg    *logger.Logger

	defaultCredential string
	defaultRole       enums.Role
}

// Deps groups the collaborators of the provisioner.
type Deps struct {
	Applications applications.Repository
	Users        users.Repository
	Records      Repository
	Roles        RoleAssigner
	Hasher       passwordHasher
	Tx           txRunner
	Outbox       outboxPublisher
	Metrics      *metrics.PipelineMetrics
	Logger       *logger.Logger
}

func NewService(deps Deps, cfg config.ProvisioningConfig) (Service, error) {
	if deps.Applications == nil {
		return nil, fmt.Errorf("application repository required")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if deps.Records == nil {
		return nil, fmt.Errorf("provisioning repository required")
	}
	if deps.Hasher == nil {
		return nil, fmt.Errorf("password hasher required")
	}
	if deps.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if deps.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if cfg.DefaultCredential == "" {
		return nil, fmt.Errorf("default credential required")
	}
	role, err := enums.ParseRole(cfg.DefaultRole)
	if err != nil {
		return nil, fmt.Errorf("default role: %w", err)
	}
	roles := deps.Roles
	if roles == nil {
		roles = NewRoleAssigner(deps.Users)
	}
	return &service{
		apps:              deps.Applications,
		users:             deps.Users,
		records:           deps.Records,
		roles:             roles,
		hasher:            deps.Hasher,
		tx:                deps.Tx,
		outbox:            deps.Outbox,
		metrics:           deps.Metrics,
		logg:              deps.Logger,
		defaultCredential: cfg.DefaultCredential,
		defaultRole:       role,
	}, nil
}

// Provision creates or links the login identity of a cleared applicant. It is
// safe to call repeatedly: an existing identity is found by system e-mail and
// linked instead of duplicated.
func (s *service) Provision(ctx context.Context, principal auth.Principal, applicationID uuid.UUID, forceReprovision bool) (*Result, error) {
	if err := principal.Require(enums.RoleRegistrar); err != nil {
		return nil, err
	}
	app, err := applications.Load(ctx, s.apps, principal, applicationID)
	if err != nil {
		return nil, err
	}
	if app.QualificationStatus != enums.QualificationStatusProvisionallyQualified || !app.HasIdentifiers() {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStateConflict, ErrNotEligible, "applicant has not cleared the application fee").
			WithReason(ReasonInsufficientQualification)
	}
	email := *app.SystemEmail

	if app.UserID != nil && !forceReprovision {
		s.metrics.IncProvisioning(string(enums.ProvisioningOutcomeAlreadyExisted))
		return &Result{ApplicationID: app.ID, UserID: *app.UserID, Email: email, Outcome: enums.ProvisioningOutcomeAlreadyExisted}, nil
	}

	// A forced re-provision of a linked identity keeps the axis at provisioned
	// so user_id never coexists with a non-provisioned status.
	linkFrom := enums.AccountProvisioningProvisioned
	if app.UserID == nil {
		linkFrom = enums.AccountProvisioningPending
		if err := s.markPending(ctx, app); err != nil {
			return nil, err
		}
	}

	user, outcome, err := s.ensureIdentity(ctx, app, email, forceReprovision)
	if err != nil {
		return nil, s.fail(ctx, principal, app, email, forceReprovision, nil, err)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.roles.AssignRole(ctx, tx, user.ID, app.OrganizationID, s.defaultRole); err != nil {
			return fmt.Errorf("assign role: %w", err)
		}
		changed, err := s.apps.WithTx(tx).Transition(ctx, app.ID,
			map[string]any{"account_provisioning_status": linkFrom},
			map[string]any{
				"user_id":                     user.ID,
				"account_provisioning_status": enums.AccountProvisioningProvisioned,
			})
		if err != nil {
			return fmt.Errorf("link identity: %w", err)
		}
		if !changed {
			current, err := s.apps.WithTx(tx).FindByID(ctx, app.ID)
			if err != nil {
				return fmt.Errorf("reload application: %w", err)
			}
			if current.IsProvisioned() && *current.UserID == user.ID {
				return errLinkedConcurrently
			}
			return ErrProvisioningInProgress
		}
		userID := user.ID
		if err := s.records.WithTx(tx).Create(ctx, &models.ProvisioningRecord{
			ApplicationID: app.ID,
			Outcome:       outcome,
			UserID:        &userID,
			SystemEmail:   email,
			Forced:        forceReprovision,
			RequestedBy:   principal.UserID,
		}); err != nil {
			return fmt.Errorf("record attempt: %w", err)
		}
		return s.outbox.Emit(ctx, tx, provisionedEvent(principal, app, user.ID, email, outcome))
	})
	if errors.Is(err, errLinkedConcurrently) {
		err = nil
		outcome = enums.ProvisioningOutcomeAlreadyExisted
	}
	if err != nil {
		return nil, s.fail(ctx, principal, app, email, forceReprovision, &user.ID, err)
	}

	s.metrics.IncProvisioning(string(outcome))
	if s.logg != nil {
		logCtx := s.logg.WithApplicationID(ctx, app.ID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{"user_id": user.ID.String(), "outcome": outcome})
		s.logg.Info(logCtx, "identity provisioned")
	}
	return &Result{ApplicationID: app.ID, UserID: user.ID, Email: email, Outcome: outcome}, nil
}

func (s *service) History(ctx context.Context, principal auth.Principal, applicationID uuid.UUID) ([]models.ProvisioningRecord, error) {
	if err := principal.Require(enums.RoleRegistrar); err != nil {
		return nil, err
	}
	if _, err := applications.Load(ctx, s.apps, principal, applicationID); err != nil {
		return nil, err
	}
	records, err := s.records.ListByApplication(ctx, applicationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list provisioning records")
	}
	return records, nil
}

// markPending moves the provisioning axis to pending. A row already pending
// from an interrupted attempt is resumed as is.
func (s *service) markPending(ctx context.Context, app *models.Application) error {
	current := app.AccountProvisioningStatus
	if current != nil && *current == enums.AccountProvisioningPending {
		return nil
	}
	if !applications.CanAdvanceProvisioning(current, enums.AccountProvisioningPending) {
		return applications.InvalidTransition(ReasonAlreadyProvisioned, "account is already provisioned")
	}
	expect := map[string]any{"account_provisioning_status": nil}
	if current != nil {
		expect["account_provisioning_status"] = *current
	}
	changed, err := s.apps.Transition(ctx, app.ID, expect, map[string]any{
		"account_provisioning_status": enums.AccountProvisioningPending,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark provisioning pending")
	}
	if !changed {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, ErrProvisioningInProgress, "application changed while provisioning")
	}
	pending := enums.AccountProvisioningPending
	app.AccountProvisioningStatus = &pending
	return nil
}

// ensureIdentity finds or creates the identity for email. A concurrent
// creation surfaces as a unique violation and is resolved by re-reading.
func (s *service) ensureIdentity(ctx context.Context, app *models.Application, email string, force bool) (*models.User, enums.ProvisioningOutcome, error) {
	existing, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if force {
			hash, err := s.hasher.Hash(s.defaultCredential)
			if err != nil {
				return nil, "", fmt.Errorf("hash credential: %w", err)
			}
			if err := s.users.ResetCredential(ctx, existing.ID, hash); err != nil {
				return nil, "", fmt.Errorf("reset credential: %w", err)
			}
		}
		return existing, enums.ProvisioningOutcomeAlreadyExisted, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, "", fmt.Errorf("lookup identity: %w", err)
	}

	hash, err := s.hasher.Hash(s.defaultCredential)
	if err != nil {
		return nil, "", fmt.Errorf("hash credential: %w", err)
	}
	created, err := s.users.Create(ctx, users.CreateUserDTO{
		Email:              email,
		PasswordHash:       hash,
		FirstName:          app.FirstName,
		LastName:           app.LastName,
		MustChangePassword: true,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			existing, findErr := s.users.FindByEmail(ctx, email)
			if findErr != nil {
				return nil, "", fmt.Errorf("lookup identity after conflict: %w", findErr)
			}
			return existing, enums.ProvisioningOutcomeAlreadyExisted, nil
		}
		return nil, "", fmt.Errorf("create identity: %w", err)
	}
	return created, enums.ProvisioningOutcomeCreated, nil
}

// fail records the failed attempt, flips the axis to failed and returns a
// retryable error. Bookkeeping errors are logged; the original cause wins.
func (s *service) fail(ctx context.Context, principal auth.Principal, app *models.Application, email string, forced bool, userID *uuid.UUID, cause error) error {
	s.metrics.IncProvisioning(string(enums.ProvisioningOutcomeFailed))
	message := cause.Error()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.apps.WithTx(tx).Transition(ctx, app.ID,
			map[string]any{"account_provisioning_status": enums.AccountProvisioningPending},
			map[string]any{"account_provisioning_status": enums.AccountProvisioningFailed},
		); err != nil {
			return err
		}
		if err := s.records.WithTx(tx).Create(ctx, &models.ProvisioningRecord{
			ApplicationID: app.ID,
			Outcome:       enums.ProvisioningOutcomeFailed,
			UserID:        userID,
			SystemEmail:   email,
			Forced:        forced,
			Error:         &message,
			RequestedBy:   principal.UserID,
		}); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, provisioningFailedEvent(principal, app, message))
	})
	if s.logg != nil {
		logCtx := s.logg.WithApplicationID(ctx, app.ID.String())
		s.logg.Error(logCtx, "identity provisioning failed", cause)
		if err != nil {
			s.logg.Error(logCtx, "failed to record provisioning failure", err)
		}
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, cause, "account provisioning failed; retry").WithReason(ReasonProvisioningFailed)
}
