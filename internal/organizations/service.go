package organizations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/enrollment-backend/pkg/db/models"
	"github.com/angelmondragon/enrollment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/enrollment-backend/pkg/errors"
	"github.com/angelmondragon/enrollment-backend/pkg/logger"
	"github.com/angelmondragon/enrollment-backend/pkg/outbox"
	"github.com/angelmondragon/enrollment-backend/pkg/outbox/payloads"
)

const expiryBatchSize = 200

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// outboxPublisher queues at most one expiry notice per organization.
type outboxPublisher interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes tenant lookups and the trial lifecycle.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	EnsureWritable(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	ExpireTrials(ctx context.Context, now time.Time) (int, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
}

func NewService(repo Repository, tx txRunner, outbox outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("organization repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outbox, logg: logg}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	org, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "organization not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load organization")
	}
	return org, nil
}

// EnsureWritable loads the organization and rejects pipeline writes for
// expired or suspended tenants.
func (s *service) EnsureWritable(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	org, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !org.Status.AllowsPipelineWrites() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "organization is not active").WithReason("organization_inactive")
	}
	return org, nil
}

// ExpireTrials moves every trial that ended before now to expired. Running it
// twice is harmless: already expired tenants are skipped by the conditional
// update. A tenant whose trial was reopened and lapsed again is not notified twice.
func (s *service) ExpireTrials(ctx context.Context, now time.Time) (int, error) {
	expired := 0
	for {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		orgs, err := s.repo.ListTrialsEndedBefore(ctx, now, expiryBatchSize)
		if err != nil {
			return expired, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ended trials")
		}
		if len(orgs) == 0 {
			return expired, nil
		}
		for _, org := range orgs {
			org := org
			err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
				changed, err := s.repo.WithTx(tx).ExpireTrial(ctx, org.ID)
				if err != nil || !changed {
					return err
				}
				expired++
				return s.outbox.EmitIfNotExists(ctx, tx, trialExpiredEvent(org))
			})
			if err != nil {
				return expired, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire trial")
			}
			if s.logg != nil {
				s.logg.Info(s.logg.WithOrganizationID(ctx, org.ID.String()), "organization trial expired")
			}
		}
		if len(orgs) < expiryBatchSize {
			return expired, nil
		}
	}
}

func trialExpiredEvent(org models.Organization) outbox.DomainEvent {
	endsAt := time.Time{}
	if org.TrialEndsAt != nil {
		endsAt = org.TrialEndsAt.UTC()
	}
	return outbox.DomainEvent{
		EventType:     enums.EventOrganizationTrialExpired,
		AggregateType: enums.AggregateOrganization,
		AggregateID:   org.ID,
		Data: payloads.OrganizationTrialExpiredEvent{
			WithNotice: payloads.WithNotice{Notice: &payloads.Notice{
				Type:       enums.NotificationTypeSystem,
				Title:      "Trial expired",
				Message:    fmt.Sprintf("The trial for %s has ended. Pipeline writes are paused until the subscription is activated.", org.Name),
				Recipients: []payloads.Recipient{payloads.RoleRecipient(org.ID, enums.RoleAdmin)},
			}},
			OrganizationID: org.ID,
			TrialEndsAt:    endsAt,
		},
	}
}
