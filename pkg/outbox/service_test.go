package outbox

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/enrollment-backend/pkg/db/dbtest"
	"github.com/angelmondragon/enrollment-backend/pkg/db/models"
	"github.com/angelmondragon/enrollment-backend/pkg/enums"
)

func TestEmitWritesEnvelopeInsideTx(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)
	aggregateID := uuid.New()
	actor := &ActorRef{UserID: uuid.New(), Role: string(enums.RoleRegistrar)}

	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventApplicationSubmitted,
			AggregateType: enums.AggregateApplication,
			AggregateID:   aggregateID,
			Actor:         actor,
			Data:          map[string]string{"national_id": "1199"},
		})
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, aggregateID, rows[0].AggregateID)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	require.Equal(t, 1, envelope.Version)
	require.NotEmpty(t, envelope.EventID)
	require.Equal(t, actor.UserID, envelope.Actor.UserID)
	require.JSONEq(t, `{"national_id":"1199"}`, string(envelope.Data))
}

func TestEmitRolledBackWithTx(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)

	_ = conn.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventApplicationScreened,
			AggregateType: enums.AggregateApplication,
			AggregateID:   uuid.New(),
			Data:          struct{}{},
		}))
		return gorm.ErrInvalidData
	})

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestEmitRequiresTx(t *testing.T) {
	svc := NewService(NewRepository(nil), nil)
	require.Error(t, svc.Emit(context.Background(), nil, DomainEvent{}))
}

func TestEmitRejectsUnknownTypes(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)

	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.OutboxEventType("application_teleported"),
			AggregateType: enums.AggregateApplication,
			AggregateID:   uuid.New(),
		})
	})
	require.ErrorContains(t, err, "invalid outbox event type")

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestEmitStampsOccurredAtFromClock(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)
	fixed := time.Date(2026, 1, 5, 8, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventApplicationSubmitted,
			AggregateType: enums.AggregateApplication,
			AggregateID:   uuid.New(),
			Data:          map[string]string{},
		})
	}))

	var row models.OutboxEvent
	require.NoError(t, conn.First(&row).Error)
	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(row.Payload, &envelope))
	require.True(t, fixed.Equal(envelope.OccurredAt))
}

func TestEmitIfNotExistsSkipsDuplicates(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)
	orgID := uuid.New()
	event := DomainEvent{
		EventType:     enums.EventOrganizationTrialExpired,
		AggregateType: enums.AggregateOrganization,
		AggregateID:   orgID,
		Data:          map[string]string{"organization_id": orgID.String()},
	}

	for i := 0; i < 2; i++ {
		require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
			return svc.EmitIfNotExists(context.Background(), tx, event)
		}))
	}

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestRepositoryFetchAndMark(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc := NewService(repo, nil)

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		for i := 0; i < 3; i++ {
			if err := svc.Emit(context.Background(), tx, DomainEvent{
				EventType:     enums.EventPaymentRecorded,
				AggregateType: enums.AggregateLedgerEntry,
				AggregateID:   uuid.New(),
				Data:          map[string]int{"n": i},
			}); err != nil {
				return err
			}
		}
		return nil
	}))

	rows, err := repo.FetchUnpublished(nil, 10, 2)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.NoError(t, repo.MarkPublished(nil, rows[0].ID))
	require.NoError(t, repo.MarkFailed(nil, rows[1].ID, gorm.ErrInvalidData))
	require.NoError(t, repo.MarkFailed(nil, rows[1].ID, gorm.ErrInvalidData))

	rows, err = repo.FetchUnpublished(nil, 10, 2)
	require.NoError(t, err)
	require.Len(t, rows, 1, "published and exhausted rows are excluded")
}
