package applications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/enrollment-backend/internal/ledger"
	"github.com/angelmondragon/enrollment-backend/internal/organizations"
	"github.com/angelmondragon/enrollment-backend/pkg/auth"
	"github.com/angelmondragon/enrollment-backend/pkg/db"
	"github.com/angelmondragon/enrollment-backend/pkg/db/dbtest"
	"github.com/angelmondragon/enrollment-backend/pkg/db/models"
	"github.com/angelmondragon/enrollment-backend/pkg/enums"
	"github.com/angelmondragon/enrollment-backend/pkg/outbox"
)

type fixture struct {
	conn      *gorm.DB
	svc       Service
	handler   *FeeHandler
	org       *models.Organization
	registrar auth.Principal
	bursar    auth.Principal
}

var fixedNow = time.Date(2026, 2, 3, 8, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, withFeeType bool) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	client := db.NewFromConn(conn)
	publisher := outbox.NewService(outbox.NewRepository(conn), nil)

	org := &models.Organization{Code: "KTC", Name: "Kigali Technical College", EmailDomain: "ktc.example", Status: enums.OrganizationStatusActive}
	require.NoError(t, conn.Create(org).Error)
	if withFeeType {
		require.NoError(t, conn.Create(&models.FeeType{
			OrganizationID: org.ID, Purpose: enums.FeePurposeApplication, Name: "Application fee", AmountCents: 2500, IsActive: true,
		}).Error)
	}

	orgSvc, err := organizations.NewService(organizations.NewRepository(conn), client, publisher, nil)
	require.NoError(t, err)
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	require.NoError(t, err)
	repo := NewRepository(conn)
	svc, err := NewService(repo, client, publisher, ledgerSvc, orgSvc, nil)
	require.NoError(t, err)
	svc.(*service).now = func() time.Time { return fixedNow }
	handler, err := NewFeeHandler(repo, publisher)
	require.NoError(t, err)
	handler.now = func() time.Time { return fixedNow }

	return &fixture{
		conn:      conn,
		svc:       svc,
		handler:   handler,
		org:       org,
		registrar: auth.Principal{UserID: uuid.New(), OrganizationID: org.ID, Role: enums.RoleRegistrar},
		bursar:    auth.Principal{UserID: uuid.New(), OrganizationID: org.ID, Role: enums.RoleBursar},
	}
}

func (f *fixture) submit(t *testing.T, nationalID string) *ApplicationDTO {
	t.Helper()
	dto, err := f.svc.Submit(context.Background(), f.registrar, SubmitInput{
		NationalID: nationalID, FirstName: "Aline", LastName: "Uwase",
	})
	require.NoError(t, err)
	return dto
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) *models.Application {
	t.Helper()
	var app models.Application
	require.NoError(t, f.conn.First(&app, "id = ?", id).Error)
	return &app
}

func (f *fixture) countEvents(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&n).Error)
	return n
}

func (f *fixture) clearFee(t *testing.T, id uuid.UUID) (*models.Application, error) {
	t.Helper()
	var app *models.Application
	err := f.conn.Transaction(func(tx *gorm.DB) error {
		var err error
		app, err = f.handler.ClearApplicationFee(context.Background(), tx, f.bursar, id)
		return err
	})
	return app, err
}
