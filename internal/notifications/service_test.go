package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/enrollment-backend/pkg/auth"
	"github.com/angelmondragon/enrollment-backend/pkg/db/dbtest"
	"github.com/angelmondragon/enrollment-backend/pkg/db/models"
	"github.com/angelmondragon/enrollment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/enrollment-backend/pkg/errors"
)

func seedInbox(t *testing.T, repo Repository, orgID, userID uuid.UUID, n int) {
	t.Helper()
	rows := make([]models.Notification, 0, n)
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		rows = append(rows, models.Notification{
			OrganizationID: orgID,
			UserID:         userID,
			EventID:        uuid.New(),
			Type:           enums.NotificationTypeFinance,
			Title:          "Payment recorded",
			Message:        "A payment was recorded.",
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		})
	}
	inserted, err := repo.CreateMany(context.Background(), rows)
	require.NoError(t, err)
	require.EqualValues(t, n, inserted)
}

func TestInboxPagination(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo)
	require.NoError(t, err)
	orgID := uuid.New()
	p := auth.Principal{UserID: uuid.New(), OrganizationID: orgID, Role: enums.RoleBursar}
	seedInbox(t, repo, orgID, p.UserID, 3)
	seedInbox(t, repo, orgID, uuid.New(), 2)

	page, err := svc.List(context.Background(), p, ListParams{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.Cursor)
	require.True(t, page.Items[0].CreatedAt.After(page.Items[1].CreatedAt))

	rest, err := svc.List(context.Background(), p, ListParams{Limit: 2, Cursor: page.Cursor})
	require.NoError(t, err)
	require.Len(t, rest.Items, 1)
	require.Empty(t, rest.Cursor)

	_, err = svc.List(context.Background(), p, ListParams{Cursor: "%%%"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestInboxMarkRead(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo)
	require.NoError(t, err)
	orgID := uuid.New()
	p := auth.Principal{UserID: uuid.New(), OrganizationID: orgID, Role: enums.RoleRegistrar}
	seedInbox(t, repo, orgID, p.UserID, 2)

	page, err := svc.List(context.Background(), p, ListParams{UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)

	require.NoError(t, svc.MarkRead(context.Background(), p, page.Items[0].ID))
	require.NoError(t, svc.MarkRead(context.Background(), p, page.Items[0].ID))

	other := auth.Principal{UserID: uuid.New(), OrganizationID: orgID, Role: enums.RoleRegistrar}
	err = svc.MarkRead(context.Background(), other, page.Items[1].ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	n, err := svc.MarkAllRead(context.Background(), p)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	deleted, err := repo.DeleteReadBefore(context.Background(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 2, deleted)
}

func TestCreateManyIgnoresRedelivery(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	row := models.Notification{
		OrganizationID: uuid.New(), UserID: uuid.New(), EventID: uuid.New(),
		Type: enums.NotificationTypeSystem, Title: "t", Message: "m",
	}
	n, err := repo.CreateMany(context.Background(), []models.Notification{row})
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	row.ID = uuid.Nil
	n, err = repo.CreateMany(context.Background(), []models.Notification{row})
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestInboxRequiresUser(t *testing.T) {
	svc, err := NewService(NewRepository(dbtest.Open(t)))
	require.NoError(t, err)
	_, err = svc.List(context.Background(), auth.Principal{OrganizationID: uuid.New(), Role: enums.RoleBursar}, ListParams{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}
