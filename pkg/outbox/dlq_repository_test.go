package outbox

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/enrollment-backend/pkg/db/dbtest"
	"github.com/angelmondragon/enrollment-backend/pkg/db/models"
	"github.com/angelmondragon/enrollment-backend/pkg/enums"
)

func TestDLQInsertAndFind(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewDLQRepository(conn)
	eventID := uuid.New()
	msg := strings.Repeat("é", maxDLQErrorLen)

	require.NoError(t, repo.InsertTx(conn, models.OutboxDLQ{
		EventID:       eventID,
		EventType:     enums.EventApplicationSubmitted,
		AggregateType: enums.AggregateApplication,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{}`),
		ErrorReason:   enums.OutboxDLQReasonUnknownEvent,
		ErrorMessage:  &msg,
	}))

	found, err := repo.FindByEventID(context.Background(), eventID)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, enums.OutboxDLQReasonUnknownEvent, found.ErrorReason)
	require.False(t, found.FailedAt.IsZero())
	require.LessOrEqual(t, len(*found.ErrorMessage), maxDLQErrorLen)
	require.True(t, utf8.ValidString(*found.ErrorMessage))

	missing, err := repo.FindByEventID(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestDLQRejectsUnknownReason(t *testing.T) {
	conn := dbtest.Open(t)
	err := NewDLQRepository(conn).InsertTx(conn, models.OutboxDLQ{
		EventID:     uuid.New(),
		ErrorReason: enums.OutboxDLQErrorReason("gave_up"),
	})
	require.Error(t, err)
}
