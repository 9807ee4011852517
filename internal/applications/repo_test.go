package applications

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/enrollment-backend/pkg/db/dbtest"
	"github.com/angelmondragon/enrollment-backend/pkg/db/models"
	"github.com/angelmondragon/enrollment-backend/pkg/enums"
)

func TestCountTraineeNumbersMatchesPrefixLiterally(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	orgID := uuid.New()

	for i, number := range []string{"K_C/2026/00001", "KXC/2026/00002", "K%C/2026/00003", "K_C/2025/00001"} {
		number := number
		require.NoError(t, conn.Create(&models.Application{
			OrganizationID:      orgID,
			NationalID:          "NID" + string(rune('A'+i)),
			FirstName:           "Aline",
			LastName:            "Uwase",
			QualificationStatus: enums.QualificationStatusProvisionallyQualified,
			RegistrationStatus:  enums.RegistrationStatusPaymentCleared,
			TraineeNumber:       &number,
		}).Error)
	}

	count, err := repo.CountTraineeNumbers(context.Background(), orgID, TraineeNumberPrefix("k_c", 2026))
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	count, err = repo.CountTraineeNumbers(context.Background(), orgID, TraineeNumberPrefix("K%C", 2026))
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	count, err = repo.CountTraineeNumbers(context.Background(), uuid.New(), TraineeNumberPrefix("K_C", 2026))
	require.NoError(t, err)
	require.Zero(t, count)
}
