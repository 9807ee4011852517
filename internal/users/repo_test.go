package users

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/enrollment-backend/pkg/db"
	"github.com/angelmondragon/enrollment-backend/pkg/db/dbtest"
	"github.com/angelmondragon/enrollment-backend/pkg/db/models"
	"github.com/angelmondragon/enrollment-backend/pkg/enums"
)

func TestCreateAndFindByEmailNormalizes(t *testing.T) {
	ctx := context.Background()
	r := NewRepository(dbtest.Open(t))

	created, err := r.Create(ctx, CreateUserDTO{
		Email:              "  Jane.Doe@Example.ORG ",
		PasswordHash:       "hash",
		FirstName:          "Jane",
		LastName:           "Doe",
		MustChangePassword: true,
	})
	require.NoError(t, err)
	require.Equal(t, "jane.doe@example.org", created.Email)
	require.True(t, created.IsActive)

	found, err := r.FindByEmail(ctx, "JANE.DOE@example.org")
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)
	require.True(t, found.MustChangePassword)
}

func TestCreateDuplicateEmailIsUniqueViolation(t *testing.T) {
	ctx := context.Background()
	r := NewRepository(dbtest.Open(t))

	_, err := r.Create(ctx, CreateUserDTO{Email: "a@x.org", PasswordHash: "h", FirstName: "A", LastName: "B"})
	require.NoError(t, err)
	_, err = r.Create(ctx, CreateUserDTO{Email: "A@x.org", PasswordHash: "h", FirstName: "A", LastName: "B"})
	require.Error(t, err)
	require.True(t, db.IsUniqueViolation(err, "users.email"))
}

func TestResetCredential(t *testing.T) {
	ctx := context.Background()
	r := NewRepository(dbtest.Open(t))

	u, err := r.Create(ctx, CreateUserDTO{Email: "b@x.org", PasswordHash: "old", FirstName: "B", LastName: "C"})
	require.NoError(t, err)

	require.NoError(t, r.ResetCredential(ctx, u.ID, "new"))
	reloaded, err := r.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "new", reloaded.PasswordHash)
	require.True(t, reloaded.MustChangePassword)

	require.Error(t, r.ResetCredential(ctx, uuid.New(), "x"))
}

func TestAssignRoleIsIdempotent(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.Open(t)
	r := NewRepository(conn)
	orgID := uuid.New()

	u, err := r.Create(ctx, CreateUserDTO{Email: "c@x.org", PasswordHash: "h", FirstName: "C", LastName: "D"})
	require.NoError(t, err)

	require.NoError(t, r.AssignRole(ctx, u.ID, orgID, enums.RoleTrainee))
	require.NoError(t, r.AssignRole(ctx, u.ID, orgID, enums.RoleTrainee))

	var count int64
	require.NoError(t, conn.Model(&models.UserRole{}).Where("user_id = ?", u.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)

	ok, err := r.HasRole(ctx, u.ID, orgID, enums.RoleTrainee)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestListUserIDsByRoleSkipsInactive(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.Open(t)
	r := NewRepository(conn)
	orgID := uuid.New()

	active, err := r.Create(ctx, CreateUserDTO{Email: "bursar1@x.org", PasswordHash: "h", FirstName: "A", LastName: "A"})
	require.NoError(t, err)
	inactive, err := r.Create(ctx, CreateUserDTO{Email: "bursar2@x.org", PasswordHash: "h", FirstName: "B", LastName: "B"})
	require.NoError(t, err)
	require.NoError(t, conn.Model(&models.User{}).Where("id = ?", inactive.ID).Update("is_active", false).Error)
	other, err := r.Create(ctx, CreateUserDTO{Email: "reg@x.org", PasswordHash: "h", FirstName: "C", LastName: "C"})
	require.NoError(t, err)

	require.NoError(t, r.AssignRole(ctx, active.ID, orgID, enums.RoleBursar))
	require.NoError(t, r.AssignRole(ctx, inactive.ID, orgID, enums.RoleBursar))
	require.NoError(t, r.AssignRole(ctx, other.ID, orgID, enums.RoleRegistrar))
	require.NoError(t, r.AssignRole(ctx, other.ID, uuid.New(), enums.RoleBursar))

	ids, err := r.ListUserIDsByRole(ctx, orgID, enums.RoleBursar)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{active.ID}, ids)
}

func TestUpdateLastLogin(t *testing.T) {
	ctx := context.Background()
	r := NewRepository(dbtest.Open(t))
	u, err := r.Create(ctx, CreateUserDTO{Email: "d@x.org", PasswordHash: "h", FirstName: "D", LastName: "E"})
	require.NoError(t, err)

	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, r.UpdateLastLogin(ctx, u.ID, at))
	reloaded, err := r.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.LastLoginAt)
	require.True(t, at.Equal(reloaded.LastLoginAt.UTC()))
}

func TestListGrantsAndSetPassword(t *testing.T) {
	ctx := context.Background()
	r := NewRepository(dbtest.Open(t))
	user, err := r.Create(ctx, CreateUserDTO{Email: "grants@example.org", PasswordHash: "old", FirstName: "G", LastName: "R", MustChangePassword: true})
	require.NoError(t, err)

	orgID := uuid.New()
	require.NoError(t, r.AssignRole(ctx, user.ID, orgID, enums.RoleBursar))
	require.NoError(t, r.AssignRole(ctx, user.ID, orgID, enums.RoleRegistrar))
	grants, err := r.ListGrants(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, grants, 2)

	require.NoError(t, r.SetPassword(ctx, user.ID, "new"))
	found, err := r.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "new", found.PasswordHash)
	require.False(t, found.MustChangePassword)

	require.Error(t, r.SetPassword(ctx, uuid.New(), "x"))
}
