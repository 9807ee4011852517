package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/enrollment-backend/internal/users"
	pkgAuth "github.com/angelmondragon/enrollment-backend/pkg/auth"
	"github.com/angelmondragon/enrollment-backend/pkg/config"
	"github.com/angelmondragon/enrollment-backend/pkg/db/dbtest"
	"github.com/angelmondragon/enrollment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/enrollment-backend/pkg/errors"
	"github.com/angelmondragon/enrollment-backend/pkg/security"
)

var (
	testJWT = config.JWTConfig{Secret: "secret", Issuer: "enrollment", ExpirationMinutes: 30}
	testPwd = config.PasswordConfig{ArgonMemoryKB: 8192, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}
)

type fixture struct {
	svc   Service
	users users.Repository
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	repo := users.NewRepository(dbtest.Open(t))
	svc, err := NewService(ServiceParams{UserRepo: repo, JWTConfig: testJWT, PasswordConfig: testPwd})
	require.NoError(t, err)
	return fixture{svc: svc, users: repo}
}

func (f fixture) seedUser(t *testing.T, email, password string, mustChange bool) uuid.UUID {
	t.Helper()
	hash, err := security.HashPassword(password, testPwd)
	require.NoError(t, err)
	user, err := f.users.Create(context.Background(), users.CreateUserDTO{
		Email:              email,
		PasswordHash:       hash,
		FirstName:          "Ama",
		LastName:           "Mensah",
		MustChangePassword: mustChange,
	})
	require.NoError(t, err)
	return user.ID
}

func TestLoginMintsTokenForOldestGrant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	userID := f.seedUser(t, "registrar@college.test", "correct-horse", false)
	orgA, orgB := uuid.New(), uuid.New()
	require.NoError(t, f.users.AssignRole(ctx, userID, orgA, enums.RoleRegistrar))
	require.NoError(t, f.users.AssignRole(ctx, userID, orgB, enums.RoleBursar))

	resp, err := f.svc.Login(ctx, LoginRequest{Email: "Registrar@College.test", Password: "correct-horse"})
	require.NoError(t, err)
	require.Len(t, resp.Grants, 2)
	require.Equal(t, orgA, resp.Active.OrganizationID)

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.NoError(t, err)
	principal := claims.Principal()
	require.Equal(t, userID, principal.UserID)
	require.Equal(t, enums.RoleRegistrar, principal.Role)
	require.NotNil(t, resp.User.LastLoginAt)
}

func TestLoginSelectsRequestedGrant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	userID := f.seedUser(t, "staff@college.test", "correct-horse", false)
	orgA, orgB := uuid.New(), uuid.New()
	require.NoError(t, f.users.AssignRole(ctx, userID, orgA, enums.RoleRegistrar))
	require.NoError(t, f.users.AssignRole(ctx, userID, orgB, enums.RoleBursar))

	resp, err := f.svc.Login(ctx, LoginRequest{Email: "staff@college.test", Password: "correct-horse", OrganizationID: &orgB})
	require.NoError(t, err)
	require.Equal(t, Grant{OrganizationID: orgB, Role: enums.RoleBursar}, resp.Active)

	_, err = f.svc.Login(ctx, LoginRequest{Email: "staff@college.test", Password: "correct-horse", OrganizationID: &orgB, Role: enums.RoleAdmin})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestLoginRejectsBadCredentialsAndOrphans(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedUser(t, "nogrant@college.test", "correct-horse", false)

	_, err := f.svc.Login(ctx, LoginRequest{Email: "nogrant@college.test", Password: "wrong"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = f.svc.Login(ctx, LoginRequest{Email: "missing@college.test", Password: "correct-horse"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = f.svc.Login(ctx, LoginRequest{Email: "nogrant@college.test", Password: "correct-horse"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestChangePasswordClearsForcedChange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	userID := f.seedUser(t, "trainee@college.test", "default-credential", true)
	orgID := uuid.New()
	require.NoError(t, f.users.AssignRole(ctx, userID, orgID, enums.RoleTrainee))

	resp, err := f.svc.Login(ctx, LoginRequest{Email: "trainee@college.test", Password: "default-credential"})
	require.NoError(t, err)
	require.True(t, resp.MustChangePassword)

	principal := pkgAuth.Principal{UserID: userID, OrganizationID: orgID, Role: enums.RoleTrainee}
	err = f.svc.ChangePassword(ctx, principal, ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "a-much-better-one-42"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	err = f.svc.ChangePassword(ctx, principal, ChangePasswordRequest{CurrentPassword: "default-credential", NewPassword: "only-letters-here"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	require.NoError(t, f.svc.ChangePassword(ctx, principal, ChangePasswordRequest{
		CurrentPassword: "default-credential",
		NewPassword:     "a-much-better-one-42",
	}))

	resp, err = f.svc.Login(ctx, LoginRequest{Email: "trainee@college.test", Password: "a-much-better-one-42"})
	require.NoError(t, err)
	require.False(t, resp.MustChangePassword)
}
