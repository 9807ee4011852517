package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/enrollment-backend/pkg/config"
	"github.com/angelmondragon/enrollment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/enrollment-backend/pkg/errors"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "enrollment",
		ExpirationMinutes: 30,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	userID := uuid.New()
	orgID := uuid.New()

	token, err := MintAccessToken(cfg, time.Now().UTC(), AccessTokenPayload{
		UserID:         userID,
		OrganizationID: orgID,
		Role:           enums.RoleBursar,
	})
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, token)
	require.NoError(t, err)
	require.Equal(t, userID, claims.UserID)
	require.Equal(t, orgID, claims.OrganizationID)
	require.Equal(t, enums.RoleBursar, claims.Role)
	require.NotEmpty(t, claims.ID)

	principal := claims.Principal()
	require.Equal(t, Principal{UserID: userID, OrganizationID: orgID, Role: enums.RoleBursar}, principal)
}

func TestMintAccessTokenValidation(t *testing.T) {
	cfg := testJWTConfig()
	_, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), OrganizationID: uuid.New(), Role: "owner"})
	require.Error(t, err)

	_, err = MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleAdmin})
	require.Error(t, err)

	_, err = MintAccessToken(cfg, time.Now(), AccessTokenPayload{OrganizationID: uuid.New(), Role: enums.RoleAdmin})
	require.Error(t, err)

	cfg.Secret = ""
	_, err = MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), OrganizationID: uuid.New(), Role: enums.RoleAdmin})
	require.Error(t, err)
}

func TestParseAccessTokenRejectsExpiredAndTampered(t *testing.T) {
	cfg := testJWTConfig()
	payload := AccessTokenPayload{UserID: uuid.New(), OrganizationID: uuid.New(), Role: enums.RoleRegistrar}

	expired, err := MintAccessToken(cfg, time.Now().Add(-2*time.Hour), payload)
	require.NoError(t, err)
	_, err = ParseAccessToken(cfg, expired)
	require.ErrorIs(t, err, ErrTokenExpired)

	valid, err := MintAccessToken(cfg, time.Now(), payload)
	require.NoError(t, err)
	parts := strings.Split(valid, ".")
	tampered := parts[0] + "." + parts[1] + ".AAAA"
	_, err = ParseAccessToken(cfg, tampered)
	require.ErrorIs(t, err, ErrTokenInvalid)

	other := cfg
	other.Issuer = "someone-else"
	_, err = ParseAccessToken(other, valid)
	require.Error(t, err)
}

func TestParseAccessTokenToleratesClockSkew(t *testing.T) {
	cfg := testJWTConfig()
	payload := AccessTokenPayload{UserID: uuid.New(), OrganizationID: uuid.New(), Role: enums.RoleTrainee}

	justExpired, err := MintAccessToken(cfg, time.Now().Add(-cfg.Expiration()-10*time.Second), payload)
	require.NoError(t, err)
	_, err = ParseAccessToken(cfg, justExpired)
	require.NoError(t, err)
}

func TestPrincipalRequire(t *testing.T) {
	orgID := uuid.New()
	bursar := Principal{UserID: uuid.New(), OrganizationID: orgID, Role: enums.RoleBursar}
	admin := Principal{UserID: uuid.New(), OrganizationID: orgID, Role: enums.RoleAdmin}

	require.NoError(t, bursar.Require(enums.RoleBursar))
	err := bursar.Require(enums.RoleRegistrar)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	require.NoError(t, admin.Require(enums.RoleRegistrar))

	err = Principal{Role: enums.RoleAdmin}.Require()
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	require.True(t, bursar.CanAccess(orgID))
	require.False(t, bursar.CanAccess(uuid.New()))
	require.True(t, SystemPrincipal(orgID).IsSystem())
	require.False(t, admin.IsSystem())

	require.True(t, SchedulerPrincipal().SpansAllOrganizations())
	require.False(t, SystemPrincipal(orgID).SpansAllOrganizations())
	require.False(t, Principal{UserID: uuid.New(), Role: enums.RoleAdmin}.SpansAllOrganizations())
}
