package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/enrollment-backend/pkg/auth"
	"github.com/angelmondragon/enrollment-backend/pkg/config"
	"github.com/angelmondragon/enrollment-backend/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(testJWT, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler := Auth(testJWT, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthSeedsPrincipal(t *testing.T) {
	userID, orgID := uuid.New(), uuid.New()
	token := mintTestToken(t, userID, orgID, enums.RoleBursar)

	var captured auth.Principal
	handler := Auth(testJWT, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.UserID != userID || captured.OrganizationID != orgID {
		t.Fatalf("unexpected principal %+v", captured)
	}
	if captured.Role != enums.RoleBursar {
		t.Fatalf("expected role bursar got %s", captured.Role)
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name string
		role enums.Role
		want int
	}{
		{"allowed", enums.RoleBursar, http.StatusOK},
		{"admin passes", enums.RoleAdmin, http.StatusOK},
		{"forbidden", enums.RoleTrainee, http.StatusForbidden},
	}
	for _, tt := range tests {
		token := mintTestToken(t, uuid.New(), uuid.New(), tt.role)
		handler := Auth(testJWT, nil)(RequireRole(nil, enums.RoleBursar)(okHandler()))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != tt.want {
			t.Fatalf("%s: expected %d got %d", tt.name, tt.want, resp.Code)
		}
	}
}

func TestRequireRoleWithoutAuth(t *testing.T) {
	resp := httptest.NewRecorder()
	RequireRole(nil, enums.RoleBursar)(okHandler()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func mintTestToken(t *testing.T, userID, orgID uuid.UUID, role enums.Role) string {
	t.Helper()
	token, err := auth.MintAccessToken(testJWT, time.Now(), auth.AccessTokenPayload{
		UserID:         userID,
		OrganizationID: orgID,
		Role:           role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}
