package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/angelmondragon/enrollment-backend/api/responses"
	pkgAuth "github.com/angelmondragon/enrollment-backend/pkg/auth"
	"github.com/angelmondragon/enrollment-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/enrollment-backend/pkg/errors"
	"github.com/angelmondragon/enrollment-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the principal.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				authErr := pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token").WithReason("token_invalid")
				if errors.Is(err, pkgAuth.ErrTokenExpired) {
					authErr = pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "token expired").WithReason("token_expired")
				}
				responses.WriteError(r.Context(), logg, w, authErr)
				return
			}

			principal := claims.Principal()
			if err := principal.Validate(); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithPrincipal(r.Context(), principal)
			if logg != nil {
				ctx = logg.WithUserID(ctx, principal.UserID.String())
				ctx = logg.WithOrganizationID(ctx, principal.OrganizationID.String())
				ctx = logg.WithActorRole(ctx, string(principal.Role))
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
