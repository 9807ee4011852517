package controllers

import (
	"net/http"

	"github.com/angelmondragon/enrollment-backend/api/middleware"
	"github.com/angelmondragon/enrollment-backend/api/responses"
	"github.com/angelmondragon/enrollment-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/enrollment-backend/pkg/errors"
	"github.com/angelmondragon/enrollment-backend/pkg/logger"
)

// principalOrAbort writes 401 and reports false when Auth did not run.
func principalOrAbort(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (auth.Principal, bool) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
		return auth.Principal{}, false
	}
	return principal, true
}

func unavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, name string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable"))
}
