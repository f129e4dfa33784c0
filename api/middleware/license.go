package middleware

import (
	"context"
	"net/http"

	"github.com/notelift/notelift-backend/api/responses"
	pkgerrors "github.com/notelift/notelift-backend/pkg/errors"
	"github.com/notelift/notelift-backend/pkg/logger"
)

type licenseChecker interface {
	HasActiveLicense(ctx context.Context, userID uint) (bool, error)
}

// RequireLicense denies access unless the session user owns an active
// license key. The lookup is fresh on every request so a revocation takes
// effect immediately, not at next session issue.
func RequireLicense(licenses licenseChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if user == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			ok, err := licenses.HasActiveLicense(r.Context(), user.ID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check license"))
				return
			}
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "no active license for this account"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
