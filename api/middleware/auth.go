package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/notelift/notelift-backend/api/responses"
	pkgauth "github.com/notelift/notelift-backend/pkg/auth"
	"github.com/notelift/notelift-backend/pkg/config"
	"github.com/notelift/notelift-backend/pkg/db/models"
	pkgerrors "github.com/notelift/notelift-backend/pkg/errors"
	"github.com/notelift/notelift-backend/pkg/logger"
)

type userLoader interface {
	FindByBotID(ctx context.Context, botID string) (*models.User, error)
}

// Session validates the bearer session token, resolves the user behind it
// and seeds the request context with the user record.
func Session(cfg config.JWTConfig, users userLoader, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			botID, err := pkgauth.ParseSessionToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			user, err := users.FindByBotID(r.Context(), botID)
			if err != nil {
				if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown session"))
					return
				}
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve session user"))
				return
			}

			ctx := WithUser(r.Context(), user)
			if logg != nil {
				ctx = logg.WithBotID(ctx, user.BotID)
				ctx = logg.WithWorkspace(ctx, user.WorkspaceName)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}
