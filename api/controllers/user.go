package controllers

import (
	"context"
	"net/http"

	"github.com/notelift/notelift-backend/api/middleware"
	"github.com/notelift/notelift-backend/api/responses"
	"github.com/notelift/notelift-backend/api/validators"
	"github.com/notelift/notelift-backend/internal/users"
	pkgerrors "github.com/notelift/notelift-backend/pkg/errors"
	"github.com/notelift/notelift-backend/pkg/logger"
)

// UserInfo returns the authenticated user's workspace profile.
func UserInfo(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middleware.UserFromContext(r.Context())
		if user == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		responses.WriteSuccess(w, users.ToInfo(user))
	}
}

type pageIDSetter interface {
	SetPageID(ctx context.Context, botID, pageID string) error
}

type setPageIDBody struct {
	PageID string `json:"page_id" validate:"required"`
}

// UserSetPageID stores the default parent page new notes are published under.
func UserSetPageID(repo pageIDSetter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middleware.UserFromContext(r.Context())
		if user == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var body setPageIDBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pageID := validators.SanitizeString(body.PageID, 128)
		if pageID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "missing page_id"))
			return
		}

		if err := repo.SetPageID(r.Context(), user.BotID, pageID); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update page id"))
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"success": true,
			"message": "Default page ID updated successfully",
		})
	}
}
