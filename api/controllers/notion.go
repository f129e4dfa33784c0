package controllers

import (
	"context"
	"net/http"

	"github.com/notelift/notelift-backend/api/middleware"
	"github.com/notelift/notelift-backend/api/responses"
	"github.com/notelift/notelift-backend/api/validators"
	"github.com/notelift/notelift-backend/pkg/db/models"
	pkgerrors "github.com/notelift/notelift-backend/pkg/errors"
	"github.com/notelift/notelift-backend/pkg/logger"
	"github.com/notelift/notelift-backend/pkg/notion"
)

type pageSearcher interface {
	Search(ctx context.Context, accessToken, query string) (*notion.SearchResult, error)
}

type tokenRefresher interface {
	RefreshAccessToken(ctx context.Context, user *models.User) (string, error)
}

type notionSearchBody struct {
	Query string `json:"query,omitempty"`
}

// NotionSearch lists pages the integration can reach, so the user can pick
// a default publish target. An expired access token is refreshed and the
// search retried once before giving up.
func NotionSearch(searcher pageSearcher, refresher tokenRefresher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middleware.UserFromContext(r.Context())
		if user == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var body notionSearchBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query := validators.SanitizeString(body.Query, 256)

		result, err := searcher.Search(r.Context(), user.AccessToken, query)
		if err != nil && notion.IsUnauthorized(err) {
			token, refreshErr := refresher.RefreshAccessToken(r.Context(), user)
			if refreshErr != nil {
				responses.WriteError(r.Context(), logg, w, refreshErr)
				return
			}
			result, err = searcher.Search(r.Context(), token, query)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search pages"))
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"pages":    result.Pages,
			"has_more": result.HasMore,
		})
	}
}
