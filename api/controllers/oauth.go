package controllers

import (
	"net/http"

	"github.com/notelift/notelift-backend/api/responses"
	"github.com/notelift/notelift-backend/api/validators"
	"github.com/notelift/notelift-backend/internal/oauth"
	"github.com/notelift/notelift-backend/pkg/logger"
)

type oauthCallbackBody struct {
	Code       string `json:"code" validate:"required"`
	LicenseKey string `json:"license_key,omitempty"`
}

// OAuthCallback finishes the Notion OAuth flow: exchanges the code,
// upserts the user, optionally binds a license key and mints a session.
func OAuthCallback(svc oauth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body oauthCallbackBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.HandleCallback(r.Context(), body.Code, body.LicenseKey)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
