package controllers

import (
	"net/http"

	"github.com/notelift/notelift-backend/api/responses"
	"github.com/notelift/notelift-backend/api/validators"
	"github.com/notelift/notelift-backend/internal/licenses"
	"github.com/notelift/notelift-backend/pkg/logger"
)

type licenseValidateBody struct {
	LicenseKey string `json:"license_key" validate:"required"`
}

// LicenseValidate pre-checks a beta key before the user starts the OAuth
// flow. Always 200 for well-formed requests; the verdict is in the body.
func LicenseValidate(svc licenses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body licenseValidateBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Validate(r.Context(), body.LicenseKey)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"valid":   result.Valid,
			"message": result.Message,
			"is_used": result.IsUsed,
		})
	}
}
