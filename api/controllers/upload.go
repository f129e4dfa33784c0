package controllers

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/notelift/notelift-backend/api/middleware"
	"github.com/notelift/notelift-backend/api/responses"
	"github.com/notelift/notelift-backend/internal/notes"
	"github.com/notelift/notelift-backend/pkg/config"
	"github.com/notelift/notelift-backend/pkg/db/models"
	pkgerrors "github.com/notelift/notelift-backend/pkg/errors"
	"github.com/notelift/notelift-backend/pkg/logger"
	"github.com/notelift/notelift-backend/pkg/notion"
)

type uploadStore interface {
	AllowedFile(filename string) bool
	Save(botID, filename string, src io.Reader) (string, error)
}

// Upload receives a photo of handwritten notes, runs the extraction
// pipeline and publishes the result to the user's Notion workspace.
func Upload(cfg config.UploadConfig, store uploadStore, svc notes.Service, refresher tokenRefresher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middleware.UserFromContext(r.Context())
		if user == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		if !user.HasPageID() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "no default page configured").
				WithDetails(map[string]string{"message": "Please configure a default Notion page via /api/user/page-id"}))
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxBytes)
		if err := r.ParseMultipartForm(cfg.MaxBytes); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart request"))
			return
		}

		file, header, err := r.FormFile("photo")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "no file part"))
			return
		}
		defer file.Close()

		if header.Filename == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "no selected file"))
			return
		}
		if !store.AllowedFile(header.Filename) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid file type, allowed: PNG, JPG, JPEG, GIF"))
			return
		}

		testMode := strings.EqualFold(strings.TrimSpace(r.FormValue("test_mode")), "true")

		dir, err := store.Save(user.BotID, header.Filename, file)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store upload"))
			return
		}

		details, err := processWithRefresh(r.Context(), svc, refresher, user, dir, testMode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"success":   true,
			"message":   "Photo uploaded and processed successfully!",
			"details":   details,
			"test_mode": testMode,
		})
	}
}

// processWithRefresh runs the pipeline once, and when the stored access
// token turns out to be expired, refreshes it and retries a single time.
func processWithRefresh(ctx context.Context, svc notes.Service, refresher tokenRefresher, user *models.User, dir string, testMode bool) (string, error) {
	details, err := svc.Process(ctx, user, dir, testMode)
	if err == nil || !notion.IsUnauthorized(err) {
		return details, err
	}

	if _, refreshErr := refresher.RefreshAccessToken(ctx, user); refreshErr != nil {
		return "", refreshErr
	}
	return svc.Process(ctx, user, dir, testMode)
}
