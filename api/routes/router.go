package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/notelift/notelift-backend/api/controllers"
	"github.com/notelift/notelift-backend/api/middleware"
	"github.com/notelift/notelift-backend/internal/licenses"
	"github.com/notelift/notelift-backend/internal/notes"
	"github.com/notelift/notelift-backend/internal/oauth"
	"github.com/notelift/notelift-backend/internal/uploads"
	"github.com/notelift/notelift-backend/internal/users"
	"github.com/notelift/notelift-backend/pkg/config"
	"github.com/notelift/notelift-backend/pkg/logger"
	"github.com/notelift/notelift-backend/pkg/notion"
	"github.com/notelift/notelift-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	usersRepo *users.Repository,
	licenseService licenses.Service,
	oauthService oauth.Service,
	notionClient *notion.Client,
	notesService notes.Service,
	uploadStore *uploads.Store,
	redisClient *redis.Client,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	callbackPolicy := middleware.NewRateLimitPolicy(
		"callback",
		cfg.AuthRateLimit.CallbackWindow,
		cfg.AuthRateLimit.CallbackIPLimit,
	)
	validatePolicy := middleware.NewRateLimitPolicy(
		"validate",
		cfg.AuthRateLimit.ValidateWindow,
		cfg.AuthRateLimit.ValidateIPLimit,
	)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", controllers.Health(cfg))

		r.With(middleware.RateLimit(validatePolicy, redisClient, logg)).
			Post("/license/validate", controllers.LicenseValidate(licenseService, logg))
		r.With(middleware.RateLimit(callbackPolicy, redisClient, logg)).
			Post("/oauth/callback", controllers.OAuthCallback(oauthService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Session(cfg.JWT, usersRepo, logg))

			r.Get("/user/info", controllers.UserInfo(logg))
			r.Post("/user/page-id", controllers.UserSetPageID(usersRepo, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireLicense(licenseService, logg))

				r.Post("/notion/search", controllers.NotionSearch(notionClient, oauthService, logg))
				r.Post("/upload", controllers.Upload(cfg.Upload, uploadStore, notesService, oauthService, logg))
			})
		})
	})

	return r
}
