package main

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/notelift/notelift-backend/api/routes"
	"github.com/notelift/notelift-backend/internal/licenses"
	"github.com/notelift/notelift-backend/internal/notes"
	"github.com/notelift/notelift-backend/internal/oauth"
	"github.com/notelift/notelift-backend/internal/pipeline"
	"github.com/notelift/notelift-backend/internal/publisher"
	"github.com/notelift/notelift-backend/internal/uploads"
	"github.com/notelift/notelift-backend/internal/users"
	"github.com/notelift/notelift-backend/pkg/config"
	"github.com/notelift/notelift-backend/pkg/db"
	"github.com/notelift/notelift-backend/pkg/gemini"
	"github.com/notelift/notelift-backend/pkg/logger"
	"github.com/notelift/notelift-backend/pkg/migrate"
	"github.com/notelift/notelift-backend/pkg/notion"
	"github.com/notelift/notelift-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	notionClient, err := notion.NewClient(cfg.Notion)
	if err != nil {
		logg.Error(context.Background(), "failed to create notion client", err)
		os.Exit(1)
	}

	geminiClient, err := gemini.NewClient(context.Background(), cfg.Gemini)
	if err != nil {
		logg.Error(context.Background(), "failed to create gemini client", err)
		os.Exit(1)
	}

	usersRepo := users.NewRepository(dbClient.DB())

	licenseService, err := licenses.NewService(licenses.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create license service", err)
		os.Exit(1)
	}

	oauthService, err := oauth.NewService(notionClient, usersRepo, licenseService, cfg.JWT, cfg.Notion.RedirectURI)
	if err != nil {
		logg.Error(context.Background(), "failed to create oauth service", err)
		os.Exit(1)
	}

	realRunner, err := pipeline.NewRunner(
		pipeline.NewGeminiExtractor(geminiClient),
		pipeline.NewGeminiEnhancer(geminiClient),
		cfg.Publish.MaxEnhanceRetries,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create pipeline runner", err)
		os.Exit(1)
	}

	mockRunner, err := pipeline.NewRunner(
		pipeline.NewMockExtractor(rand.New(rand.NewSource(time.Now().UnixNano()))),
		pipeline.NewMockEnhancer(),
		cfg.Publish.MaxEnhanceRetries,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create mock pipeline runner", err)
		os.Exit(1)
	}

	toolPublisher, err := publisher.NewToolPublisher(
		geminiClient,
		notionClient,
		cfg.Publish.MaxIterations,
		cfg.Publish.MaxConsecutiveErrors,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create publisher", err)
		os.Exit(1)
	}

	directPublisher, err := publisher.NewDirectPublisher(notionClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create direct publisher", err)
		os.Exit(1)
	}

	notesService, err := notes.NewService(realRunner, toolPublisher, mockRunner, directPublisher, usersRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notes service", err)
		os.Exit(1)
	}

	uploadStore, err := uploads.NewStore(cfg.Upload)
	if err != nil {
		logg.Error(context.Background(), "failed to create upload store", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			usersRepo,
			licenseService,
			oauthService,
			notionClient,
			notesService,
			uploadStore,
			redisClient,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
