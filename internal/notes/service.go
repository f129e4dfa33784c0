// Package notes runs the end-to-end flow behind a photo upload: extract
// and enhance the handwriting, then publish the result into the user's
// Notion workspace.
package notes

import (
	"context"
	"time"

	"github.com/notelift/notelift-backend/internal/pipeline"
	"github.com/notelift/notelift-backend/pkg/db/models"
	pkgerrors "github.com/notelift/notelift-backend/pkg/errors"
	"github.com/notelift/notelift-backend/pkg/logger"
)

type runner interface {
	Run(ctx context.Context, dir string) (*pipeline.Result, error)
}

type publisher interface {
	Publish(ctx context.Context, accessToken, title, parentPageID, draft string) error
}

type pageClearer interface {
	ClearPageID(ctx context.Context, botID string) error
}

// Service processes an uploaded photo folder for a user.
type Service interface {
	Process(ctx context.Context, user *models.User, dir string, testMode bool) (string, error)
}

type service struct {
	realRunner    runner
	realPublisher publisher
	mockRunner    runner
	mockPublisher publisher
	users         pageClearer
	logg          *logger.Logger
	now           func() time.Time
}

func NewService(realRunner runner, realPublisher publisher, mockRunner runner, mockPublisher publisher, users pageClearer, logg *logger.Logger) (Service, error) {
	if realRunner == nil || realPublisher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notes service requires a pipeline runner and publisher")
	}
	if mockRunner == nil || mockPublisher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notes service requires mock components for test mode")
	}
	if users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notes service requires a users repository")
	}
	return &service{
		realRunner:    realRunner,
		realPublisher: realPublisher,
		mockRunner:    mockRunner,
		mockPublisher: mockPublisher,
		users:         users,
		logg:          logg,
		now:           time.Now,
	}, nil
}

// Process runs the extraction pipeline over dir and publishes the result
// under the user's configured default page. Test mode swaps in the mock
// extractor and the direct publisher so no model calls are made.
func (s *service) Process(ctx context.Context, user *models.User, dir string, testMode bool) (string, error) {
	if user == nil {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session user")
	}
	if !user.HasPageID() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "no default page configured")
	}

	run := s.realRunner
	pub := s.realPublisher
	modeLabel := "PRODUCTION MODE"
	if testMode {
		run = s.mockRunner
		pub = s.mockPublisher
		modeLabel = "TEST MODE"
	}

	result, err := run.Run(ctx, dir)
	if err != nil {
		return "", err
	}

	title := result.Title
	if testMode {
		title = "TEST - " + s.now().Format("2006-01-02 15:04:05")
	}

	if err := pub.Publish(ctx, user.AccessToken, title, *user.NotionPageID, result.Content); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeTargetGone) {
			if clearErr := s.users.ClearPageID(ctx, user.BotID); clearErr != nil && s.logg != nil {
				s.logg.Error(ctx, "notes.clear_page_id", clearErr)
			}
		}
		return "", err
	}

	return "Successfully created Notion page! (" + modeLabel + ")", nil
}
