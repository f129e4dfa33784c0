package notes

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/notelift/notelift-backend/internal/pipeline"
	"github.com/notelift/notelift-backend/pkg/db/models"
	pkgerrors "github.com/notelift/notelift-backend/pkg/errors"
)

type stubRunner struct {
	result *pipeline.Result
	err    error
	calls  int
}

func (s *stubRunner) Run(ctx context.Context, dir string) (*pipeline.Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubPublisher struct {
	err    error
	calls  int
	title  string
	target string
	draft  string
}

func (s *stubPublisher) Publish(ctx context.Context, accessToken, title, parentPageID, draft string) error {
	s.calls++
	s.title = title
	s.target = parentPageID
	s.draft = draft
	return s.err
}

type stubClearer struct {
	cleared []string
	err     error
}

func (s *stubClearer) ClearPageID(ctx context.Context, botID string) error {
	s.cleared = append(s.cleared, botID)
	return s.err
}

func pageUser(pageID string) *models.User {
	return &models.User{
		ID:           1,
		BotID:        "bot-1",
		AccessToken:  "secret-token",
		NotionPageID: &pageID,
	}
}

func newTestService(t *testing.T, real *stubRunner, realPub *stubPublisher, mock *stubRunner, mockPub *stubPublisher, users *stubClearer) Service {
	t.Helper()
	svc, err := NewService(real, realPub, mock, mockPub, users, nil)
	require.NoError(t, err)
	return svc
}

func TestProcessPublishesPipelineResult(t *testing.T) {
	real := &stubRunner{result: &pipeline.Result{Title: "bot-1", Content: "# Notes\n- a"}}
	realPub := &stubPublisher{}
	mock := &stubRunner{result: &pipeline.Result{Title: "mock"}}
	mockPub := &stubPublisher{}
	users := &stubClearer{}

	svc := newTestService(t, real, realPub, mock, mockPub, users)

	details, err := svc.Process(context.Background(), pageUser("page-9"), "/tmp/uploads/bot-1", false)
	require.NoError(t, err)
	require.Contains(t, details, "PRODUCTION MODE")

	require.Equal(t, 1, real.calls)
	require.Equal(t, 0, mock.calls)
	require.Equal(t, 1, realPub.calls)
	require.Equal(t, 0, mockPub.calls)
	require.Equal(t, "bot-1", realPub.title)
	require.Equal(t, "page-9", realPub.target)
	require.Equal(t, "# Notes\n- a", realPub.draft)
	require.Empty(t, users.cleared)
}

func TestProcessTestModeUsesMocksAndTimestampTitle(t *testing.T) {
	real := &stubRunner{result: &pipeline.Result{Title: "real"}}
	realPub := &stubPublisher{}
	mock := &stubRunner{result: &pipeline.Result{Title: "bot-1", Content: "mock draft"}}
	mockPub := &stubPublisher{}
	users := &stubClearer{}

	svc := newTestService(t, real, realPub, mock, mockPub, users)
	svc.(*service).now = func() time.Time {
		return time.Date(2026, time.March, 14, 9, 26, 53, 0, time.UTC)
	}

	details, err := svc.Process(context.Background(), pageUser("page-9"), "/tmp/uploads/bot-1", true)
	require.NoError(t, err)
	require.Contains(t, details, "TEST MODE")

	require.Equal(t, 0, real.calls)
	require.Equal(t, 1, mock.calls)
	require.Equal(t, 0, realPub.calls)
	require.Equal(t, 1, mockPub.calls)
	require.Equal(t, "TEST - 2026-03-14 09:26:53", mockPub.title)
}

func TestProcessRequiresConfiguredPage(t *testing.T) {
	svc := newTestService(t, &stubRunner{}, &stubPublisher{}, &stubRunner{}, &stubPublisher{}, &stubClearer{})

	_, err := svc.Process(context.Background(), &models.User{ID: 1, BotID: "bot-1"}, "/tmp", false)
	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestProcessClearsPageIDWhenTargetGone(t *testing.T) {
	gone := pkgerrors.New(pkgerrors.CodeTargetGone, "page deleted")
	real := &stubRunner{result: &pipeline.Result{Title: "bot-1", Content: "draft"}}
	realPub := &stubPublisher{err: gone}
	users := &stubClearer{}

	svc := newTestService(t, real, realPub, &stubRunner{}, &stubPublisher{}, users)

	_, err := svc.Process(context.Background(), pageUser("page-9"), "/tmp", false)
	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeTargetGone))
	require.Equal(t, []string{"bot-1"}, users.cleared)
}

func TestProcessDoesNotClearPageIDOnGenericFailure(t *testing.T) {
	real := &stubRunner{result: &pipeline.Result{Title: "bot-1", Content: "draft"}}
	realPub := &stubPublisher{err: errors.New("notion is down")}
	users := &stubClearer{}

	svc := newTestService(t, real, realPub, &stubRunner{}, &stubPublisher{}, users)

	_, err := svc.Process(context.Background(), pageUser("page-9"), "/tmp", false)
	require.Error(t, err)
	require.False(t, pkgerrors.IsCode(err, pkgerrors.CodeTargetGone))
	require.Empty(t, users.cleared)
}

func TestProcessPropagatesPipelineFailure(t *testing.T) {
	real := &stubRunner{err: errors.New("extraction failed")}
	realPub := &stubPublisher{}
	users := &stubClearer{}

	svc := newTestService(t, real, realPub, &stubRunner{}, &stubPublisher{}, users)

	_, err := svc.Process(context.Background(), pageUser("page-9"), "/tmp", false)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "extraction failed"))
	require.Equal(t, 0, realPub.calls)
}
