package oauth

import (
	"context"
	"testing"
	"time"

	"github.com/notelift/notelift-backend/internal/users"
	"github.com/notelift/notelift-backend/pkg/auth"
	"github.com/notelift/notelift-backend/pkg/config"
	"github.com/notelift/notelift-backend/pkg/db/models"
	pkgerrors "github.com/notelift/notelift-backend/pkg/errors"
	"github.com/notelift/notelift-backend/pkg/notion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubExchanger struct {
	token       *notion.OAuthToken
	exchangeErr error
	refreshed   *notion.OAuthToken
	refreshErr  error
	lastCode    string
	lastRefresh string
}

func (s *stubExchanger) ExchangeCode(ctx context.Context, code, redirectURI string) (*notion.OAuthToken, error) {
	s.lastCode = code
	if s.exchangeErr != nil {
		return nil, s.exchangeErr
	}
	return s.token, nil
}

func (s *stubExchanger) RefreshToken(ctx context.Context, refreshToken string) (*notion.OAuthToken, error) {
	s.lastRefresh = refreshToken
	if s.refreshErr != nil {
		return nil, s.refreshErr
	}
	return s.refreshed, nil
}

type stubUserRepo struct {
	user          *models.User
	upsertErr     error
	lastDTO       users.UpsertUserDTO
	updatedAccess string
	updateErr     error
}

func (s *stubUserRepo) Upsert(ctx context.Context, dto users.UpsertUserDTO) (*models.User, error) {
	s.lastDTO = dto
	if s.upsertErr != nil {
		return nil, s.upsertErr
	}
	return s.user, nil
}

func (s *stubUserRepo) UpdateTokens(ctx context.Context, botID, accessToken string, refreshToken *string) error {
	s.updatedAccess = accessToken
	return s.updateErr
}

type stubActivator struct {
	err        error
	lastKey    string
	lastUserID uint
	calls      int
}

func (s *stubActivator) Activate(ctx context.Context, key string, userID uint) error {
	s.calls++
	s.lastKey = key
	s.lastUserID = userID
	return s.err
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:     "test-secret",
		Issuer:     "notelift",
		SessionTTL: 7 * 24 * time.Hour,
	}
}

func strPtr(s string) *string { return &s }

func TestHandleCallbackLinksLicense(t *testing.T) {
	exchanger := &stubExchanger{
		token: &notion.OAuthToken{
			AccessToken:   "access-1",
			RefreshToken:  strPtr("refresh-1"),
			BotID:         "bot-1",
			WorkspaceID:   "ws-1",
			WorkspaceName: "Acme Notes",
		},
	}
	repo := &stubUserRepo{user: &models.User{ID: 7, BotID: "bot-1", WorkspaceName: "Acme Notes"}}
	activator := &stubActivator{}

	svc, err := NewService(exchanger, repo, activator, testJWTConfig(), "")
	require.NoError(t, err)

	result, err := svc.HandleCallback(context.Background(), "auth-code", "BETA-AAAA-BBBB-CCCC")
	require.NoError(t, err)

	assert.Equal(t, "auth-code", exchanger.lastCode)
	assert.Equal(t, "bot-1", repo.lastDTO.BotID)
	assert.Equal(t, "access-1", repo.lastDTO.AccessToken)
	assert.Equal(t, "BETA-AAAA-BBBB-CCCC", activator.lastKey)
	assert.Equal(t, uint(7), activator.lastUserID)

	assert.NotEmpty(t, result.SessionToken)
	assert.Equal(t, "Acme Notes", result.WorkspaceName)
	assert.Equal(t, "bot-1", result.BotID)
	assert.True(t, result.NeedsPageSetup)

	botID, err := auth.ParseSessionToken(testJWTConfig(), result.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, "bot-1", botID)
}

func TestHandleCallbackWithoutLicenseSkipsActivation(t *testing.T) {
	pageID := "page-1"
	exchanger := &stubExchanger{
		token: &notion.OAuthToken{AccessToken: "access-1", BotID: "bot-1", WorkspaceID: "ws-1"},
	}
	repo := &stubUserRepo{user: &models.User{ID: 7, BotID: "bot-1", NotionPageID: &pageID}}
	activator := &stubActivator{}

	svc, err := NewService(exchanger, repo, activator, testJWTConfig(), "")
	require.NoError(t, err)

	result, err := svc.HandleCallback(context.Background(), "auth-code", "")
	require.NoError(t, err)
	assert.Zero(t, activator.calls)
	assert.False(t, result.NeedsPageSetup)
}

func TestHandleCallbackLicenseFailureSurfaces(t *testing.T) {
	exchanger := &stubExchanger{
		token: &notion.OAuthToken{AccessToken: "access-1", BotID: "bot-1", WorkspaceID: "ws-1"},
	}
	repo := &stubUserRepo{user: &models.User{ID: 7, BotID: "bot-1"}}
	activator := &stubActivator{err: pkgerrors.New(pkgerrors.CodeForbidden, "license key already claimed by another workspace")}

	svc, err := NewService(exchanger, repo, activator, testJWTConfig(), "")
	require.NoError(t, err)

	_, err = svc.HandleCallback(context.Background(), "auth-code", "BETA-AAAA-BBBB-CCCC")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	// The user upsert is not rolled back.
	assert.Equal(t, "bot-1", repo.lastDTO.BotID)
}

func TestHandleCallbackMissingCode(t *testing.T) {
	svc, err := NewService(&stubExchanger{}, &stubUserRepo{}, &stubActivator{}, testJWTConfig(), "")
	require.NoError(t, err)

	_, err = svc.HandleCallback(context.Background(), "  ", "")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestRefreshAccessToken(t *testing.T) {
	exchanger := &stubExchanger{
		refreshed: &notion.OAuthToken{AccessToken: "access-2", RefreshToken: strPtr("refresh-2")},
	}
	repo := &stubUserRepo{}

	svc, err := NewService(exchanger, repo, &stubActivator{}, testJWTConfig(), "")
	require.NoError(t, err)

	user := &models.User{BotID: "bot-1", AccessToken: "access-1", RefreshToken: strPtr("refresh-1")}
	newToken, err := svc.RefreshAccessToken(context.Background(), user)
	require.NoError(t, err)

	assert.Equal(t, "refresh-1", exchanger.lastRefresh)
	assert.Equal(t, "access-2", newToken)
	assert.Equal(t, "access-2", repo.updatedAccess)
	assert.Equal(t, "access-2", user.AccessToken)
	require.NotNil(t, user.RefreshToken)
	assert.Equal(t, "refresh-2", *user.RefreshToken)
}

func TestRefreshAccessTokenWithoutRefreshToken(t *testing.T) {
	svc, err := NewService(&stubExchanger{}, &stubUserRepo{}, &stubActivator{}, testJWTConfig(), "")
	require.NoError(t, err)

	_, err = svc.RefreshAccessToken(context.Background(), &models.User{BotID: "bot-1"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}
