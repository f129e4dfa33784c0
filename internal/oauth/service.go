package oauth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/notelift/notelift-backend/internal/users"
	"github.com/notelift/notelift-backend/pkg/auth"
	"github.com/notelift/notelift-backend/pkg/config"
	"github.com/notelift/notelift-backend/pkg/db/models"
	pkgerrors "github.com/notelift/notelift-backend/pkg/errors"
	"github.com/notelift/notelift-backend/pkg/notion"
)

type tokenExchanger interface {
	ExchangeCode(ctx context.Context, code, redirectURI string) (*notion.OAuthToken, error)
	RefreshToken(ctx context.Context, refreshToken string) (*notion.OAuthToken, error)
}

type usersRepository interface {
	Upsert(ctx context.Context, dto users.UpsertUserDTO) (*models.User, error)
	UpdateTokens(ctx context.Context, botID, accessToken string, refreshToken *string) error
}

type licenseActivator interface {
	Activate(ctx context.Context, key string, userID uint) error
}

// Service drives the license-gated OAuth callback and credential
// refresh flows.
type Service interface {
	HandleCallback(ctx context.Context, code, licenseKey string) (*CallbackResult, error)
	RefreshAccessToken(ctx context.Context, user *models.User) (string, error)
}

// CallbackResult is the payload handed back to the frontend after a
// successful callback.
type CallbackResult struct {
	SessionToken   string `json:"session_token"`
	WorkspaceName  string `json:"workspace_name"`
	BotID          string `json:"bot_id"`
	NeedsPageSetup bool   `json:"needs_page_setup"`
}

type service struct {
	exchanger   tokenExchanger
	userRepo    usersRepository
	activator   licenseActivator
	jwtCfg      config.JWTConfig
	redirectURI string
	now         func() time.Time
}

// NewService wires the callback flow from its collaborators.
func NewService(exchanger tokenExchanger, userRepo usersRepository, activator licenseActivator, jwtCfg config.JWTConfig, redirectURI string) (Service, error) {
	if exchanger == nil {
		return nil, errors.New("token exchanger required")
	}
	if userRepo == nil {
		return nil, errors.New("users repository required")
	}
	if activator == nil {
		return nil, errors.New("license activator required")
	}
	return &service{
		exchanger:   exchanger,
		userRepo:    userRepo,
		activator:   activator,
		jwtCfg:      jwtCfg,
		redirectURI: redirectURI,
		now:         time.Now,
	}, nil
}

// HandleCallback exchanges the code, upserts the workspace user,
// resolves the license when one is supplied, and issues a session
// credential. The user upsert is deliberately not rolled back when
// license resolution fails: the workspace connection itself succeeded.
func (s *service) HandleCallback(ctx context.Context, code, licenseKey string) (*CallbackResult, error) {
	if strings.TrimSpace(code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "authorization code is required")
	}

	token, err := s.exchanger.ExchangeCode(ctx, code, s.redirectURI)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.Upsert(ctx, users.UpsertUserDTO{
		BotID:         token.BotID,
		WorkspaceID:   token.WorkspaceID,
		WorkspaceName: token.WorkspaceName,
		AccessToken:   token.AccessToken,
		RefreshToken:  token.RefreshToken,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert user")
	}

	if strings.TrimSpace(licenseKey) != "" {
		if err := s.activator.Activate(ctx, licenseKey, user.ID); err != nil {
			return nil, err
		}
	}

	sessionToken, err := auth.MintSessionToken(s.jwtCfg, s.now(), user.BotID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint session token")
	}

	return &CallbackResult{
		SessionToken:   sessionToken,
		WorkspaceName:  user.WorkspaceName,
		BotID:          user.BotID,
		NeedsPageSetup: !user.HasPageID(),
	}, nil
}

// RefreshAccessToken rotates the stored credential pair using the
// refresh token and returns the fresh access token.
func (s *service) RefreshAccessToken(ctx context.Context, user *models.User) (string, error) {
	if user == nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "user is required")
	}
	if user.RefreshToken == nil || strings.TrimSpace(*user.RefreshToken) == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "no refresh token stored for workspace")
	}

	token, err := s.exchanger.RefreshToken(ctx, *user.RefreshToken)
	if err != nil {
		return "", err
	}

	if err := s.userRepo.UpdateTokens(ctx, user.BotID, token.AccessToken, token.RefreshToken); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist rotated tokens")
	}

	user.AccessToken = token.AccessToken
	if token.RefreshToken != nil {
		user.RefreshToken = token.RefreshToken
	}
	return token.AccessToken, nil
}
