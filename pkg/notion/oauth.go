package notion

import (
	"context"
	"net/http"
	"strings"

	pkgerrors "github.com/notelift/notelift-backend/pkg/errors"
)

const oauthTokenPath = "/v1/oauth/token"

// OAuthToken is the token response returned by Notion's OAuth endpoint.
type OAuthToken struct {
	AccessToken   string  `json:"access_token"`
	RefreshToken  *string `json:"refresh_token"`
	BotID         string  `json:"bot_id"`
	WorkspaceID   string  `json:"workspace_id"`
	WorkspaceName string  `json:"workspace_name"`
	WorkspaceIcon string  `json:"workspace_icon"`
}

// ExchangeCode trades an authorization code for workspace tokens.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (*OAuthToken, error) {
	if strings.TrimSpace(code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "authorization code is required")
	}

	body := map[string]string{
		"grant_type": "authorization_code",
		"code":       code,
	}
	if redirectURI != "" {
		body["redirect_uri"] = redirectURI
	}

	var token OAuthToken
	err := c.doJSON(ctx, request{
		method:    http.MethodPost,
		path:      oauthTokenPath,
		body:      body,
		basicAuth: true,
	}, &token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "exchange authorization code")
	}
	if token.AccessToken == "" || token.BotID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notion token response missing access_token or bot_id")
	}
	return &token, nil
}

// RefreshToken trades a refresh token for a fresh access token.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*OAuthToken, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refresh token is required")
	}

	var token OAuthToken
	err := c.doJSON(ctx, request{
		method: http.MethodPost,
		path:   oauthTokenPath,
		body: map[string]string{
			"grant_type":    "refresh_token",
			"refresh_token": refreshToken,
		},
		basicAuth: true,
	}, &token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh access token")
	}
	if token.AccessToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notion refresh response missing access_token")
	}
	return &token, nil
}
