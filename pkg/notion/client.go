package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/notelift/notelift-backend/pkg/config"
	pkgerrors "github.com/notelift/notelift-backend/pkg/errors"
	"github.com/sethvargo/go-retry"
)

const (
	defaultBaseURL             = "https://api.notion.com"
	defaultVersion             = "2022-06-28"
	errorBodyReadLimit   int64 = 4096
	transientMaxRetries        = 3
	transientBaseBackoff       = 200 * time.Millisecond
)

var errCredentialsRequired = errors.New("notion client id and secret are required")

// Client wraps the Notion REST APIs used for OAuth, page search and
// page publishing.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	version      string
	clientID     string
	clientSecret string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured Notion base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the Notion client from the OAuth app credentials.
func NewClient(cfg config.NotionConfig, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, errCredentialsRequired
	}

	client := &Client{
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		baseURL:      defaultBaseURL,
		version:      defaultVersion,
		clientID:     strings.TrimSpace(cfg.ClientID),
		clientSecret: strings.TrimSpace(cfg.ClientSecret),
	}
	if trimmed := strings.TrimSpace(cfg.BaseURL); trimmed != "" {
		client.baseURL = trimmed
	}
	if trimmed := strings.TrimSpace(cfg.Version); trimmed != "" {
		client.version = trimmed
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// APIError is the decoded Notion error payload.
type APIError struct {
	StatusCode int
	ErrorCode  string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("notion api error: status %d code %q: %s", e.StatusCode, e.ErrorCode, e.Message)
}

// request describes a single Notion REST call.
type request struct {
	method      string
	path        string
	body        any
	bearerToken string
	basicAuth   bool
}

// doJSON executes the request, retrying transient failures, and decodes a
// 2xx response body into out when out is non-nil.
func (c *Client) doJSON(ctx context.Context, req request, out any) error {
	var payload []byte
	if req.body != nil {
		encoded, err := json.Marshal(req.body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal notion request")
		}
		payload = encoded
	}

	url := c.buildURL(req.path)
	backoff := retry.WithMaxRetries(transientMaxRetries, retry.NewExponential(transientBaseBackoff))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}

		httpReq, err := http.NewRequestWithContext(ctx, req.method, url, body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build notion request")
		}

		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Accept", "application/json")
		httpReq.Header.Set("Notion-Version", c.version)
		if req.basicAuth {
			httpReq.SetBasicAuth(c.clientID, c.clientSecret)
		} else if req.bearerToken != "" {
			httpReq.Header.Set("Authorization", "Bearer "+req.bearerToken)
		}

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return retry.RetryableError(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute notion request"))
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			apiErr := &APIError{StatusCode: resp.StatusCode}
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
			if decodeErr := json.Unmarshal(raw, apiErr); decodeErr != nil {
				apiErr.Message = strings.TrimSpace(string(raw))
			}
			if isTransientStatus(resp.StatusCode) {
				return retry.RetryableError(apiErr)
			}
			return apiErr
		}

		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode notion response")
		}
		return nil
	})
}

func isTransientStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}

// IsTargetGone reports whether the error indicates the configured target
// page was deleted, archived or is otherwise unreachable.
func IsTargetGone(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return isGoneText(apiErr.ErrorCode) || isGoneText(apiErr.Message)
	}
	return isGoneText(err.Error())
}

// IsUnauthorized reports whether the error is a 401 from the API,
// meaning the access token expired or was revoked.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

func isGoneText(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "object_not_found") ||
		strings.Contains(lower, "invalid_request_url") ||
		strings.Contains(lower, "archived")
}
