package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/notelift/notelift-backend/internal/licenses"
	"github.com/notelift/notelift-backend/internal/notes"
	"github.com/notelift/notelift-backend/internal/oauth"
	"github.com/notelift/notelift-backend/internal/pipeline"
	"github.com/notelift/notelift-backend/internal/publisher"
	"github.com/notelift/notelift-backend/internal/uploads"
	"github.com/notelift/notelift-backend/internal/users"
	"github.com/notelift/notelift-backend/pkg/config"
	"github.com/notelift/notelift-backend/pkg/db/models"
	"github.com/notelift/notelift-backend/pkg/notion"
)

// fakeNotion emulates the slice of the Notion API the backend touches.
type fakeNotion struct {
	mu           sync.Mutex
	parentGone   bool
	createdPages []string
	appendCalls  int
}

func (f *fakeNotion) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			GrantType string `json:"grant_type"`
			Code      string `json:"code"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.GrantType == "authorization_code" && body.Code == "bad-code" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"code": "invalid_grant", "message": "invalid authorization code"})
			return
		}
		refresh := "refresh-1"
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":   "access-1",
			"refresh_token":  refresh,
			"bot_id":         "bot-router",
			"workspace_id":   "ws-1",
			"workspace_name": "Router Workspace",
		})
	})

	mux.HandleFunc("/v1/search", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{
					"object": "page",
					"id":     "11111111-2222-3333-4444-555555555555",
					"icon":   map[string]any{"type": "emoji", "emoji": "📓"},
					"parent": map[string]any{"type": "workspace"},
					"properties": map[string]any{
						"title": map[string]any{
							"type":  "title",
							"title": []map[string]any{{"plain_text": "Inbox"}},
						},
					},
				},
			},
			"has_more": false,
		})
	})

	mux.HandleFunc("/v1/pages", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		gone := f.parentGone
		f.mu.Unlock()
		if gone {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"code": "object_not_found", "message": "Could not find page"})
			return
		}
		var body struct {
			Properties struct {
				Title struct {
					Title []struct {
						Text struct {
							Content string `json:"content"`
						} `json:"text"`
					} `json:"title"`
				} `json:"title"`
			} `json:"properties"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		title := ""
		if len(body.Properties.Title.Title) > 0 {
			title = body.Properties.Title.Title[0].Text.Content
		}
		f.mu.Lock()
		f.createdPages = append(f.createdPages, title)
		f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"id": "created-page-1"})
	})

	mux.HandleFunc("/v1/blocks/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.appendCalls++
		f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
	})

	return mux
}

type testEnv struct {
	router    http.Handler
	db        *gorm.DB
	usersRepo *users.Repository
	licenses  licenses.Service
	notionAPI *fakeNotion
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_busy_timeout=5000"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.LicenseKey{}))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		db.Exec("DELETE FROM license_keys")
		db.Exec("DELETE FROM users")
	})

	fake := &fakeNotion{}
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)

	cfg := &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "router-test-secret", Issuer: "notelift", SessionTTL: time.Hour},
		Notion: config.NotionConfig{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			BaseURL:      server.URL,
			Version:      "2022-06-28",
		},
		Upload: config.UploadConfig{
			Dir:        t.TempDir(),
			MaxBytes:   16 * 1024 * 1024,
			Extensions: "png,jpg,jpeg,gif",
		},
	}

	notionClient, err := notion.NewClient(cfg.Notion)
	require.NoError(t, err)

	usersRepo := users.NewRepository(db)
	licenseService, err := licenses.NewService(licenses.NewRepository(db))
	require.NoError(t, err)

	oauthService, err := oauth.NewService(notionClient, usersRepo, licenseService, cfg.JWT, "http://localhost:3000/callback")
	require.NoError(t, err)

	runner, err := pipeline.NewRunner(
		pipeline.NewMockExtractor(rand.New(rand.NewSource(1))),
		pipeline.NewMockEnhancer(),
		3,
		nil,
	)
	require.NoError(t, err)

	directPublisher, err := publisher.NewDirectPublisher(notionClient)
	require.NoError(t, err)

	notesService, err := notes.NewService(runner, directPublisher, runner, directPublisher, usersRepo, nil)
	require.NoError(t, err)

	uploadStore, err := uploads.NewStore(cfg.Upload)
	require.NoError(t, err)

	router := NewRouter(cfg, nil, usersRepo, licenseService, oauthService, notionClient, notesService, uploadStore, nil)

	return &testEnv{
		router:    router,
		db:        db,
		usersRepo: usersRepo,
		licenses:  licenseService,
		notionAPI: fake,
	}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) postJSON(t *testing.T, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.do(t, req)
}

func (e *testEnv) seedLicense(t *testing.T, key string) {
	t.Helper()
	_, err := e.licenses.Create(context.Background(), licenses.CreateInput{Key: key, CreatedBy: "test"})
	require.NoError(t, err)
}

// connect walks the OAuth callback and returns the minted session token.
func (e *testEnv) connect(t *testing.T, licenseKey string) string {
	t.Helper()
	payload := map[string]string{"code": "auth-code-1"}
	if licenseKey != "" {
		payload["license_key"] = licenseKey
	}
	rec := e.postJSON(t, "/api/oauth/callback", "", payload)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result struct {
		SessionToken   string `json:"session_token"`
		WorkspaceName  string `json:"workspace_name"`
		BotID          string `json:"bot_id"`
		NeedsPageSetup bool   `json:"needs_page_setup"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.NotEmpty(t, result.SessionToken)
	require.Equal(t, "Router Workspace", result.WorkspaceName)
	require.Equal(t, "bot-router", result.BotID)
	return result.SessionToken
}

func multipartPhoto(t *testing.T, filename, testMode string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	part, err := writer.CreateFormFile("photo", filename)
	require.NoError(t, err)
	_, err = io.Copy(part, strings.NewReader("not-really-a-png"))
	require.NoError(t, err)
	if testMode != "" {
		require.NoError(t, writer.WriteField("test_mode", testMode))
	}
	require.NoError(t, writer.Close())
	return buf, writer.FormDataContentType()
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "healthy", body["status"])
	require.Equal(t, "notelift-backend", body["service"])
}

func TestLicenseValidateEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedLicense(t, "BETA-AAAA-BBBB-CCCC")

	rec := env.postJSON(t, "/api/license/validate", "", map[string]string{"license_key": "beta-aaaa-bbbb-cccc"})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Valid   bool   `json:"valid"`
		Message string `json:"message"`
		IsUsed  bool   `json:"is_used"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Valid)
	require.False(t, body.IsUsed)

	rec = env.postJSON(t, "/api/license/validate", "", map[string]string{"license_key": "BETA-ZZZZ-ZZZZ-ZZZZ"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.False(t, body.Valid)
	require.Equal(t, "Invalid license key", body.Message)
}

func TestLicenseValidateRequiresKey(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postJSON(t, "/api/license/validate", "", map[string]string{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOAuthCallbackIssuesWorkingSession(t *testing.T) {
	env := newTestEnv(t)
	env.seedLicense(t, "BETA-AAAA-BBBB-CCCC")

	token := env.connect(t, "BETA-AAAA-BBBB-CCCC")

	req := httptest.NewRequest(http.MethodGet, "/api/user/info", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := env.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var info struct {
		WorkspaceName string `json:"workspace_name"`
		HasPageID     bool   `json:"has_page_id"`
		BotID         string `json:"bot_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	require.Equal(t, "Router Workspace", info.WorkspaceName)
	require.Equal(t, "bot-router", info.BotID)
	require.False(t, info.HasPageID)
}

func TestOAuthCallbackRequiresCode(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postJSON(t, "/api/oauth/callback", "", map[string]string{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOAuthCallbackSurfacesExchangeFailure(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postJSON(t, "/api/oauth/callback", "", map[string]string{"code": "bad-code"})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestUserInfoRequiresSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/user/info", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSetPageIDThenInfoReflectsIt(t *testing.T) {
	env := newTestEnv(t)
	env.seedLicense(t, "BETA-AAAA-BBBB-CCCC")
	token := env.connect(t, "BETA-AAAA-BBBB-CCCC")

	rec := env.postJSON(t, "/api/user/page-id", token, map[string]string{"page_id": "parent-page-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool `json:"success"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Success)

	req := httptest.NewRequest(http.MethodGet, "/api/user/info", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = env.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var info struct {
		HasPageID bool `json:"has_page_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	require.True(t, info.HasPageID)
}

func TestSetPageIDRequiresField(t *testing.T) {
	env := newTestEnv(t)
	env.seedLicense(t, "BETA-AAAA-BBBB-CCCC")
	token := env.connect(t, "BETA-AAAA-BBBB-CCCC")

	rec := env.postJSON(t, "/api/user/page-id", token, map[string]string{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchRequiresActiveLicense(t *testing.T) {
	env := newTestEnv(t)
	token := env.connect(t, "")

	rec := env.postJSON(t, "/api/notion/search", token, map[string]string{})
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSearchReturnsPages(t *testing.T) {
	env := newTestEnv(t)
	env.seedLicense(t, "BETA-AAAA-BBBB-CCCC")
	token := env.connect(t, "BETA-AAAA-BBBB-CCCC")

	rec := env.postJSON(t, "/api/notion/search", token, map[string]string{"query": "inbox"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Pages []struct {
			ID    string  `json:"id"`
			Title string  `json:"title"`
			Icon  *string `json:"icon"`
		} `json:"pages"`
		HasMore bool `json:"has_more"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Pages, 1)
	require.Equal(t, "Inbox", body.Pages[0].Title)
	require.NotNil(t, body.Pages[0].Icon)
	require.Equal(t, "📓", *body.Pages[0].Icon)
	require.False(t, body.HasMore)
}

func TestRevokedLicenseDeniesNextRequest(t *testing.T) {
	env := newTestEnv(t)
	env.seedLicense(t, "BETA-AAAA-BBBB-CCCC")
	token := env.connect(t, "BETA-AAAA-BBBB-CCCC")

	rec := env.postJSON(t, "/api/notion/search", token, map[string]string{})
	require.Equal(t, http.StatusOK, rec.Code)

	found, err := env.licenses.Revoke(context.Background(), "BETA-AAAA-BBBB-CCCC")
	require.NoError(t, err)
	require.True(t, found)

	rec = env.postJSON(t, "/api/notion/search", token, map[string]string{})
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUploadPublishesTestModeNote(t *testing.T) {
	env := newTestEnv(t)
	env.seedLicense(t, "BETA-AAAA-BBBB-CCCC")
	token := env.connect(t, "BETA-AAAA-BBBB-CCCC")

	rec := env.postJSON(t, "/api/user/page-id", token, map[string]string{"page_id": "parent-page-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	buf, contentType := multipartPhoto(t, "note.png", "true")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", buf)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = env.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Success  bool   `json:"success"`
		Message  string `json:"message"`
		Details  string `json:"details"`
		TestMode bool   `json:"test_mode"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Success)
	require.True(t, body.TestMode)
	require.Contains(t, body.Details, "TEST MODE")

	env.notionAPI.mu.Lock()
	defer env.notionAPI.mu.Unlock()
	require.Len(t, env.notionAPI.createdPages, 1)
	require.True(t, strings.HasPrefix(env.notionAPI.createdPages[0], "TEST - "))
	require.Greater(t, env.notionAPI.appendCalls, 0)
}

func TestUploadWithoutConfiguredPageFails(t *testing.T) {
	env := newTestEnv(t)
	env.seedLicense(t, "BETA-AAAA-BBBB-CCCC")
	token := env.connect(t, "BETA-AAAA-BBBB-CCCC")

	buf, contentType := multipartPhoto(t, "note.png", "true")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", buf)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := env.do(t, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadRejectsDisallowedExtension(t *testing.T) {
	env := newTestEnv(t)
	env.seedLicense(t, "BETA-AAAA-BBBB-CCCC")
	token := env.connect(t, "BETA-AAAA-BBBB-CCCC")

	rec := env.postJSON(t, "/api/user/page-id", token, map[string]string{"page_id": "parent-page-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	buf, contentType := multipartPhoto(t, "script.sh", "true")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", buf)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = env.do(t, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadTargetGoneClearsStoredPage(t *testing.T) {
	env := newTestEnv(t)
	env.seedLicense(t, "BETA-AAAA-BBBB-CCCC")
	token := env.connect(t, "BETA-AAAA-BBBB-CCCC")

	rec := env.postJSON(t, "/api/user/page-id", token, map[string]string{"page_id": "parent-page-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	env.notionAPI.mu.Lock()
	env.notionAPI.parentGone = true
	env.notionAPI.mu.Unlock()

	buf, contentType := multipartPhoto(t, "note.png", "true")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", buf)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = env.do(t, req)
	require.Equal(t, http.StatusGone, rec.Code, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/user/info", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = env.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var info struct {
		HasPageID bool `json:"has_page_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	require.False(t, info.HasPageID, "stored target should be cleared after 410")
}

func TestUploadRequiresSession(t *testing.T) {
	env := newTestEnv(t)

	buf, contentType := multipartPhoto(t, "note.png", "true")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", buf)
	req.Header.Set("Content-Type", contentType)
	rec := env.do(t, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUnknownRouteReturns404(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
