package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable read by the service.
const EnvPrefix = "NOTELIFT"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names referenced by tests and deploy tooling.
const (
	EnvAppEnv       = "NOTELIFT_APP_ENV"
	EnvPort         = "NOTELIFT_APP_PORT"
	EnvDBDSN        = "NOTELIFT_DB_DSN"
	EnvJWTSecret    = "NOTELIFT_JWT_SECRET"
	EnvJWTIssuer    = "NOTELIFT_JWT_ISSUER"
	EnvNotionClient = "NOTELIFT_NOTION_CLIENT_ID"
	EnvNotionSecret = "NOTELIFT_NOTION_CLIENT_SECRET"
	EnvGeminiAPIKey = "NOTELIFT_GEMINI_API_KEY"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Notion        NotionConfig
	Gemini        GeminiConfig
	Upload        UploadConfig
	Publish       PublishConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"NOTELIFT_APP_ENV" required:"true"`
	Port         string `envconfig:"NOTELIFT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"NOTELIFT_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"NOTELIFT_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"NOTELIFT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"NOTELIFT_DB_DSN" required:"true"`
	Driver string `envconfig:"NOTELIFT_DB_DRIVER" default:"postgres"`

	MaxOpenConns    int           `envconfig:"NOTELIFT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"NOTELIFT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"NOTELIFT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"NOTELIFT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"NOTELIFT_REDIS_URL"`
	PoolSize     int           `envconfig:"NOTELIFT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"NOTELIFT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"NOTELIFT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"NOTELIFT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"NOTELIFT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret     string        `envconfig:"NOTELIFT_JWT_SECRET" required:"true"`
	Issuer     string        `envconfig:"NOTELIFT_JWT_ISSUER" required:"true"`
	SessionTTL time.Duration `envconfig:"NOTELIFT_JWT_SESSION_TTL" default:"168h"`
}

// NotionConfig carries the OAuth application credentials and API surface.
type NotionConfig struct {
	ClientID     string        `envconfig:"NOTELIFT_NOTION_CLIENT_ID" required:"true"`
	ClientSecret string        `envconfig:"NOTELIFT_NOTION_CLIENT_SECRET" required:"true"`
	RedirectURI  string        `envconfig:"NOTELIFT_NOTION_REDIRECT_URI"`
	BaseURL      string        `envconfig:"NOTELIFT_NOTION_BASE_URL" default:"https://api.notion.com"`
	Version      string        `envconfig:"NOTELIFT_NOTION_VERSION" default:"2022-06-28"`
	HTTPTimeout  time.Duration `envconfig:"NOTELIFT_NOTION_HTTP_TIMEOUT" default:"30s"`
}

type GeminiConfig struct {
	APIKey      string        `envconfig:"NOTELIFT_GEMINI_API_KEY" required:"true"`
	VisionModel string        `envconfig:"NOTELIFT_GEMINI_VISION_MODEL" default:"gemini-2.5-flash"`
	TextModel   string        `envconfig:"NOTELIFT_GEMINI_TEXT_MODEL" default:"gemini-2.5-flash"`
	CallTimeout time.Duration `envconfig:"NOTELIFT_GEMINI_CALL_TIMEOUT" default:"120s"`
}

type UploadConfig struct {
	Dir        string `envconfig:"NOTELIFT_UPLOAD_DIR" default:"uploads"`
	MaxBytes   int64  `envconfig:"NOTELIFT_UPLOAD_MAX_BYTES" default:"16777216"`
	Extensions string `envconfig:"NOTELIFT_UPLOAD_EXTENSIONS" default:"png,jpg,jpeg,gif"`
}

// AllowedExtensions returns the normalized extension allowlist.
func (u UploadConfig) AllowedExtensions() []string {
	parts := strings.Split(u.Extensions, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// PublishConfig bounds the LLM-driven publish loop and the enhancement workflow.
type PublishConfig struct {
	MaxIterations        int `envconfig:"NOTELIFT_PUBLISH_MAX_ITERATIONS" default:"10"`
	MaxConsecutiveErrors int `envconfig:"NOTELIFT_PUBLISH_MAX_CONSECUTIVE_ERRORS" default:"5"`
	MaxEnhanceRetries    int `envconfig:"NOTELIFT_ENHANCE_MAX_RETRIES" default:"3"`
}

type AuthRateLimitConfig struct {
	CallbackWindow  time.Duration `envconfig:"NOTELIFT_AUTH_RATE_LIMIT_CALLBACK_WINDOW" default:"1m"`
	CallbackIPLimit int           `envconfig:"NOTELIFT_AUTH_RATE_LIMIT_CALLBACK_IP_LIMIT" default:"10"`
	ValidateWindow  time.Duration `envconfig:"NOTELIFT_AUTH_RATE_LIMIT_VALIDATE_WINDOW" default:"1m"`
	ValidateIPLimit int           `envconfig:"NOTELIFT_AUTH_RATE_LIMIT_VALIDATE_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"NOTELIFT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"NOTELIFT_AUTO_MIGRATE" default:"false"`
}
