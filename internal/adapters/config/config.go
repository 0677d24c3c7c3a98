package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"dealscope/pkg/errors"
)

type Config struct {
	App           AppConfig
	Postgres      PostgresConfig
	Redis         RedisConfig
	AI            AIConfig
	News          NewsConfig
	Telegram      TelegramConfig
	Server        ServerConfig
	Tables        TablesConfig
	ErrorTracking ErrorTrackingConfig
	Pipeline      PipelineConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"dealscope"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" required:"true"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	Database string `envconfig:"POSTGRES_DB" required:"true"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"25"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type AIConfig struct {
	APIKey       string        `envconfig:"OPENAI_API_KEY" required:"true"`
	BaseURL      string        `envconfig:"OPENAI_BASE_URL"` // Azure-compatible endpoints override this
	Model        string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	Timeout      time.Duration `envconfig:"OPENAI_TIMEOUT" default:"60s"`
	ReqPerMinute float64       `envconfig:"OPENAI_REQ_PER_MINUTE" default:"500"`
}

type NewsConfig struct {
	Endpoint     string        `envconfig:"NEWS_SEARCH_URL" required:"true"`
	APIKey       string        `envconfig:"NEWS_SEARCH_KEY"`
	MaxSnippets  int           `envconfig:"NEWS_MAX_SNIPPETS" default:"5"`
	CacheTTL     time.Duration `envconfig:"NEWS_CACHE_TTL" default:"30m"`
	ReqPerMinute int           `envconfig:"NEWS_REQ_PER_MINUTE" default:"60"`
}

type TelegramConfig struct {
	BotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	Timeout  int    `envconfig:"TELEGRAM_TIMEOUT" default:"60"`
}

type ServerConfig struct {
	Port int `envconfig:"SERVER_PORT" default:"8080"`
}

// TablesConfig names the lakehouse tables the pipeline reads from.
// Identifiers are opaque at this layer; the repositories interpolate them.
type TablesConfig struct {
	OpenDeals   string `envconfig:"OPEN_DEALS_TABLE" default:"open_deals"`
	ShapFactors string `envconfig:"SHAP_TABLE" default:"shap_values"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	Provider    string `envconfig:"ERROR_TRACKING_PROVIDER" default:"sentry"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// PipelineConfig tunes the per-request pipeline run
type PipelineConfig struct {
	StepTimeout    time.Duration `envconfig:"PIPELINE_STEP_TIMEOUT" default:"90s"`
	RequestTimeout time.Duration `envconfig:"PIPELINE_REQUEST_TIMEOUT" default:"5m"`
	MaxExplainRows int           `envconfig:"PIPELINE_MAX_EXPLAIN_ROWS" default:"25"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
