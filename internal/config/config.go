package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server     ServerConfig
	App        AppConfig
	Log        LogConfig
	Upstream   UpstreamConfig
	Catalog    CatalogConfig
	Aggregator AggregatorConfig
	Bulk       BulkConfig
	Poll       PollConfig
	Cache      CacheConfig
	Reports    ReportsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"3001"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"600s"` // bulk checks are long
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string   `envconfig:"APP_NAME" default:"fortnite-checker-api"`
	Environment string   `envconfig:"APP_ENV" default:"development"`
	Version     string   `envconfig:"APP_VERSION" default:"1.0.0"`
	APIKeys     []string `envconfig:"API_KEYS"` // empty disables API key auth
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
}

// LogConfig holds structured logging settings.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"text"` // text or json
}

// UpstreamConfig holds the account/profile service endpoints and the two
// application client secrets. ApplicationSecret is used for client-credential,
// device-code grants; DeviceSecret is used for device_auth and exchange_code grants.
type UpstreamConfig struct {
	AccountBaseURL    string        `envconfig:"UPSTREAM_ACCOUNT_URL" default:"https://account-public-service-prod03.ol.epicgames.com"`
	ProfileBaseURL    string        `envconfig:"UPSTREAM_PROFILE_URL" default:"https://fortnite-public-service-prod11.ol.epicgames.com"`
	ApplicationSecret string        `envconfig:"SWITCH_TOKEN" required:"true"`
	DeviceSecret      string        `envconfig:"IOS_TOKEN" required:"true"`
	Timeout           time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"30s"`
}

// CatalogConfig holds cosmetic catalog lookup settings.
type CatalogConfig struct {
	BaseURL     string        `envconfig:"CATALOG_URL" default:"https://fortnite-api.com"`
	Timeout     time.Duration `envconfig:"CATALOG_TIMEOUT" default:"5s"`
	MaxAttempts int           `envconfig:"CATALOG_MAX_ATTEMPTS" default:"2"`
	RetryDelay  time.Duration `envconfig:"CATALOG_RETRY_DELAY" default:"500ms"`
	CacheTTL    time.Duration `envconfig:"CATALOG_CACHE_TTL" default:"24h"`
	RateLimit   float64       `envconfig:"CATALOG_RATE_LIMIT" default:"0"` // requests/sec, 0 = unlimited
}

// AggregatorConfig holds cosmetic batching settings.
type AggregatorConfig struct {
	BatchSize  int           `envconfig:"ENRICH_BATCH_SIZE" default:"20"`
	BatchDelay time.Duration `envconfig:"ENRICH_BATCH_DELAY" default:"100ms"`
}

// BulkConfig holds bulk check settings.
type BulkConfig struct {
	ItemDelay time.Duration `envconfig:"BULK_ITEM_DELAY" default:"500ms"`
	MaxItems  int           `envconfig:"BULK_MAX_ITEMS" default:"500"`
}

// PollConfig holds device authorization polling settings.
type PollConfig struct {
	MaxAttempts int           `envconfig:"POLL_MAX_ATTEMPTS" default:"60"`
	Interval    time.Duration `envconfig:"POLL_INTERVAL" default:"5s"`
}

// CacheConfig holds catalog cache settings.
type CacheConfig struct {
	Type string `envconfig:"CACHE_TYPE" default:"memory"` // memory or redis

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisPrefix   string `envconfig:"REDIS_PREFIX" default:"fnchecker:catalog:"`
}

// ReportsConfig holds bulk report history database settings.
type ReportsConfig struct {
	Type string `envconfig:"REPORTS_DB_TYPE" default:"sqlite"` // sqlite, mysql, postgres or none
	Path string `envconfig:"REPORTS_DB_PATH" default:"./data/reports.db"`
	// MySQL / PostgreSQL settings
	Host     string `envconfig:"REPORTS_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"REPORTS_DB_PORT" default:"0"`
	Name     string `envconfig:"REPORTS_DB_NAME" default:"fnchecker"`
	User     string `envconfig:"REPORTS_DB_USER" default:"root"`
	Password string `envconfig:"REPORTS_DB_PASS" default:""`
	SSLMode  string `envconfig:"REPORTS_DB_SSLMODE" default:"disable"`

	Retention       time.Duration `envconfig:"REPORTS_RETENTION" default:"720h"` // 0 keeps reports forever
	CleanupInterval time.Duration `envconfig:"REPORTS_CLEANUP_INTERVAL" default:"1h"`
}

// PostgresDSN returns the PostgreSQL connection string.
func (r *ReportsConfig) PostgresDSN() string {
	port := r.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		r.User, r.Password, r.Host, port, r.Name, r.SSLMode)
}

// MySQLDSN returns the MySQL data source name.
func (r *ReportsConfig) MySQLDSN() string {
	port := r.Port
	if port == 0 {
		port = 3306
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true",
		r.User, r.Password, r.Host, port, r.Name)
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if strings.TrimSpace(cfg.Upstream.ApplicationSecret) == "" {
		return nil, fmt.Errorf("failed to load config: %w", errEmpty("SWITCH_TOKEN"))
	}
	if strings.TrimSpace(cfg.Upstream.DeviceSecret) == "" {
		return nil, fmt.Errorf("failed to load config: %w", errEmpty("IOS_TOKEN"))
	}

	if cfg.Catalog.MaxAttempts < 1 {
		return nil, fmt.Errorf("CATALOG_MAX_ATTEMPTS must be at least 1, got %d", cfg.Catalog.MaxAttempts)
	}
	if cfg.Aggregator.BatchSize < 1 {
		return nil, fmt.Errorf("ENRICH_BATCH_SIZE must be at least 1, got %d", cfg.Aggregator.BatchSize)
	}
	if cfg.Poll.MaxAttempts < 1 {
		return nil, fmt.Errorf("POLL_MAX_ATTEMPTS must be at least 1, got %d", cfg.Poll.MaxAttempts)
	}

	return &cfg, nil
}

// ErrEmptySetting is returned when a required setting is present but blank.
var ErrEmptySetting = errors.New("required setting is empty")

func errEmpty(name string) error {
	return fmt.Errorf("%s: %w", name, ErrEmptySetting)
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
