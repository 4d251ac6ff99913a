// Package config loads application configuration from a YAML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"

	"github.com/studioshot/platform/pkg/logger"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `yaml:"host" env:"SERVER_HOST"`
	Port            int           `yaml:"port" env:"SERVER_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
	CORSOrigins     []string      `yaml:"cors_origins" env:"SERVER_CORS_ORIGINS"`
	AuditLogPath    string        `yaml:"audit_log_path" env:"SERVER_AUDIT_LOG_PATH"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	Driver          string `yaml:"driver" env:"DATABASE_DRIVER"`
	DSN             string `yaml:"dsn" env:"DATABASE_DSN"`
	MaxOpenConns    int    `yaml:"max_open_conns" env:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `yaml:"max_idle_conns" env:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_seconds" env:"DATABASE_CONN_MAX_LIFETIME"`
	MigrationsDir   string `yaml:"migrations_dir" env:"DATABASE_MIGRATIONS_DIR"`
}

// ObjectStoreConfig configures the S3-compatible photo store. An empty
// endpoint selects the in-memory store (tests and local development).
type ObjectStoreConfig struct {
	Endpoint  string `yaml:"endpoint" env:"OBJECT_STORE_ENDPOINT"`
	Region    string `yaml:"region" env:"OBJECT_STORE_REGION"`
	Bucket    string `yaml:"bucket" env:"OBJECT_STORE_BUCKET"`
	AccessKey string `yaml:"access_key" env:"OBJECT_STORE_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"OBJECT_STORE_SECRET_KEY"`
	UseSSL    bool   `yaml:"use_ssl" env:"OBJECT_STORE_USE_SSL"`
}

// ProviderConfig configures the AI image provider. An empty endpoint disables
// the generation worker.
type ProviderConfig struct {
	Endpoint string        `yaml:"endpoint" env:"PROVIDER_ENDPOINT"`
	APIKey   string        `yaml:"api_key" env:"PROVIDER_API_KEY"`
	Timeout  time.Duration `yaml:"timeout" env:"PROVIDER_TIMEOUT"`
}

// AuthConfig configures JWT issuance and verification.
type AuthConfig struct {
	Secret   string        `yaml:"secret" env:"AUTH_SECRET"`
	TokenTTL time.Duration `yaml:"token_ttl" env:"AUTH_TOKEN_TTL"`
}

// GenerationConfig tunes the headshot workflow.
type GenerationConfig struct {
	PhotoCount        int           `yaml:"photo_count" env:"GENERATION_PHOTO_COUNT"`
	RegenerationLimit int           `yaml:"regeneration_limit" env:"GENERATION_REGENERATION_LIMIT"`
	WorkerInterval    time.Duration `yaml:"worker_interval" env:"GENERATION_WORKER_INTERVAL"`
	MaxAttempts       int           `yaml:"max_attempts" env:"GENERATION_MAX_ATTEMPTS"`
	StuckAfter        time.Duration `yaml:"stuck_after" env:"GENERATION_STUCK_AFTER"`
}

// MaintenanceConfig configures the background sweep schedule.
type MaintenanceConfig struct {
	Schedule string `yaml:"schedule" env:"MAINTENANCE_SCHEDULE"`
}

// RateLimitConfig configures per-caller request throttling.
type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second" env:"RATE_LIMIT_RPS"`
	Burst             int `yaml:"burst" env:"RATE_LIMIT_BURST"`
}

// Config is the root application configuration.
type Config struct {
	Server      ServerConfig         `yaml:"server"`
	Database    DatabaseConfig       `yaml:"database"`
	ObjectStore ObjectStoreConfig    `yaml:"object_store"`
	Provider    ProviderConfig       `yaml:"provider"`
	Auth        AuthConfig           `yaml:"auth"`
	Generation  GenerationConfig     `yaml:"generation"`
	Maintenance MaintenanceConfig    `yaml:"maintenance"`
	RateLimit   RateLimitConfig      `yaml:"rate_limit"`
	Logging     logger.LoggingConfig `yaml:"logging"`

	// Brands maps request hostnames to brand identifiers for the branded
	// domains served by this deployment.
	Brands map[string]string `yaml:"brands"`
}

// Load reads the YAML file at path (when it exists), applies environment
// overrides, and fills defaults. Path may be empty to configure from the
// environment alone.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := envdecode.Decode(cfg); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Provider.Timeout == 0 {
		c.Provider.Timeout = 60 * time.Second
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}
	if c.Generation.PhotoCount == 0 {
		c.Generation.PhotoCount = 4
	}
	if c.Generation.RegenerationLimit == 0 {
		c.Generation.RegenerationLimit = 3
	}
	if c.Generation.WorkerInterval == 0 {
		c.Generation.WorkerInterval = 5 * time.Second
	}
	if c.Generation.MaxAttempts == 0 {
		c.Generation.MaxAttempts = 3
	}
	if c.Generation.StuckAfter == 0 {
		c.Generation.StuckAfter = 15 * time.Minute
	}
	if c.Maintenance.Schedule == "" {
		c.Maintenance.Schedule = "@every 10m"
	}
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 20
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 40
	}
}

func (c *Config) validate() error {
	if c.Auth.Secret == "" {
		return fmt.Errorf("auth.secret is required")
	}
	if c.ObjectStore.Endpoint != "" && c.ObjectStore.Bucket == "" {
		return fmt.Errorf("object_store.bucket is required when an endpoint is set")
	}
	return nil
}
