// Package config loads runtime configuration for the Rift client and its
// development server.
//
// Sources, highest priority first:
//  1. an explicit path (--config);
//  2. RIFT_CONFIG;
//  3. ./rift.yaml;
//  4. environment variables only.
//
// Environment variables always overlay file values.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultFile is read from the working directory when no path is given.
const DefaultFile = "rift.yaml"

// Config captures the runtime configuration for the Rift client.
type Config struct {
	API       APIConfig       `yaml:"api"`
	Secrets   SecretsConfig   `yaml:"secrets"`
	Log       LogConfig       `yaml:"log"`
	Username  UsernameConfig  `yaml:"username"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	DevServer DevServerConfig `yaml:"devserver"`
}

// APIConfig describes the remote REST API.
type APIConfig struct {
	BaseURL        string        `yaml:"base_url" env:"RIFT_API_BASE_URL" env-default:"http://localhost:3000"`
	Timeout        time.Duration `yaml:"timeout" env:"RIFT_API_TIMEOUT" env-default:"30s"`
	BreakerEnabled bool          `yaml:"breaker_enabled" env:"RIFT_API_BREAKER" env-default:"false"`
}

// Secret store backends.
const (
	SecretsMemory   = "memory"
	SecretsBadger   = "badger"
	SecretsPostgres = "postgres"
)

// SecretsConfig selects where session tokens are persisted.
type SecretsConfig struct {
	Backend     string `yaml:"backend" env:"RIFT_SECRETS_BACKEND" env-default:"badger"`
	Dir         string `yaml:"dir" env:"RIFT_SECRETS_DIR" env-default:".rift/secrets"`
	DatabaseURL string `yaml:"database_url" env:"RIFT_SECRETS_DATABASE_URL"`
	Passphrase  string `yaml:"passphrase" env:"RIFT_SECRETS_PASSPHRASE"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" env:"RIFT_LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"RIFT_LOG_FORMAT" env-default:"text"`
}

// UsernameConfig tunes the interactive availability check.
type UsernameConfig struct {
	Debounce time.Duration `yaml:"debounce" env:"RIFT_USERNAME_DEBOUNCE" env-default:"500ms"`
}

// MetricsConfig exposes client metrics over HTTP when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr" env:"RIFT_METRICS_ADDR"`
}

// DevServerConfig configures the in-process Rift API used for local development.
type DevServerConfig struct {
	Port           int           `yaml:"port" env:"RIFT_DEV_PORT" env-default:"3000"`
	PublicURL      string        `yaml:"public_url" env:"RIFT_DEV_PUBLIC_URL"`
	AccessTTL      time.Duration `yaml:"access_ttl" env:"RIFT_DEV_ACCESS_TTL" env-default:"15m"`
	RefreshTTL     time.Duration `yaml:"refresh_ttl" env:"RIFT_DEV_REFRESH_TTL" env-default:"720h"`
	JWTSecret      string        `yaml:"jwt_secret" env:"RIFT_DEV_JWT_SECRET" env-default:"rift-dev-secret"`
	RateLimit      int           `yaml:"rate_limit" env:"RIFT_DEV_RATE_LIMIT" env-default:"20"`
	RateWindow     time.Duration `yaml:"rate_window" env:"RIFT_DEV_RATE_WINDOW" env-default:"1s"`
	PresignTTL     time.Duration `yaml:"presign_ttl" env:"RIFT_DEV_PRESIGN_TTL" env-default:"15m"`
	ObjectStore    ObjectStore   `yaml:"object_store"`
	SeedDemoVideos bool          `yaml:"seed_demo_videos" env:"RIFT_DEV_SEED" env-default:"true"`
}

// ObjectStore describes an S3-compatible bucket for presigned uploads. When
// Bucket is empty the dev server accepts uploads itself.
type ObjectStore struct {
	Bucket        string `yaml:"bucket" env:"RIFT_DEV_S3_BUCKET"`
	Region        string `yaml:"region" env:"RIFT_DEV_S3_REGION" env-default:"us-east-1"`
	Endpoint      string `yaml:"endpoint" env:"RIFT_DEV_S3_ENDPOINT"`
	PublicBaseURL string `yaml:"public_base_url" env:"RIFT_DEV_S3_PUBLIC_URL"`

	// Static keys are optional; the default AWS credential chain is used otherwise.
	AccessKeyID     string `yaml:"access_key_id" env:"RIFT_DEV_S3_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"RIFT_DEV_S3_SECRET_ACCESS_KEY"`
}

// MustLoad panics when configuration cannot be loaded.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration following the documented source order.
func Load(path string) (*Config, error) {
	var cfg Config

	readFile := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}
		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("read config %q: %w", p, err)
		}
		return &cfg, nil
	}

	if path == "" {
		path = os.Getenv("RIFT_CONFIG")
	}
	if path != "" {
		return readFile(path)
	}

	if _, err := os.Stat(DefaultFile); err == nil {
		return readFile(DefaultFile)
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env config: %w", err)
	}
	return &cfg, nil
}
