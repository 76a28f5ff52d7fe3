package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// DefaultMaxSizeBytes is the default uncompressed package size limit (50 MiB).
const DefaultMaxSizeBytes int64 = 50 * 1024 * 1024

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Build     BuildConfig
	Loader    LoaderConfig
	Registry  RegistryConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP host configuration.
type ServerConfig struct {
	Port        string   `envconfig:"PORT" default:"8000"`
	Host        string   `envconfig:"HOST" default:"0.0.0.0"`
	ArtifactDir string   `envconfig:"APKG_ARTIFACT_DIR" default:""`
	CORSOrigins []string `envconfig:"CORS_ORIGINS"`
}

// BuildConfig holds archive builder configuration.
type BuildConfig struct {
	MaxSizeBytes int64    `envconfig:"APKG_MAX_SIZE_BYTES" default:"52428800"`
	Ignore       []string `envconfig:"APKG_IGNORE"`
	OutputDir    string   `envconfig:"APKG_OUTPUT_DIR" default:"build"`
	Multiplex    bool     `envconfig:"APKG_MULTIPLEX" default:"true"`
	PortHTTP     int      `envconfig:"APKG_PORT_HTTP" default:"8080"`
	PortRPC      int      `envconfig:"APKG_PORT_RPC" default:"50051"`
	PortUI       int      `envconfig:"APKG_PORT_UI" default:"3000"`
}

// LoaderConfig holds package loader configuration.
type LoaderConfig struct {
	StagingDir   string        `envconfig:"APKG_STAGING_DIR" default:""`
	Concurrency  int           `envconfig:"APKG_LOAD_CONCURRENCY" default:"4"`
	Timeout      time.Duration `envconfig:"APKG_LOAD_TIMEOUT" default:"30s"`
	MaxSizeBytes int64         `envconfig:"APKG_MAX_SIZE_BYTES" default:"52428800"`
}

// RegistryConfig holds mount registry configuration.
type RegistryConfig struct {
	UpgradePolicy string `envconfig:"APKG_UPGRADE_POLICY" default:"strict"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration for the host API.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.applyDerived()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Build: BuildConfig{
			MaxSizeBytes: DefaultMaxSizeBytes,
			OutputDir:    "build",
			Multiplex:    true,
			PortHTTP:     8080,
			PortRPC:      50051,
			PortUI:       3000,
		},
		Loader: LoaderConfig{
			Concurrency:  4,
			Timeout:      30 * time.Second,
			MaxSizeBytes: DefaultMaxSizeBytes,
		},
		Registry: RegistryConfig{
			UpgradePolicy: "strict",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
	cfg.applyDerived()
	return cfg
}

// Validate checks values envconfig cannot express as tags.
func (c *Config) Validate() error {
	if c.Build.MaxSizeBytes <= 0 {
		return fmt.Errorf("APKG_MAX_SIZE_BYTES must be positive, got %d", c.Build.MaxSizeBytes)
	}
	if c.Loader.Concurrency <= 0 {
		return fmt.Errorf("APKG_LOAD_CONCURRENCY must be positive, got %d", c.Loader.Concurrency)
	}
	switch c.Registry.UpgradePolicy {
	case "strict", "allow-reinstall", "allow-any":
	default:
		return fmt.Errorf("APKG_UPGRADE_POLICY must be strict, allow-reinstall or allow-any, got %q", c.Registry.UpgradePolicy)
	}
	return nil
}

func (c *Config) applyDerived() {
	if c.Loader.StagingDir == "" {
		c.Loader.StagingDir = filepath.Join(os.TempDir(), "apkg-staging")
	}
}
