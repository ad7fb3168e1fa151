// Package config loads the tool configuration: instance credentials,
// store location, snapshot cache policy.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ivseb/strapi-sync-wizard/internal/strapi"
)

// Config represents the application configuration.
type Config struct {
	Source strapi.Instance `yaml:"source"`
	Target strapi.Instance `yaml:"target"`

	DBPath string `yaml:"db_path"`

	// SnapshotTTL bounds how old a cached instance snapshot may be
	// before a fresh fetch is forced.
	SnapshotTTL time.Duration `yaml:"snapshot_ttl"`

	LogLevel string `yaml:"log_level"`
}

// Load loads configuration from multiple sources with precedence:
// 1. Environment variables
// 2. ./.env (dotenv, current directory)
// 3. the YAML config file (explicit path, or ./strapi-sync.yaml)
func Load(path string) (*Config, error) {
	cfg := &Config{
		SnapshotTTL: time.Hour,
		LogLevel:    "info",
	}

	// Load .env if present so credentials can stay out of YAML.
	_ = godotenv.Load()

	if err := loadYAML(cfg, path); err != nil {
		return nil, err
	}

	applyEnv(cfg)

	if cfg.DBPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		cfg.DBPath = filepath.Join(homeDir, ".local", "share", "strapi-sync", "sync.db")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadYAML(cfg *Config, path string) error {
	explicit := path != ""
	if path == "" {
		path = "strapi-sync.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			// The default file is optional.
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides file values with environment variables. Password
// variables support the _FILE variant for secret mounts.
func applyEnv(cfg *Config) {
	setIfPresent := func(env string, dst *string) {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}

	setIfPresent("STRAPI_SYNC_SOURCE_URL", &cfg.Source.BaseURL)
	setIfPresent("STRAPI_SYNC_SOURCE_EMAIL", &cfg.Source.Email)
	setIfPresent("STRAPI_SYNC_TARGET_URL", &cfg.Target.BaseURL)
	setIfPresent("STRAPI_SYNC_TARGET_EMAIL", &cfg.Target.Email)
	setIfPresent("STRAPI_SYNC_DB_PATH", &cfg.DBPath)
	setIfPresent("STRAPI_SYNC_LOG_LEVEL", &cfg.LogLevel)

	if v := getEnvOrFile("STRAPI_SYNC_SOURCE_PASSWORD", "STRAPI_SYNC_SOURCE_PASSWORD_FILE"); v != "" {
		cfg.Source.Password = v
	}
	if v := getEnvOrFile("STRAPI_SYNC_TARGET_PASSWORD", "STRAPI_SYNC_TARGET_PASSWORD_FILE"); v != "" {
		cfg.Target.Password = v
	}

	if v := os.Getenv("STRAPI_SYNC_SNAPSHOT_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SnapshotTTL = d
		}
	}
}

func (c *Config) validate() error {
	if c.Source.BaseURL == "" {
		return fmt.Errorf("config: source base_url is required")
	}
	if c.Target.BaseURL == "" {
		return fmt.Errorf("config: target base_url is required")
	}
	if c.Source.ID == "" {
		c.Source.ID = c.Source.BaseURL
	}
	if c.Target.ID == "" {
		c.Target.ID = c.Target.BaseURL
	}
	if c.Source.ID == c.Target.ID {
		return fmt.Errorf("config: source and target must be distinct instances")
	}
	return nil
}

// getEnvOrFile gets an environment variable value, or reads it from a
// file if the _FILE variant is set.
func getEnvOrFile(envVar, fileVar string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	if filePath := os.Getenv(fileVar); filePath != "" {
		data, err := os.ReadFile(filePath)
		if err == nil {
			return string(data)
		}
	}
	return ""
}
