// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/alfredjeanlab/backoffice/internal/blob"
)

type Config struct {
	DatabaseURL string        // BACKOFFICE_DATABASE_URL (required; "memory://" for an in-process store)
	HTTPAddr    string        // BACKOFFICE_HTTP_ADDR (default ":8080")
	NATSURL     string        // BACKOFFICE_NATS_URL (optional, empty = no events)
	AuthToken   string        // BACKOFFICE_AUTH_TOKEN (optional static service token)
	SessionTTL  time.Duration // BACKOFFICE_SESSION_TTL (default 24h)
	LogLevel    slog.Level    // BACKOFFICE_LOG_LEVEL (default info)

	// Export settings
	ExportInterval  time.Duration // BACKOFFICE_EXPORT_INTERVAL (default 0 = disabled)
	ExportKey       string        // BACKOFFICE_EXPORT_KEY (default "backoffice/export.jsonl")
	ExportGitRepo   string        // BACKOFFICE_EXPORT_GIT_REPO (enables git when set; path to clone)
	ExportGitFile   string        // BACKOFFICE_EXPORT_GIT_FILE (default "backoffice.jsonl")
	ExportGitBranch string        // BACKOFFICE_EXPORT_GIT_BRANCH (default "main")

	// Object storage. GCS wins when both are configured.
	GCS blob.GCSConfig // GCS_PROJECT_ID, GCS_BUCKET, GCS_SERVICE_ACCOUNT_JSON
	S3  blob.S3Config  // BACKOFFICE_S3_BUCKET, BACKOFFICE_S3_REGION (default "us-east-1"), BACKOFFICE_S3_ENDPOINT
}

// Load reads the configuration from the environment. The named env files,
// or ".env" when none are given, are loaded first if they exist; variables
// already set in the environment take precedence over them.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	c := &Config{
		DatabaseURL:     os.Getenv("BACKOFFICE_DATABASE_URL"),
		HTTPAddr:        envOrDefault("BACKOFFICE_HTTP_ADDR", ":8080"),
		NATSURL:         os.Getenv("BACKOFFICE_NATS_URL"),
		AuthToken:       os.Getenv("BACKOFFICE_AUTH_TOKEN"),
		ExportKey:       envOrDefault("BACKOFFICE_EXPORT_KEY", "backoffice/export.jsonl"),
		ExportGitRepo:   os.Getenv("BACKOFFICE_EXPORT_GIT_REPO"),
		ExportGitFile:   envOrDefault("BACKOFFICE_EXPORT_GIT_FILE", "backoffice.jsonl"),
		ExportGitBranch: envOrDefault("BACKOFFICE_EXPORT_GIT_BRANCH", "main"),
		GCS: blob.GCSConfig{
			ProjectID:          os.Getenv("GCS_PROJECT_ID"),
			Bucket:             os.Getenv("GCS_BUCKET"),
			ServiceAccountJSON: os.Getenv("GCS_SERVICE_ACCOUNT_JSON"),
		},
		S3: blob.S3Config{
			Bucket:   os.Getenv("BACKOFFICE_S3_BUCKET"),
			Region:   envOrDefault("BACKOFFICE_S3_REGION", "us-east-1"),
			Endpoint: os.Getenv("BACKOFFICE_S3_ENDPOINT"),
		},
	}
	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("BACKOFFICE_DATABASE_URL is required")
	}

	var err error
	if c.SessionTTL, err = envDuration("BACKOFFICE_SESSION_TTL", "24h"); err != nil {
		return nil, err
	}
	if c.ExportInterval, err = envDuration("BACKOFFICE_EXPORT_INTERVAL", "0"); err != nil {
		return nil, err
	}
	if lvl := os.Getenv("BACKOFFICE_LOG_LEVEL"); lvl != "" {
		if err := c.LogLevel.UnmarshalText([]byte(strings.ToUpper(lvl))); err != nil {
			return nil, fmt.Errorf("BACKOFFICE_LOG_LEVEL: %w", err)
		}
	}

	return c, nil
}

// InMemory reports whether the database URL selects the in-process store.
func (c *Config) InMemory() bool {
	return strings.HasPrefix(c.DatabaseURL, "memory://")
}

func envDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: must not be negative", key)
	}
	return d, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
