package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/alfredjeanlab/backoffice/internal/blob"
)

// setEnv starts from an environment with none of Load's variables set and
// then applies env. Variables are restored when the test ends.
func setEnv(t *testing.T, env map[string]string) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "BACKOFFICE_") || strings.HasPrefix(key, "GCS_") {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
	for k, v := range env {
		t.Setenv(k, v)
	}
}

// load runs Load without any env file.
func load(t *testing.T) (*Config, error) {
	return Load(filepath.Join(t.TempDir(), "absent.env"))
}

// defaults is what Load returns for a bare database URL.
func defaults(dbURL string) *Config {
	return &Config{
		DatabaseURL:     dbURL,
		HTTPAddr:        ":8080",
		SessionTTL:      24 * time.Hour,
		LogLevel:        slog.LevelInfo,
		ExportKey:       "backoffice/export.jsonl",
		ExportGitFile:   "backoffice.jsonl",
		ExportGitBranch: "main",
		S3:              blob.S3Config{Region: "us-east-1"},
	}
}

func TestLoad_Defaults(t *testing.T) {
	setEnv(t, map[string]string{"BACKOFFICE_DATABASE_URL": "postgres://localhost/backoffice"})
	cfg, err := load(t)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(defaults("postgres://localhost/backoffice"), cfg); diff != "" {
		t.Errorf("Load() (-want +got):\n%s", diff)
	}
	if cfg.InMemory() || cfg.GCS.Configured() {
		t.Errorf("InMemory() = %v, GCS.Configured() = %v; want both false", cfg.InMemory(), cfg.GCS.Configured())
	}
}

func TestLoad_Overrides(t *testing.T) {
	setEnv(t, map[string]string{
		"BACKOFFICE_DATABASE_URL":      "memory://",
		"BACKOFFICE_HTTP_ADDR":         ":3000",
		"BACKOFFICE_NATS_URL":          "nats://localhost:4222",
		"BACKOFFICE_AUTH_TOKEN":        "s3cret",
		"BACKOFFICE_SESSION_TTL":       "2h",
		"BACKOFFICE_LOG_LEVEL":         "debug",
		"BACKOFFICE_EXPORT_INTERVAL":   "10m",
		"BACKOFFICE_EXPORT_KEY":        "custom/key.jsonl",
		"BACKOFFICE_EXPORT_GIT_REPO":   "/tmp/repo",
		"BACKOFFICE_EXPORT_GIT_FILE":   "data/backoffice.jsonl",
		"BACKOFFICE_EXPORT_GIT_BRANCH": "backup",
		"GCS_PROJECT_ID":               "acme",
		"GCS_BUCKET":                   "acme-images",
		"GCS_SERVICE_ACCOUNT_JSON":     `{"type":"service_account"}`,
		"BACKOFFICE_S3_BUCKET":         "my-bucket",
		"BACKOFFICE_S3_REGION":         "eu-west-1",
		"BACKOFFICE_S3_ENDPOINT":       "http://minio:9000",
	})
	cfg, err := load(t)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := &Config{
		DatabaseURL:     "memory://",
		HTTPAddr:        ":3000",
		NATSURL:         "nats://localhost:4222",
		AuthToken:       "s3cret",
		SessionTTL:      2 * time.Hour,
		LogLevel:        slog.LevelDebug,
		ExportInterval:  10 * time.Minute,
		ExportKey:       "custom/key.jsonl",
		ExportGitRepo:   "/tmp/repo",
		ExportGitFile:   "data/backoffice.jsonl",
		ExportGitBranch: "backup",
		GCS:             blob.GCSConfig{ProjectID: "acme", Bucket: "acme-images", ServiceAccountJSON: `{"type":"service_account"}`},
		S3:              blob.S3Config{Bucket: "my-bucket", Region: "eu-west-1", Endpoint: "http://minio:9000"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() (-want +got):\n%s", diff)
	}
	if !cfg.InMemory() || !cfg.GCS.Configured() {
		t.Errorf("InMemory() = %v, GCS.Configured() = %v; want both true", cfg.InMemory(), cfg.GCS.Configured())
	}
}

func TestLoad_Rejects(t *testing.T) {
	for name, env := range map[string]map[string]string{
		"no database url":          {},
		"unparsable session ttl":   {"BACKOFFICE_DATABASE_URL": "memory://", "BACKOFFICE_SESSION_TTL": "tomorrow"},
		"negative export interval": {"BACKOFFICE_DATABASE_URL": "memory://", "BACKOFFICE_EXPORT_INTERVAL": "-1m"},
		"unknown log level":        {"BACKOFFICE_DATABASE_URL": "memory://", "BACKOFFICE_LOG_LEVEL": "loud"},
	} {
		t.Run(name, func(t *testing.T) {
			setEnv(t, env)
			if cfg, err := load(t); err == nil {
				t.Fatalf("Load() = %+v, want error", cfg)
			}
		})
	}
}

func TestLoad_EnvFile(t *testing.T) {
	setEnv(t, map[string]string{"BACKOFFICE_HTTP_ADDR": ":7000"})
	path := filepath.Join(t.TempDir(), ".env")
	content := "BACKOFFICE_DATABASE_URL=postgres://from-file/backoffice\n" +
		"BACKOFFICE_HTTP_ADDR=:9999\n" +
		"GCS_BUCKET=file-bucket\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := defaults("postgres://from-file/backoffice")
	want.HTTPAddr = ":7000" // the environment wins over the file
	want.GCS.Bucket = "file-bucket"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() (-want +got):\n%s", diff)
	}
}

func TestLoad_MalformedEnvFile(t *testing.T) {
	setEnv(t, nil)
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("BACKOFFICE_DATABASE_URL='unterminated\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load() of a malformed env file succeeded")
	}
}
