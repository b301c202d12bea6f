package blob

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSConfig holds the settings of a Google Cloud Storage bucket.
type GCSConfig struct {
	ProjectID string
	Bucket    string
	// ServiceAccountJSON is the service account key, either raw JSON or
	// base64-encoded JSON. Empty means application default credentials.
	ServiceAccountJSON string
}

// Configured reports whether enough settings are present to use GCS.
func (c GCSConfig) Configured() bool {
	return c.ProjectID != "" && c.Bucket != ""
}

// GCS stores objects in a Google Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket string
}

// NewGCS connects to the configured bucket.
func NewGCS(ctx context.Context, cfg GCSConfig) (*GCS, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}
	opts := []option.ClientOption{option.WithQuotaProject(cfg.ProjectID)}
	if cfg.ServiceAccountJSON != "" {
		creds, err := DecodeCredentials(cfg.ServiceAccountJSON)
		if err != nil {
			return nil, err
		}
		opts = append(opts, option.WithCredentialsJSON(creds))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	return &GCS{client: client, bucket: cfg.Bucket}, nil
}

// DecodeCredentials accepts a service account key as raw JSON or as base64
// of that JSON.
func DecodeCredentials(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{") {
		return []byte(s), nil
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("service account key is neither JSON nor base64: %w", err)
	}
	if !strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
		return nil, errors.New("decoded service account key is not JSON")
	}
	return data, nil
}

// BaseURL is the public URL prefix of objects in the bucket.
func (g *GCS) BaseURL() string {
	return "https://storage.googleapis.com/" + g.bucket + "/"
}

func (g *GCS) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("gcs upload %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gcs upload %s: %w", key, err)
	}
	return g.BaseURL() + key, nil
}

func (g *GCS) Delete(ctx context.Context, key string) error {
	err := g.client.Bucket(g.bucket).Object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("gcs delete %s: %w", key, err)
	}
	return nil
}

func (g *GCS) Name() string { return "gcs" }

// Close releases the client.
func (g *GCS) Close() error { return g.client.Close() }
