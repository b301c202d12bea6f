package main

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/alfredjeanlab/backoffice/internal/blob"
	"github.com/alfredjeanlab/backoffice/internal/config"
	"github.com/alfredjeanlab/backoffice/internal/store"
	"github.com/alfredjeanlab/backoffice/internal/store/memory"
	"github.com/alfredjeanlab/backoffice/internal/store/postgres"
	bosync "github.com/alfredjeanlab/backoffice/internal/sync"
)

// openStore connects to the configured database. "memory://" selects the
// in-process store, which starts empty and is lost on exit.
func openStore(cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	if cfg.InMemory() {
		logger.Warn("using the in-memory store; data is lost on exit")
		return memory.New(), nil
	}
	s, err := postgres.New(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// openBlobs connects to the configured object store. GCS wins when both GCS
// and S3 are configured; with neither, uploads fail with ErrNotConfigured.
func openBlobs(ctx context.Context, cfg *config.Config, logger *slog.Logger) (blob.Store, error) {
	switch {
	case cfg.GCS.Configured():
		g, err := blob.NewGCS(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		logger.Info("object storage enabled", "backend", "gcs", "bucket", cfg.GCS.Bucket)
		return g, nil
	case cfg.S3.Bucket != "":
		b, err := blob.NewS3(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		logger.Info("object storage enabled", "backend", "s3", "bucket", cfg.S3.Bucket)
		return b, nil
	}
	logger.Info("object storage disabled (set GCS_BUCKET or BACKOFFICE_S3_BUCKET)")
	return blob.Unconfigured{}, nil
}

// exportDestinations lists the configured export targets.
func exportDestinations(cfg *config.Config, blobs blob.Store, logger *slog.Logger) []bosync.Destination {
	var dests []bosync.Destination
	if _, ok := blobs.(blob.Unconfigured); !ok && cfg.ExportKey != "" {
		dests = append(dests, bosync.NewBlobDestination(blobs, cfg.ExportKey))
		logger.Info("export blob destination enabled", "backend", blobs.Name(), "key", cfg.ExportKey)
	}
	if cfg.ExportGitRepo != "" {
		dests = append(dests, bosync.NewGitDestination(cfg.ExportGitRepo, cfg.ExportGitFile, cfg.ExportGitBranch))
		logger.Info("export git destination enabled", "repo", cfg.ExportGitRepo, "file", cfg.ExportGitFile)
	}
	return dests
}

func closeBlobs(b blob.Store) {
	if c, ok := b.(io.Closer); ok {
		if err := c.Close(); err != nil {
			slog.Warn("closing object storage", "err", err)
		}
	}
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

var errNoDestinations = errors.New("no export destinations configured (set a bucket or BACKOFFICE_EXPORT_GIT_REPO)")
