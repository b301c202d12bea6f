package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/backoffice/internal/config"
	"github.com/alfredjeanlab/backoffice/internal/events"
	"github.com/alfredjeanlab/backoffice/internal/presence"
	"github.com/alfredjeanlab/backoffice/internal/server"
	bosync "github.com/alfredjeanlab/backoffice/internal/sync"
)

// sessionPurgeInterval is how often expired sessions are deleted.
const sessionPurgeInterval = 10 * time.Minute

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the backoffice HTTP server",
	GroupID: "system",
	Long: `Start the backoffice HTTP server. Settings come from BACKOFFICE_* environment
variables, read after an optional .env file in the working directory.`,
	Args: cobra.NoArgs,
	// Override PersistentPreRunE so we don't create a client.
	PersistentPreRunE: localCmd,
	RunE: func(cmd *cobra.Command, args []string) error {
		envFiles, _ := cmd.Flags().GetStringSlice("env-file")
		cfg, err := config.Load(envFiles...)
		if err != nil {
			return err
		}
		logger := newLogger(os.Stderr, cfg.LogLevel)
		slog.SetDefault(logger)

		st, err := openStore(cfg, logger)
		if err != nil {
			return err
		}

		var publisher events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.Dial(cfg.NATSURL, "backoffice")
			if err != nil {
				st.Close()
				return err
			}
			publisher = pub
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			publisher = &events.NoopPublisher{}
			logger.Info("events disabled (BACKOFFICE_NATS_URL not set)")
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		blobs, err := openBlobs(ctx, cfg, logger)
		if err != nil {
			publisher.Close()
			st.Close()
			return err
		}

		srv := server.NewBackofficeServer(st, publisher)
		srv.Blobs = blobs
		srv.SessionTTL = cfg.SessionTTL

		presenceDone := make(chan struct{})
		go func() {
			defer close(presenceDone)
			srv.Presence.Watch(ctx, presence.IdlePolicy{
				OnIdle: func(userID string) { logger.Debug("user idle", "user_id", userID) },
			})
		}()

		var scheduler *bosync.Scheduler
		if cfg.ExportInterval > 0 {
			if dests := exportDestinations(cfg, blobs, logger); len(dests) > 0 {
				scheduler = bosync.NewScheduler(st, dests, cfg.ExportInterval, logger)
				srv.OnChange = scheduler.Trigger
				scheduler.Start()
				logger.Info("export scheduler started", "interval", cfg.ExportInterval)
			} else {
				logger.Warn("BACKOFFICE_EXPORT_INTERVAL set but no export destinations configured")
			}
		}

		purgeDone := make(chan struct{})
		go func() {
			defer close(purgeDone)
			purgeSessions(ctx, srv, sessionPurgeInterval)
		}()

		if cfg.AuthToken == "" {
			logger.Warn("BACKOFFICE_AUTH_TOKEN not set; only session tokens are accepted")
		}
		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           srv.NewHTTPHandler(cfg.AuthToken),
			ReadHeaderTimeout: 10 * time.Second,
		}
		serveErr := make(chan error, 1)
		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
		}()

		select {
		case <-ctx.Done():
			logger.Info("received signal, shutting down")
		case err = <-serveErr:
			logger.Error("HTTP server error", "err", err)
			stop()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		<-purgeDone
		<-presenceDone
		if scheduler != nil {
			scheduler.Stop()
			logger.Info("export scheduler stopped")
		}
		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		closeBlobs(blobs)
		if err := st.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}

		logger.Info("shutdown complete")
		return err
	},
}

// purgeSessions deletes expired sessions on every tick until ctx is done.
func purgeSessions(ctx context.Context, srv *server.BackofficeServer, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := srv.PurgeExpiredSessions(ctx)
			if err != nil {
				slog.Warn("purging expired sessions", "err", err)
			} else if n > 0 {
				slog.Info("purged expired sessions", "count", n)
			}
		}
	}
}

func init() {
	serveCmd.Flags().StringSlice("env-file", nil, "env files to load (default .env)")
}
