// Package main provides the entry point for the image-to-video API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maauso/img2video-api/internal/bootstrap"
	"github.com/maauso/img2video-api/internal/config"
	"github.com/maauso/img2video-api/internal/server"
)

// writeSlack is added on top of the transcode budget so a timed-out job can
// still deliver its error response.
const writeSlack = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Create structured logger
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting img2video API",
		slog.Int("port", cfg.Port),
		slog.String("log_format", cfg.LogFormat),
		slog.String("log_level", cfg.LogLevel),
		slog.String("transcode_mode", cfg.TranscodeMode),
		slog.Duration("transcode_timeout", cfg.TranscodeTimeout),
		slog.Int("max_concurrent_jobs", cfg.MaxConcurrentJobs),
		slog.Duration("queue_timeout", cfg.WorkerQueueTimeout()),
		slog.Bool("s3_enabled", cfg.S3Enabled()),
	)
	logger.Debug("configuration", slog.String("config", cfg.String()))

	// Initialize dependencies using bootstrap
	deps, err := bootstrap.NewDependencies(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}

	// Initialize HTTP handlers and router
	handlers := server.NewHandlers(deps.Supervisor, deps.Store, logger,
		server.WithMaxUploadBytes(cfg.MaxUploadBytes),
		server.WithPublicBaseURL(cfg.PublicBaseURL),
	)
	router := server.NewRouter(handlers, logger, server.Config{
		AllowedOrigins: server.ParseOrigins(cfg.AllowedOrigins),
		VideoDir:       deps.VideoDir,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, newHTTPServer(cfg, router), logger)
}

// newHTTPServer sizes the write timeout to the worst case of one job: the
// wait for a worker slot plus the transcode budget. Responses are written
// only after the encoder finished or was killed.
func newHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      cfg.WorkerQueueTimeout() + cfg.TranscodeTimeout + cfg.KillGrace + writeSlack,
		IdleTimeout:       60 * time.Second,
	}
}

// serve runs srv until ctx is done, then drains in-flight conversions for
// up to one write timeout.
func serve(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), srv.WriteTimeout)
	defer cancel()

	logger.Info("shutting down server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
