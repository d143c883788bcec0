// Package bootstrap provides dependency initialization for the image-to-video service.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/maauso/img2video-api/internal/config"
	"github.com/maauso/img2video-api/internal/job"
	"github.com/maauso/img2video-api/internal/media"
	"github.com/maauso/img2video-api/internal/storage"
)

// Dependencies holds all initialized dependencies for the HTTP server and CLI.
type Dependencies struct {
	Store      storage.Store
	Invoker    media.Invoker
	Supervisor *job.Supervisor
	// VideoDir is served under /videos/, empty when videos go to S3.
	VideoDir string
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	local, err := storage.NewLocalStore(cfg.UploadDir, cfg.VideoDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}

	store, videoDir, err := initStorage(cfg, local, logger)
	if err != nil {
		return nil, err
	}

	invoker := initInvoker(cfg, logger)

	sup := job.NewSupervisor(
		store,
		invoker,
		job.NewMemoryRepository(),
		logger,
		job.WithLimits(cfg.Limits()),
		job.WithDurationPolicy(cfg.DurationPolicy()),
		job.WithMaxConcurrentJobs(cfg.MaxConcurrentJobs),
		job.WithQueueTimeout(cfg.WorkerQueueTimeout()),
	)

	return &Dependencies{
		Store:      store,
		Invoker:    invoker,
		Supervisor: sup,
		VideoDir:   videoDir,
	}, nil
}

// initStorage picks local publishing or S3 publishing on top of local scratch dirs.
func initStorage(cfg *config.Config, local *storage.LocalStore, logger *slog.Logger) (storage.Store, string, error) {
	if cfg.S3Enabled() {
		s3Store, err := storage.NewS3Store(local, storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, "", fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
			slog.String("upload_dir", local.UploadDir()),
		)
		return s3Store, "", nil
	}

	logger.Info("local storage configured",
		slog.String("upload_dir", local.UploadDir()),
		slog.String("video_dir", local.VideoDir()),
	)
	return local, local.VideoDir(), nil
}

func initInvoker(cfg *config.Config, logger *slog.Logger) media.Invoker {
	if cfg.Simulated() {
		logger.Warn("transcoder in simulate mode, videos are placeholders",
			slog.Duration("delay", cfg.SimulateDelay),
		)
		return media.NewSimulatedInvoker(cfg.SimulateDelay)
	}

	logger.Info("ffmpeg transcoder configured",
		slog.String("ffmpeg_path", cfg.FFmpegPath),
		slog.Int("fps", cfg.VideoFPS),
		slog.String("preset", cfg.X264Preset),
	)
	return media.NewFFmpegInvoker(cfg.FFmpegPath,
		media.WithFPS(cfg.VideoFPS),
		media.WithPreset(cfg.X264Preset),
	)
}
