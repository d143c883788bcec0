// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/maauso/img2video-api/internal/job"
	"github.com/maauso/img2video-api/internal/media"
)

// Transcode modes.
const (
	// ModeFFmpeg runs the real encoder.
	ModeFFmpeg = "ffmpeg"
	// ModeSimulate writes placeholder videos without an encoder.
	ModeSimulate = "simulate"
)

// Static errors for configuration validation.
var (
	// ErrInvalidMode is returned when TRANSCODE_MODE is not ffmpeg or simulate.
	ErrInvalidMode = errors.New("config: TRANSCODE_MODE must be ffmpeg or simulate")
	// ErrInvalidLimit is returned when a limit is zero or negative.
	ErrInvalidLimit = errors.New("config: limits must be positive")
	// ErrDefaultAboveMax is returned when DEFAULT_DURATION_SEC exceeds MAX_DURATION_SEC.
	ErrDefaultAboveMax = errors.New("config: DEFAULT_DURATION_SEC must not exceed MAX_DURATION_SEC")
	// ErrS3RegionRequired is returned when S3_BUCKET is set without S3_REGION.
	ErrS3RegionRequired = errors.New("config: S3_REGION is required when S3_BUCKET is set")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port           int    `env:"PORT, default=8080" json:"port"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS, default=*" json:"allowed_origins"`
	PublicBaseURL  string `env:"PUBLIC_BASE_URL" json:"public_base_url,omitempty"`
	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES, default=20971520" json:"max_upload_bytes"`

	// Storage settings
	UploadDir string `env:"UPLOAD_DIR, default=uploads" json:"upload_dir"`
	VideoDir  string `env:"VIDEO_DIR, default=videos" json:"video_dir"`

	// Transcoder settings
	TranscodeMode    string        `env:"TRANSCODE_MODE, default=ffmpeg" json:"transcode_mode"`
	FFmpegPath       string        `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	VideoFPS         int           `env:"VIDEO_FPS, default=25" json:"video_fps"`
	X264Preset       string        `env:"X264_PRESET, default=veryfast" json:"x264_preset"`
	SimulateDelay    time.Duration `env:"SIMULATE_DELAY, default=0s" json:"simulate_delay"`
	TranscodeTimeout time.Duration `env:"TRANSCODE_TIMEOUT, default=120s" json:"transcode_timeout"`
	MaxOutputBytes   int           `env:"MAX_CAPTURED_OUTPUT_BYTES, default=1048576" json:"max_captured_output_bytes"`
	KillGrace        time.Duration `env:"KILL_GRACE, default=2s" json:"kill_grace"`

	// Job settings. QueueTimeout of zero means TranscodeTimeout.
	DefaultDurationSec int           `env:"DEFAULT_DURATION_SEC, default=5" json:"default_duration_sec"`
	MaxDurationSec     int           `env:"MAX_DURATION_SEC, default=600" json:"max_duration_sec"`
	MaxConcurrentJobs  int           `env:"MAX_CONCURRENT_JOBS, default=4" json:"max_concurrent_jobs"`
	QueueTimeout       time.Duration `env:"QUEUE_TIMEOUT" json:"queue_timeout"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 publishing is configured.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != ""
}

// Simulated returns true if no real encoder should be run.
func (c *Config) Simulated() bool {
	return strings.EqualFold(c.TranscodeMode, ModeSimulate)
}

// Load reads configuration from environment variables using go-envconfig
// and validates it.
func Load() (*Config, error) {
	return LoadFrom(context.Background(), nil)
}

// LoadFrom reads configuration from lookuper, or from the process
// environment when lookuper is nil.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}

	if lookuper == nil {
		lookuper = envconfig.OsLookuper()
	}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch strings.ToLower(c.TranscodeMode) {
	case ModeFFmpeg, ModeSimulate:
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidMode, c.TranscodeMode)
	}

	limits := map[string]int64{
		"PORT":                      int64(c.Port),
		"MAX_UPLOAD_BYTES":          c.MaxUploadBytes,
		"VIDEO_FPS":                 int64(c.VideoFPS),
		"TRANSCODE_TIMEOUT":         int64(c.TranscodeTimeout),
		"MAX_CAPTURED_OUTPUT_BYTES": int64(c.MaxOutputBytes),
		"KILL_GRACE":                int64(c.KillGrace),
		"DEFAULT_DURATION_SEC":      int64(c.DefaultDurationSec),
		"MAX_DURATION_SEC":          int64(c.MaxDurationSec),
		"MAX_CONCURRENT_JOBS":       int64(c.MaxConcurrentJobs),
	}
	for name, v := range limits {
		if v <= 0 {
			return fmt.Errorf("%w: %s=%d", ErrInvalidLimit, name, v)
		}
	}
	if c.SimulateDelay < 0 {
		return fmt.Errorf("%w: SIMULATE_DELAY=%s", ErrInvalidLimit, c.SimulateDelay)
	}
	if c.QueueTimeout < 0 {
		return fmt.Errorf("%w: QUEUE_TIMEOUT=%s", ErrInvalidLimit, c.QueueTimeout)
	}

	if c.DefaultDurationSec > c.MaxDurationSec {
		return ErrDefaultAboveMax
	}
	if c.S3Bucket != "" && c.S3Region == "" {
		return ErrS3RegionRequired
	}
	return nil
}

// Limits returns the per-run encoder limits.
func (c *Config) Limits() media.Limits {
	return media.Limits{
		Timeout:        c.TranscodeTimeout,
		MaxOutputBytes: c.MaxOutputBytes,
		KillGrace:      c.KillGrace,
	}
}

// WorkerQueueTimeout returns how long a job may wait for a worker slot.
func (c *Config) WorkerQueueTimeout() time.Duration {
	if c.QueueTimeout > 0 {
		return c.QueueTimeout
	}
	return c.TranscodeTimeout
}

// DurationPolicy returns the duration defaulting and clamping rules.
func (c *Config) DurationPolicy() job.DurationPolicy {
	return job.DurationPolicy{
		Default: c.DefaultDurationSec,
		Max:     c.MaxDurationSec,
	}
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	return c.NewLoggerTo(os.Stdout)
}

// NewLoggerTo is NewLogger writing to w.
func (c *Config) NewLoggerTo(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(c.LogLevel)}

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, UploadDir: %s, VideoDir: %s, TranscodeMode: %s, FFmpegPath: %s, TranscodeTimeout: %s, MaxOutputBytes: %d, MaxConcurrentJobs: %d, Duration: %d/%d, S3Bucket: %s, S3Region: %s, S3Credentials: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.UploadDir,
		c.VideoDir,
		c.TranscodeMode,
		c.FFmpegPath,
		c.TranscodeTimeout,
		c.MaxOutputBytes,
		c.MaxConcurrentJobs,
		c.DefaultDurationSec,
		c.MaxDurationSec,
		c.S3Bucket,
		c.S3Region,
		mask(c.AWSAccessKeyID),
		c.LogFormat,
		c.LogLevel,
	)
}

func mask(s string) string {
	if s == "" {
		return "<unset>"
	}
	return "***"
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
