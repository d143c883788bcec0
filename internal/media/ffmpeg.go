package media

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// Static errors for media operations.
var (
	// ErrInvalidDuration is returned when duration is not positive.
	ErrInvalidDuration = errors.New("invalid duration: must be positive")
	// ErrMissingPath is returned when the source or output path is empty.
	ErrMissingPath = errors.New("source and output paths are required")
	// ErrLaunch marks failures to start the encoder process at all.
	ErrLaunch = errors.New("encoder launch failed")
)

// evenPadFilter pads odd widths/heights by one pixel so libx264 accepts any
// source resolution, then converts to a broadly playable pixel format.
const evenPadFilter = "pad=ceil(iw/2)*2:ceil(ih/2)*2,format=yuv420p"

// Compile-time check that FFmpegInvoker implements Invoker.
var _ Invoker = (*FFmpegInvoker)(nil)

// FFmpegInvoker implements Invoker using the ffmpeg CLI.
type FFmpegInvoker struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
	fps        int
	preset     string
	runner     Runner
}

// FFmpegOption configures an FFmpegInvoker.
type FFmpegOption func(*FFmpegInvoker)

// WithFPS sets the output frame rate.
func WithFPS(fps int) FFmpegOption {
	return func(p *FFmpegInvoker) {
		if fps > 0 {
			p.fps = fps
		}
	}
}

// WithPreset sets the libx264 speed preset.
func WithPreset(preset string) FFmpegOption {
	return func(p *FFmpegInvoker) {
		if preset != "" {
			p.preset = preset
		}
	}
}

// WithRunner replaces the process runner, mainly for tests.
func WithRunner(r Runner) FFmpegOption {
	return func(p *FFmpegInvoker) {
		if r != nil {
			p.runner = r
		}
	}
}

// NewFFmpegInvoker creates a new FFmpegInvoker.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found via PATH).
func NewFFmpegInvoker(ffmpegPath string, opts ...FFmpegOption) *FFmpegInvoker {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	p := &FFmpegInvoker{
		ffmpegPath: ffmpegPath,
		fps:        25,
		preset:     "veryfast",
		runner:     NewProcessRunner(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Command builds the ffmpeg invocation for req.
func (p *FFmpegInvoker) Command(req Request) (Command, error) {
	if req.SourcePath == "" || req.OutputPath == "" {
		return Command{}, ErrMissingPath
	}
	if req.DurationSeconds <= 0 {
		return Command{}, fmt.Errorf("%w: got %d", ErrInvalidDuration, req.DurationSeconds)
	}

	fps := strconv.Itoa(p.fps)
	args := []string{
		"-hide_banner",
		"-nostats",
		"-loglevel", "error", // Keep captured output small
		"-y",         // Overwrite output file without asking
		"-loop", "1", // Loop the single input frame
		"-framerate", fps,
		"-i", req.SourcePath,
		"-t", strconv.Itoa(req.DurationSeconds), // Exact output length
		"-vf", evenPadFilter,
		"-c:v", "libx264",
		"-preset", p.preset,
		"-tune", "stillimage",
		"-pix_fmt", "yuv420p",
		"-r", fps,
		"-an",
		"-movflags", "+faststart",
		req.OutputPath,
	}

	return Command{Path: p.ffmpegPath, Args: args}, nil
}

// Run renders req with ffmpeg. Invalid requests come back as a launch failure.
func (p *FFmpegInvoker) Run(ctx context.Context, req Request, limits Limits) Outcome {
	cmd, err := p.Command(req)
	if err != nil {
		return Outcome{ExitCode: -1, LaunchErr: &ProcessError{Path: p.ffmpegPath, Err: joinLaunch(err)}}
	}
	return p.runner.Run(ctx, cmd, limits)
}

// ProcessError describes an encoder process that could not be run.
type ProcessError struct {
	Path string
	Args []string
	Err  error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

func joinLaunch(err error) error {
	return fmt.Errorf("%w: %w", ErrLaunch, err)
}
