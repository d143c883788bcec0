// Package main provides img2vid, a one-shot command line front end to the
// conversion supervisor.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/maauso/img2video-api/internal/bootstrap"
	"github.com/maauso/img2video-api/internal/config"
	"github.com/maauso/img2video-api/internal/job"
)

// errConversionFailed makes the process exit non-zero after the JSON
// result was printed.
var errConversionFailed = errors.New("conversion failed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errConversionFailed) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "img2vid",
		Short:         "Turn a still image into a fixed-length video",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newConvertCmd())
	return root
}

type convertOptions struct {
	image    string
	duration int
	simulate bool
	timeout  time.Duration
}

func newConvertCmd() *cobra.Command {
	opts := convertOptions{}

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert one image and print the result as JSON",
		Long: "Convert one image into an MP4 using the same supervisor as the HTTP server.\n" +
			"Configuration is read from the environment (TRANSCODE_MODE, FFMPEG_PATH, VIDEO_DIR, ...);\n" +
			"flags override it. The input image is copied, never deleted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConvert(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.image, "image", "i", "", "path to the source image")
	cmd.Flags().IntVarP(&opts.duration, "duration", "d", 0, "video length in seconds (0 uses DEFAULT_DURATION_SEC)")
	cmd.Flags().BoolVar(&opts.simulate, "simulate", false, "write a placeholder instead of running ffmpeg")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "override TRANSCODE_TIMEOUT")
	_ = cmd.MarkFlagRequired("image")

	return cmd
}

func runConvert(cmd *cobra.Command, opts convertOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.simulate {
		cfg.TranscodeMode = config.ModeSimulate
	}
	if opts.timeout > 0 {
		cfg.TranscodeTimeout = opts.timeout
	}
	// One-shot runs publish next to the output dir, never to S3.
	cfg.S3Bucket = ""

	logger := cfg.NewLoggerTo(cmd.ErrOrStderr())

	deps, err := bootstrap.NewDependencies(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}

	in, err := os.Open(opts.image)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer func() { _ = in.Close() }()

	// The supervisor deletes its source, so it works on a scratch copy.
	src, err := deps.Store.SaveInput(cmd.Context(), filepath.Base(opts.image), in)
	if err != nil {
		return fmt.Errorf("copy image: %w", err)
	}

	res := deps.Supervisor.Convert(cmd.Context(), job.Request{
		SourcePath:      src,
		DurationSeconds: opts.duration,
		OriginalName:    filepath.Base(opts.image),
	})

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	if !res.OK() {
		return errConversionFailed
	}
	return nil
}
