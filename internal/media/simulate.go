package media

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
)

// Compile-time check that SimulatedInvoker implements Invoker.
var _ Invoker = (*SimulatedInvoker)(nil)

// SimulatedInvoker satisfies the Invoker contract without running an encoder.
// It writes a small placeholder file to the output path after an optional
// delay, which lets the service run where ffmpeg is not installed.
type SimulatedInvoker struct {
	delay time.Duration
}

// NewSimulatedInvoker creates a SimulatedInvoker that takes delay per job.
func NewSimulatedInvoker(delay time.Duration) *SimulatedInvoker {
	return &SimulatedInvoker{delay: delay}
}

// Run honours the timeout and cancellation the same way a real process would.
func (s *SimulatedInvoker) Run(ctx context.Context, req Request, limits Limits) Outcome {
	limits = limits.withDefaults()
	start := time.Now()
	out := Outcome{ExitCode: -1}

	if req.SourcePath == "" || req.OutputPath == "" {
		out.LaunchErr = &ProcessError{Path: "simulate", Err: joinLaunch(ErrMissingPath)}
		return out
	}
	if req.DurationSeconds <= 0 {
		out.LaunchErr = &ProcessError{
			Path: "simulate",
			Err:  joinLaunch(fmt.Errorf("%w: got %d", ErrInvalidDuration, req.DurationSeconds)),
		}
		return out
	}

	if s.delay > 0 {
		timeout := time.NewTimer(limits.Timeout)
		defer timeout.Stop()
		done := time.NewTimer(s.delay)
		defer done.Stop()

		select {
		case <-ctx.Done():
			out.Canceled = true
			out.Elapsed = time.Since(start)
			return out
		case <-timeout.C:
			out.KilledByTimeout = true
			out.Elapsed = time.Since(start)
			return out
		case <-done.C:
		}
	}

	placeholder := fmt.Sprintf("simulated video: source=%s duration=%ds\n",
		filepath.Base(req.SourcePath), req.DurationSeconds)
	out.ExitedCleanly = true
	if err := renameio.WriteFile(req.OutputPath, []byte(placeholder), 0o644); err != nil {
		out.ExitCode = 1
		out.Stderr = truncate(err.Error(), limits.MaxOutputBytes)
	} else {
		out.ExitCode = 0
	}
	out.Elapsed = time.Since(start)
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
