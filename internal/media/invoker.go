// Package media turns a still image into a fixed-length video by driving an
// external encoder. The encoder is described as a structured Command and
// executed under a wall-clock timeout with bounded output capture.
package media

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Default limits applied when a Limits field is left at zero.
const (
	DefaultTimeout        = 120 * time.Second
	DefaultMaxOutputBytes = 1 << 20
	DefaultKillGrace      = 2 * time.Second
)

// Invoker renders one video from one image.
// Implementations must return within limits.Timeout (plus kill grace) and must
// report the outcome instead of returning an error.
type Invoker interface {
	Run(ctx context.Context, req Request, limits Limits) Outcome
}

// Request describes a single transcode.
type Request struct {
	// SourcePath is the still image, used as a looped single-frame input.
	SourcePath string
	// OutputPath is where the encoder writes the video.
	OutputPath string
	// DurationSeconds is the exact length of the produced video.
	DurationSeconds int
}

// Limits bounds a single encoder run.
type Limits struct {
	// Timeout is the wall-clock budget for the process.
	Timeout time.Duration
	// MaxOutputBytes caps captured stdout+stderr.
	MaxOutputBytes int
	// KillGrace is the wait between SIGTERM and SIGKILL of the process group.
	KillGrace time.Duration
}

// DefaultLimits returns the recommended limits.
func DefaultLimits() Limits {
	return Limits{
		Timeout:        DefaultTimeout,
		MaxOutputBytes: DefaultMaxOutputBytes,
		KillGrace:      DefaultKillGrace,
	}
}

func (l Limits) withDefaults() Limits {
	if l.Timeout <= 0 {
		l.Timeout = DefaultTimeout
	}
	if l.MaxOutputBytes <= 0 {
		l.MaxOutputBytes = DefaultMaxOutputBytes
	}
	if l.KillGrace <= 0 {
		l.KillGrace = DefaultKillGrace
	}
	return l
}

// Outcome is the raw result of one encoder run. It is produced exactly once
// per run and never modified afterwards.
type Outcome struct {
	// ExitedCleanly is true when the process terminated through exit rather
	// than a signal.
	ExitedCleanly bool
	// ExitCode is the process exit code, or -1 when the process never
	// started or was terminated by a signal.
	ExitCode int
	// KilledByTimeout is true when the process group was terminated because
	// the wall-clock timeout elapsed.
	KilledByTimeout bool
	// Canceled is true when the caller's context ended the run.
	Canceled bool
	// OutputTruncated is true when captured output exceeded the cap.
	OutputTruncated bool
	// Stderr holds captured stdout and stderr, at most MaxOutputBytes.
	Stderr string
	// LaunchErr is set when the process could not be started at all.
	LaunchErr error
	// PID of the process group leader, 0 if never started.
	PID int
	// Elapsed is the wall-clock time of the run.
	Elapsed time.Duration
}

// Launched reports whether the encoder process was started.
func (o Outcome) Launched() bool {
	return o.LaunchErr == nil
}

// Result returns a short label for metrics and logs.
func (o Outcome) Result() string {
	switch {
	case o.KilledByTimeout:
		return "timeout"
	case o.OutputTruncated:
		return "overflow"
	case o.Canceled:
		return "canceled"
	case !o.Launched():
		return "launch_failed"
	case !o.ExitedCleanly || o.ExitCode != 0:
		return "exit_nonzero"
	default:
		return "ok"
	}
}

// Command is a structured external invocation. Arguments are passed to the
// process as-is, never through a shell.
type Command struct {
	Path string
	Args []string
}

// String renders the command for logs.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Path)
	for _, a := range c.Args {
		if strings.ContainsAny(a, " \t'\"") {
			a = fmt.Sprintf("%q", a)
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}
