package media

import (
	"context"
	"os/exec"
	"time"

	"github.com/maauso/img2video-api/internal/metrics"
	"github.com/maauso/img2video-api/internal/procgroup"
)

// Runner executes a Command under the given limits.
type Runner interface {
	Run(ctx context.Context, cmd Command, limits Limits) Outcome
}

// Compile-time check that ProcessRunner implements Runner.
var _ Runner = (*ProcessRunner)(nil)

// ProcessRunner runs commands as real child processes. Each run gets its own
// process group so timeout, cancellation and output overflow terminate every
// descendant, not just the direct child.
type ProcessRunner struct{}

// NewProcessRunner creates a new ProcessRunner.
func NewProcessRunner() *ProcessRunner {
	return &ProcessRunner{}
}

// Run starts c and blocks until it exits or is terminated.
// Termination happens when the timeout elapses, ctx is done, or captured
// output passes limits.MaxOutputBytes.
func (r *ProcessRunner) Run(ctx context.Context, c Command, limits Limits) Outcome {
	limits = limits.withDefaults()
	start := time.Now()
	out := Outcome{ExitCode: -1}
	defer func() { metrics.ObserveTranscode(out.Result(), out.Elapsed) }()

	if err := ctx.Err(); err != nil {
		out.Canceled = true
		return out
	}

	runCtx, cancel := context.WithTimeout(ctx, limits.Timeout)
	defer cancel()

	capture := newCappedBuffer(limits.MaxOutputBytes)

	// #nosec G204 - Path and Args come from a Command built by the application
	cmd := exec.Command(c.Path, c.Args...)
	cmd.Stdout = capture
	cmd.Stderr = capture
	// Bounds Wait when an escaped descendant keeps the output pipe open.
	cmd.WaitDelay = limits.KillGrace
	procgroup.Set(cmd)

	if err := cmd.Start(); err != nil {
		out.LaunchErr = &ProcessError{Path: c.Path, Args: c.Args, Err: joinLaunch(err)}
		out.Elapsed = time.Since(start)
		return out
	}
	out.PID = cmd.Process.Pid

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	select {
	case <-waitCh:
		procgroup.Reap(cmd)
	case <-runCtx.Done():
		if ctx.Err() != nil {
			out.Canceled = true
		} else {
			out.KilledByTimeout = true
		}
		_ = procgroup.Terminate(cmd, waitCh, limits.KillGrace)
	case <-capture.Overflow():
		_ = procgroup.Terminate(cmd, waitCh, limits.KillGrace)
	}

	out.Elapsed = time.Since(start)
	out.OutputTruncated = capture.Truncated()
	out.Stderr = capture.String()
	if st := cmd.ProcessState; st != nil {
		out.ExitedCleanly = st.Exited()
		out.ExitCode = st.ExitCode()
	}

	return out
}
