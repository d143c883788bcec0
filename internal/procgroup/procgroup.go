// Package procgroup starts transcoder processes in their own process group
// and tears the whole group down, so encoder descendants never outlive a job.
package procgroup

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/maauso/img2video-api/internal/metrics"
)

// Terminate stops the process group of cmd.
// It sends the terminate signal, waits up to grace for waitCh to deliver the
// result of cmd.Wait, then sends the kill signal and drains waitCh.
// It returns the error received from waitCh. Safe to call on nil commands.
func Terminate(cmd *exec.Cmd, waitCh <-chan error, grace time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	signalGroup(cmd, termSignal, "SIGTERM")

	select {
	case err := <-waitCh:
		return err
	case <-time.After(grace):
	}

	signalGroup(cmd, killSignal, "SIGKILL")

	// SIGKILL cannot be ignored; Wait returns once the leader is reaped and
	// the output pipes are closed (or cmd.WaitDelay expires).
	return <-waitCh
}

// Reap kills whatever is left of the group after its leader exited on its
// own, e.g. a descendant that detached from the output pipes.
func Reap(cmd *exec.Cmd) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	signalGroup(cmd, killSignal, "SIGKILL")
}

func signalGroup(cmd *exec.Cmd, sig syscall.Signal, name string) {
	err := Kill(cmd, sig)
	switch {
	case err == nil:
		metrics.IncProcSignal(name, "sent")
	case isGone(err):
		metrics.IncProcSignal(name, "esrch")
	default:
		metrics.IncProcSignal(name, "error")
	}
}

func isGone(err error) bool {
	return errors.Is(err, os.ErrProcessDone) || errors.Is(err, syscall.ESRCH)
}
