//go:build !unix

package procgroup

import (
	"os/exec"
	"syscall"
)

const (
	termSignal = syscall.SIGTERM
	killSignal = syscall.SIGKILL
)

// Set is a no-op where process groups are not available.
func Set(cmd *exec.Cmd) {}

// Kill falls back to killing the direct child. SIGTERM is not deliverable
// here, so only the kill signal has an effect.
func Kill(cmd *exec.Cmd, sig syscall.Signal) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if sig == killSignal {
		return cmd.Process.Kill()
	}
	return nil
}
