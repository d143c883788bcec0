//go:build unix

package procgroup

import (
	"errors"
	"os/exec"
	"syscall"
)

const (
	termSignal = syscall.SIGTERM
	killSignal = syscall.SIGKILL
)

// Set makes cmd the leader of a new process group whose id equals its pid.
// It must be called before cmd.Start.
func Set(cmd *exec.Cmd) {
	attr := cmd.SysProcAttr
	if attr == nil {
		attr = &syscall.SysProcAttr{}
		cmd.SysProcAttr = attr
	}
	attr.Setpgid = true
	attr.Pgid = 0
}

// Kill signals every process in the group led by cmd. The group is
// addressed by the leader's pid rather than looked up, so descendants are
// still reached after the leader has been reaped. A group that no longer
// exists is not an error.
func Kill(cmd *exec.Cmd, sig syscall.Signal) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	err := syscall.Kill(-cmd.Process.Pid, sig)
	if errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}
