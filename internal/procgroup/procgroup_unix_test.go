//go:build unix

package procgroup

import (
	"errors"
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startGroup(t *testing.T, script string) (*exec.Cmd, <-chan error) {
	t.Helper()
	cmd := exec.Command("sh", "-c", script)
	Set(cmd)
	require.NoError(t, cmd.Start())

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	t.Cleanup(func() { _ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL) })
	return cmd, waitCh
}

func requireGroupGone(t *testing.T, pgid int) {
	t.Helper()
	// The kernel may need a moment to reap the orphaned descendants.
	deadline := time.Now().Add(2 * time.Second)
	for {
		err := syscall.Kill(-pgid, syscall.Signal(0))
		if errors.Is(err, syscall.ESRCH) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("process group %d still exists after terminate (err=%v)", pgid, err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestSet_MakesGroupLeader(t *testing.T) {
	cmd, waitCh := startGroup(t, "sleep 10")

	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	require.NoError(t, err)
	assert.Equal(t, cmd.Process.Pid, pgid, "process should be group leader")

	require.NoError(t, Kill(cmd, syscall.SIGKILL))
	<-waitCh
}

func TestTerminate_KillsDescendants(t *testing.T) {
	cmd, waitCh := startGroup(t, "sleep 30 & sleep 30")
	pgid := cmd.Process.Pid

	// Give the shell time to fork the background child.
	time.Sleep(100 * time.Millisecond)

	err := Terminate(cmd, waitCh, 200*time.Millisecond)
	require.Error(t, err, "terminated process should not exit cleanly")

	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	if ok {
		assert.True(t, status.Signaled(), "process should be signaled")
	}

	requireGroupGone(t, pgid)
}

func TestTerminate_EscalatesToSIGKILL(t *testing.T) {
	// The shell ignores SIGTERM, so only SIGKILL can stop it.
	cmd, waitCh := startGroup(t, "trap '' TERM; while :; do sleep 0.05; done")
	pgid := cmd.Process.Pid
	time.Sleep(100 * time.Millisecond)

	start := time.Now()
	err := Terminate(cmd, waitCh, 150*time.Millisecond)
	require.Error(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond, "should wait the grace period before SIGKILL")

	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
		assert.Equal(t, syscall.SIGKILL, status.Signal())
	}

	requireGroupGone(t, pgid)
}

func TestTerminate_AlreadyExited(t *testing.T) {
	cmd, waitCh := startGroup(t, "exit 0")

	// Let the process finish on its own; Terminate must return its result.
	time.Sleep(100 * time.Millisecond)
	err := Terminate(cmd, waitCh, 50*time.Millisecond)
	assert.NoError(t, err)
}

func TestReap_KillsOrphanedDescendants(t *testing.T) {
	cmd, waitCh := startGroup(t, "sleep 30 >/dev/null 2>&1 & exit 0")
	pgid := cmd.Process.Pid

	// The leader is reaped here; the sleep is still in its group.
	require.NoError(t, <-waitCh)

	Reap(cmd)
	requireGroupGone(t, pgid)
}

func TestKill_AfterLeaderReaped(t *testing.T) {
	cmd, waitCh := startGroup(t, "exit 0")
	require.NoError(t, <-waitCh)

	assert.NoError(t, Kill(cmd, syscall.SIGKILL), "a vanished group is not an error")
}

func TestTerminate_NilCommand(t *testing.T) {
	assert.NoError(t, Terminate(nil, nil, time.Millisecond))
	assert.NoError(t, Kill(nil, syscall.SIGKILL))
	assert.NoError(t, Kill(&exec.Cmd{}, syscall.SIGKILL))
	Reap(nil)
}
