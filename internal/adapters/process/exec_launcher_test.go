//go:build !windows

package process

import (
	"bytes"
	"testing"
	"time"

	"dev.rubentxu.background-orchestrator/internal/adapters/logger"
	"dev.rubentxu.background-orchestrator/internal/core/ports"
	"github.com/stretchr/testify/require"
)

func newTestLauncher() *ExecLauncher {
	return NewExecLauncher(logger.NewNopLogger())
}

func TestLaunchCapturesOutputAndExitCode(t *testing.T) {
	var stdout, stderr bytes.Buffer
	proc, err := newTestLauncher().Launch(ports.ProcessSpec{
		JobID:      "job_1",
		Executable: "/bin/sh",
		Args:       []string{"-c", "echo out; echo err 1>&2; exit 3"},
		Stdout:     &stdout,
		Stderr:     &stderr,
	})
	require.NoError(t, err)
	require.Greater(t, proc.Pid(), 0)

	exit := proc.Wait()
	require.Equal(t, 3, exit.Code)
	require.Error(t, exit.Err)
	require.Empty(t, exit.Signal)
	require.False(t, exit.Success())
	require.Equal(t, "out\n", stdout.String())
	require.Equal(t, "err\n", stderr.String())
}

func TestLaunchSuccess(t *testing.T) {
	proc, err := newTestLauncher().Launch(ports.ProcessSpec{
		Executable: "/bin/sh",
		Args:       []string{"-c", "exit 0"},
	})
	require.NoError(t, err)
	exit := proc.Wait()
	require.True(t, exit.Success())
	require.Error(t, proc.Terminate())
}

func TestLaunchMissingExecutable(t *testing.T) {
	_, err := newTestLauncher().Launch(ports.ProcessSpec{Executable: "/nonexistent/waltodo-worker"})
	require.Error(t, err)

	_, err = newTestLauncher().Launch(ports.ProcessSpec{Executable: "  "})
	require.Error(t, err)
}

func TestTerminateReachesProcessGroup(t *testing.T) {
	proc, err := newTestLauncher().Launch(ports.ProcessSpec{
		Executable: "/bin/sh",
		Args:       []string{"-c", "sleep 30 & wait"},
	})
	require.NoError(t, err)

	done := make(chan ports.ProcessExit, 1)
	go func() { done <- proc.Wait() }()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, proc.Terminate())

	select {
	case exit := <-done:
		require.Equal(t, "terminated", exit.Signal)
		require.Equal(t, -1, exit.Code)
	case <-time.After(5 * time.Second):
		_ = proc.Kill()
		t.Fatal("process group did not exit after SIGTERM")
	}
}

func TestKillIgnoringChild(t *testing.T) {
	proc, err := newTestLauncher().Launch(ports.ProcessSpec{
		Executable: "/bin/sh",
		Args:       []string{"-c", "trap '' TERM; while true; do sleep 0.1; done"},
	})
	require.NoError(t, err)

	done := make(chan ports.ProcessExit, 1)
	go func() { done <- proc.Wait() }()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, proc.Terminate())
	select {
	case <-done:
		t.Fatal("child exited despite ignoring SIGTERM")
	case <-time.After(300 * time.Millisecond):
	}

	require.NoError(t, proc.Kill())
	select {
	case exit := <-done:
		require.Equal(t, "killed", exit.Signal)
	case <-time.After(5 * time.Second):
		t.Fatal("child survived SIGKILL")
	}
}
