//go:build !windows

package usecase_test

import (
	"context"
	"testing"
	"time"

	"dev.rubentxu.background-orchestrator/internal/adapters/logger"
	"dev.rubentxu.background-orchestrator/internal/adapters/process"
	"dev.rubentxu.background-orchestrator/internal/adapters/store"
	"dev.rubentxu.background-orchestrator/internal/core/domain/job"
	"dev.rubentxu.background-orchestrator/internal/core/usecase"
	"github.com/stretchr/testify/require"
)

func newShellOrchestrator(t *testing.T) *usecase.Orchestrator {
	t.Helper()
	shell := func(script string) usecase.CommandTarget {
		return usecase.CommandTarget{Executable: "/bin/sh", Args: []string{"-c", script, "sh"}}
	}

	cfg := usecase.DefaultConfig()
	cfg.SampleInterval = 0
	cfg.GracePeriod = time.Second
	cfg.ShutdownGrace = time.Second
	cfg.WorkerExecutable = "/nonexistent/waltodo"
	cfg.Commands = map[string]usecase.CommandTarget{
		"greet": shell(`echo "hello $1"; echo warn >&2`),
		"env":   shell(`printf '%s %s' "$BG_JOB_ID" "$BG_WORKER"`),
		"fail":  shell(`exit 3`),
		"sleep": shell(`sleep 30`),
		"stuck": shell(`trap '' TERM; sleep 30 & wait`),
	}

	log := logger.NewNopLogger()
	o := usecase.NewOrchestrator(cfg, store.NewMemoryJobRegistry(0), process.NewExecLauncher(log), nil, log)
	t.Cleanup(func() { _ = o.Shutdown(context.Background()) })
	return o
}

func waitFor(t *testing.T, o *usecase.Orchestrator, id string) job.Job {
	t.Helper()
	j, err := o.WaitForJob(context.Background(), id, 10*time.Second)
	require.NoError(t, err)
	return j
}

func TestRealChildCompletesWithOutput(t *testing.T) {
	o := newShellOrchestrator(t)

	id, err := o.ExecuteInBackground("greet", []string{"world"}, nil)
	require.NoError(t, err)

	j := waitFor(t, o, id)
	require.Equal(t, job.Completed, j.Status)
	require.Equal(t, 0, *j.ExitCode)
	require.Positive(t, j.PID)
	require.Equal(t, "hello world\n", j.Stdout)
	require.Equal(t, "warn\n", j.Stderr)
}

func TestRealChildReceivesJobEnvironment(t *testing.T) {
	o := newShellOrchestrator(t)

	id, err := o.ExecuteInBackground("env", nil, nil)
	require.NoError(t, err)

	j := waitFor(t, o, id)
	require.Equal(t, id+" 1", j.Stdout)
}

func TestRealChildNonZeroExit(t *testing.T) {
	o := newShellOrchestrator(t)

	id, err := o.ExecuteInBackground("fail", nil, nil)
	require.NoError(t, err)

	j := waitFor(t, o, id)
	require.Equal(t, job.Failed, j.Status)
	require.Equal(t, 3, *j.ExitCode)
	require.Equal(t, "exit status 3", j.Error)
}

func TestMissingWorkerFailsWithoutPid(t *testing.T) {
	o := newShellOrchestrator(t)

	id, err := o.ExecuteInBackground("store", nil, nil)
	require.NoError(t, err)

	j, err := o.GetJob(id)
	require.NoError(t, err)
	require.Equal(t, job.Failed, j.Status)
	require.Zero(t, j.PID)
	require.NotEmpty(t, j.Error)
}

func TestCancelRealChild(t *testing.T) {
	o := newShellOrchestrator(t)

	id, err := o.ExecuteInBackground("sleep", nil, nil)
	require.NoError(t, err)
	require.True(t, o.CancelJob(id))

	j := waitFor(t, o, id)
	require.Equal(t, job.Cancelled, j.Status)
	require.Contains(t, j.Error, "terminated")
	require.Nil(t, j.ExitCode)
}

func TestCancelEscalatesOnRealChild(t *testing.T) {
	o := newShellOrchestrator(t)

	id, err := o.ExecuteInBackground("stuck", nil, nil)
	require.NoError(t, err)
	// let the shell install its trap
	time.Sleep(200 * time.Millisecond)
	require.True(t, o.CancelJob(id))

	j := waitFor(t, o, id)
	require.Equal(t, job.Cancelled, j.Status)
	require.Contains(t, j.Error, "killed")
}
