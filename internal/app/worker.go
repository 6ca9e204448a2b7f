package app

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"dev.rubentxu.background-orchestrator/internal/core/ports"
	"dev.rubentxu.background-orchestrator/internal/core/usecase"
	"github.com/pkg/errors"
)

// workerWaitDelay is how long a cancelled command gets after SIGTERM.
const workerWaitDelay = 5 * time.Second

// IsWorkerInvocation reports whether args (os.Args) is the orchestrator
// re-invoking this binary to run one background command.
func IsWorkerInvocation(args []string, marker string) bool {
	return len(args) > 2 && args[1] == marker
}

// WorkerMarker returns the marker the orchestrator exported to this process,
// or the default one when it did not export any.
func WorkerMarker(lookup func(string) (string, bool)) string {
	if v, ok := lookup(usecase.EnvWorkerMarker); ok && v != "" {
		return v
	}
	return usecase.DefaultWorkerMarker
}

// RunWorker runs the command named in args (os.Args of a worker invocation)
// from PATH with inherited stdio and returns the exit code to use. Cancelling
// ctx forwards SIGTERM to the command.
func RunWorker(ctx context.Context, args []string, log ports.Logger) int {
	command, rest := args[2], args[3:]
	log = log.With("job_id", os.Getenv(usecase.EnvJobID), "command", command)

	path, err := exec.LookPath(command)
	if err != nil {
		log.Error("command not found", "error", err)
		return 127
	}

	cmd := exec.CommandContext(ctx, path, rest...)
	cmd.Stdin = nil
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = workerWaitDelay

	log.Info("worker running command", "path", path, "args", strings.Join(rest, " "))
	err = cmd.Run()
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		return exitErr.ExitCode()
	}
	log.Error("worker command failed", "error", err)
	return 1
}
