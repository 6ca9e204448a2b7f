//go:build windows

package process

import (
	"os"
	"os/exec"
)

func configureProcessGroup(cmd *exec.Cmd) {}

// Windows has no SIGTERM; both requests end in TerminateProcess.
func terminateProcessGroup(cmd *exec.Cmd) error {
	return killProcessGroup(cmd)
}

func killProcessGroup(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return os.ErrProcessDone
	}
	return cmd.Process.Kill()
}

func exitSignal(*os.ProcessState) string {
	return ""
}
