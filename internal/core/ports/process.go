package ports

import (
	"io"
)

// ProcessSpec describes one child process to launch.
type ProcessSpec struct {
	JobID      string
	Executable string
	Args       []string
	Env        []string
	Dir        string
	Stdout     io.Writer
	Stderr     io.Writer
}

// ProcessExit is what a child reported when it went away.
type ProcessExit struct {
	Code   int
	Signal string
	Err    error
}

// Success reports a clean zero exit.
func (e ProcessExit) Success() bool {
	return e.Err == nil && e.Code == 0 && e.Signal == ""
}

// Process is a started child. Wait may be called exactly once.
type Process interface {
	Pid() int
	Wait() ProcessExit
	// Terminate asks the child (and its process group) to exit.
	Terminate() error
	// Kill forces the child (and its process group) to exit.
	Kill() error
}

// ProcessLauncher starts child processes. Launch returns as soon as the OS has
// created the process; it never waits for it.
type ProcessLauncher interface {
	Launch(spec ProcessSpec) (Process, error)
}
