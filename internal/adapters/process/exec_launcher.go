package process

import (
	"os/exec"
	"strings"
	"sync"
	"time"

	"dev.rubentxu.background-orchestrator/internal/core/ports"
	"github.com/pkg/errors"
)

// DefaultWaitDelay bounds how long Wait keeps draining stdout/stderr after the
// child exited, e.g. when a grandchild still holds the pipes open.
const DefaultWaitDelay = 2 * time.Second

// ExecLauncher starts children with os/exec. Each child gets its own process
// group so Terminate and Kill reach everything it spawned.
type ExecLauncher struct {
	logger    ports.Logger
	WaitDelay time.Duration
}

var _ ports.ProcessLauncher = (*ExecLauncher)(nil)

func NewExecLauncher(logger ports.Logger) *ExecLauncher {
	return &ExecLauncher{
		logger:    logger.With("component", "exec_launcher"),
		WaitDelay: DefaultWaitDelay,
	}
}

func (l *ExecLauncher) Launch(spec ports.ProcessSpec) (ports.Process, error) {
	if strings.TrimSpace(spec.Executable) == "" {
		return nil, errors.New("no executable specified")
	}

	cmd := exec.Command(spec.Executable, spec.Args...)
	cmd.Env = spec.Env
	cmd.Dir = spec.Dir
	// nil writers make os/exec connect the stream to the null device
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr
	cmd.WaitDelay = l.WaitDelay
	configureProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "failed to start %s", spec.Executable)
	}
	l.logger.Debug("process started", "job_id", spec.JobID, "pid", cmd.Process.Pid, "executable", spec.Executable)
	return &execProcess{cmd: cmd, jobID: spec.JobID, logger: l.logger}, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	jobID  string
	logger ports.Logger

	mu     sync.Mutex
	exited bool
}

func (p *execProcess) Pid() int {
	return p.cmd.Process.Pid
}

func (p *execProcess) Wait() ports.ProcessExit {
	err := p.cmd.Wait()

	p.mu.Lock()
	p.exited = true
	p.mu.Unlock()

	state := p.cmd.ProcessState
	if err != nil && errors.Is(err, exec.ErrWaitDelay) {
		p.logger.Warn("output pipes still open after exit", "job_id", p.jobID, "pid", p.Pid())
		err = nil
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return ports.ProcessExit{Code: state.ExitCode()}
	case errors.As(err, &exitErr):
		return ports.ProcessExit{
			Code:   exitErr.ExitCode(),
			Signal: exitSignal(exitErr.ProcessState),
			Err:    exitErr,
		}
	default:
		code := -1
		if state != nil {
			code = state.ExitCode()
		}
		return ports.ProcessExit{Code: code, Err: err}
	}
}

func (p *execProcess) Terminate() error {
	if p.hasExited() {
		return errors.New("process already exited")
	}
	return terminateProcessGroup(p.cmd)
}

func (p *execProcess) Kill() error {
	if p.hasExited() {
		return errors.New("process already exited")
	}
	return killProcessGroup(p.cmd)
}

func (p *execProcess) hasExited() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exited
}
