package usecase

import (
	"fmt"
	"os"
	"sync"
	"time"

	"dev.rubentxu.background-orchestrator/internal/core/domain/job"
	"dev.rubentxu.background-orchestrator/internal/core/ports"
	"github.com/pkg/errors"
)

// Environment variables every child receives.
const (
	EnvJobID        = "BG_JOB_ID"
	EnvWorker       = "BG_WORKER"
	EnvWorkerMarker = "BG_WORKER_MARKER"
)

// DefaultGracePeriod is the wait between SIGTERM and SIGKILL after a cancel.
const DefaultGracePeriod = 5 * time.Second

type SupervisorConfig struct {
	// GracePeriod <= 0 disables escalation to a forced kill.
	GracePeriod time.Duration
	Env         []string
	Dir         string
	// Marker is exported to children so a re-invoked worker recognises it.
	Marker string
}

// Supervisor spawns one child per job and turns its exit into the job's
// terminal state. Each live child is owned by a Handle and one watcher
// goroutine.
type Supervisor struct {
	registry ports.JobRegistry
	launcher ports.ProcessLauncher
	bus      *EventBus
	logger   ports.Logger
	cfg      SupervisorConfig

	mu       sync.Mutex
	handles  map[string]*Handle
	watchers sync.WaitGroup
}

// Handle is the live side of a spawned job.
type Handle struct {
	jobID string
	proc  ports.Process

	mu              sync.Mutex
	exited          bool
	cancelRequested bool
	killTimer       *time.Timer
}

func NewSupervisor(registry ports.JobRegistry, launcher ports.ProcessLauncher, bus *EventBus, logger ports.Logger, cfg SupervisorConfig) *Supervisor {
	return &Supervisor{
		registry: registry,
		launcher: launcher,
		bus:      bus,
		logger:   logger.With("component", "supervisor"),
		cfg:      cfg,
		handles:  make(map[string]*Handle),
	}
}

// Spawn launches the child for a pending job and returns without waiting for
// it. A launch failure moves the job straight to failed and returns nil.
func (s *Supervisor) Spawn(j job.Job, executable string, argv []string) *Handle {
	proc, err := s.launcher.Launch(ports.ProcessSpec{
		JobID:      j.ID,
		Executable: executable,
		Args:       argv,
		Env:        s.environment(j.ID),
		Dir:        s.cfg.Dir,
		Stdout:     &streamWriter{registry: s.registry, jobID: j.ID, stream: job.Stdout},
		Stderr:     &streamWriter{registry: s.registry, jobID: j.ID, stream: job.Stderr},
	})
	if err != nil {
		s.logger.Warn("failed to spawn job", "job_id", j.ID, "command", j.Command, "executable", executable, "error", err)
		s.bus.Publish(job.NewEvent(job.EventStarted, j))
		if failed, ok := s.transition(j.ID, job.Failed, job.Update{Error: err.Error()}); ok {
			s.bus.Publish(job.NewEvent(job.EventFailed, failed))
		}
		return nil
	}

	// registered before the job is visible as running so a cancel racing the
	// transition always finds the handle
	h := &Handle{jobID: j.ID, proc: proc}
	s.mu.Lock()
	s.handles[j.ID] = h
	s.mu.Unlock()

	running, ok := s.transition(j.ID, job.Running, job.Update{PID: proc.Pid()})
	if !ok {
		s.mu.Lock()
		delete(s.handles, j.ID)
		s.mu.Unlock()

		h.mu.Lock()
		h.exited = true
		if h.killTimer != nil {
			h.killTimer.Stop()
		}
		h.mu.Unlock()

		_ = proc.Kill()
		go proc.Wait()
		return nil
	}

	s.logger.Info("job started", "job_id", j.ID, "command", j.Command, "pid", running.PID)
	// published before the watcher exists so no terminal event can overtake it
	s.bus.Publish(job.NewEvent(job.EventStarted, running))

	s.watchers.Add(1)
	go s.watch(h)
	return h
}

// Cancel sends SIGTERM to a live job. It returns false when the job has no
// live child, already exited, or a cancel is already in flight.
func (s *Supervisor) Cancel(jobID string) bool {
	h, ok := s.handle(jobID)
	if !ok {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.exited || h.cancelRequested {
		return false
	}

	// the flag must be visible to the exit path before the signal lands
	h.cancelRequested = true
	if err := h.proc.Terminate(); err != nil {
		h.cancelRequested = false
		s.logger.Warn("failed to signal job", "job_id", jobID, "error", err)
		return false
	}
	s.logger.Info("cancel requested", "job_id", jobID, "pid", h.proc.Pid(), "grace_period", s.cfg.GracePeriod)

	if s.cfg.GracePeriod > 0 {
		h.killTimer = time.AfterFunc(s.cfg.GracePeriod, func() { s.escalate(h) })
	}
	return true
}

// Kill forces a live job down immediately.
func (s *Supervisor) Kill(jobID string) bool {
	h, ok := s.handle(jobID)
	if !ok {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.exited {
		return false
	}
	h.cancelRequested = true
	if err := h.proc.Kill(); err != nil {
		s.logger.Warn("failed to kill job", "job_id", jobID, "error", err)
		return false
	}
	return true
}

// Wait blocks until every watcher goroutine has published its terminal event,
// or timeout elapses. It reports whether all watchers returned.
func (s *Supervisor) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		s.watchers.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

func (s *Supervisor) watch(h *Handle) {
	defer s.watchers.Done()

	exit := h.proc.Wait()

	h.mu.Lock()
	h.exited = true
	cancelled := h.cancelRequested
	if h.killTimer != nil {
		h.killTimer.Stop()
	}
	h.mu.Unlock()

	s.mu.Lock()
	delete(s.handles, h.jobID)
	s.mu.Unlock()

	to, update := classifyExit(exit, cancelled)
	final, ok := s.transition(h.jobID, to, update)
	if !ok {
		return
	}

	s.logger.Info("job finished", "job_id", h.jobID, "status", final.Status.String(), "exit_code", exit.Code, "signal", exit.Signal)
	kind, _ := job.TerminalEventFor(to)
	s.bus.Publish(job.NewEvent(kind, final))
}

func (s *Supervisor) escalate(h *Handle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.exited {
		return
	}
	s.logger.Warn("grace period elapsed, killing job", "job_id", h.jobID, "pid", h.proc.Pid())
	if err := h.proc.Kill(); err != nil {
		s.logger.Warn("failed to kill job", "job_id", h.jobID, "error", err)
	}
}

// transition applies a supervisor-owned transition. A job removed by shutdown
// or prune is tolerated; an illegal transition is a bug and panics.
func (s *Supervisor) transition(jobID string, to job.Status, u job.Update) (job.Job, bool) {
	j, err := s.registry.Transition(jobID, to, u)
	switch {
	case err == nil:
		return j, true
	case errors.Is(err, job.ErrJobNotFound):
		s.logger.Debug("job removed before transition", "job_id", jobID, "status", to.String())
		return job.Job{}, false
	default:
		panic(fmt.Sprintf("supervisor: %v", err))
	}
}

func (s *Supervisor) handle(jobID string) (*Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.handles[jobID]
	return h, ok
}

func (s *Supervisor) environment(jobID string) []string {
	env := os.Environ()
	env = append(env, s.cfg.Env...)
	env = append(env, EnvJobID+"="+jobID, EnvWorker+"=1")
	if s.cfg.Marker != "" {
		env = append(env, EnvWorkerMarker+"="+s.cfg.Marker)
	}
	return env
}

func classifyExit(exit ports.ProcessExit, cancelled bool) (job.Status, job.Update) {
	switch {
	case cancelled:
		return job.Cancelled, job.Update{Error: "cancelled: " + describeExit(exit)}
	case exit.Success():
		return job.Completed, job.Update{ExitCode: job.IntPtr(0)}
	default:
		return job.Failed, job.Update{ExitCode: job.IntPtr(exit.Code), Error: describeExit(exit)}
	}
}

func describeExit(exit ports.ProcessExit) string {
	switch {
	case exit.Signal != "":
		return "signal: " + exit.Signal
	case exit.Err != nil:
		return exit.Err.Error()
	default:
		return fmt.Sprintf("exit status %d", exit.Code)
	}
}

// streamWriter appends child output to the job record. It never reports an
// error, since a short write would make os/exec stop copying.
type streamWriter struct {
	registry ports.JobRegistry
	jobID    string
	stream   job.Stream
}

func (w *streamWriter) Write(p []byte) (int, error) {
	_ = w.registry.AppendOutput(w.jobID, w.stream, p)
	return len(p), nil
}
