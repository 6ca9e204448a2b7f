package usecase

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"dev.rubentxu.background-orchestrator/internal/core/domain/job"
	"dev.rubentxu.background-orchestrator/internal/core/ports"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

const missingExecutable = "/nonexistent/worker"

// fakeProcess is a simulated child: it exits when the test says so, or when
// signalled unless it ignores SIGTERM.
type fakeProcess struct {
	pid        int
	spec       ports.ProcessSpec
	ignoreTerm bool

	exitCh     chan ports.ProcessExit
	once       sync.Once
	finished   atomic.Bool
	terminated atomic.Int32
	killed     atomic.Int32
}

func (p *fakeProcess) Pid() int { return p.pid }

func (p *fakeProcess) Wait() ports.ProcessExit {
	return <-p.exitCh
}

func (p *fakeProcess) Terminate() error {
	if p.finished.Load() {
		return errors.New("process already exited")
	}
	p.terminated.Add(1)
	if !p.ignoreTerm {
		p.exit(ports.ProcessExit{Code: -1, Signal: "terminated", Err: errors.New("signal: terminated")})
	}
	return nil
}

func (p *fakeProcess) Kill() error {
	if p.finished.Load() {
		return errors.New("process already exited")
	}
	p.killed.Add(1)
	p.exit(ports.ProcessExit{Code: -1, Signal: "killed", Err: errors.New("signal: killed")})
	return nil
}

func (p *fakeProcess) write(stream io.Writer, s string) {
	_, _ = stream.Write([]byte(s))
}

// Exit simulates the child exiting with code.
func (p *fakeProcess) Exit(code int) {
	e := ports.ProcessExit{Code: code}
	if code != 0 {
		e.Err = fmt.Errorf("exit status %d", code)
	}
	p.exit(e)
}

func (p *fakeProcess) exit(e ports.ProcessExit) {
	p.once.Do(func() {
		p.finished.Store(true)
		p.exitCh <- e
	})
}

type fakeLauncher struct {
	mu         sync.Mutex
	nextPid    int
	procs      map[string]*fakeProcess
	ignoreTerm bool
}

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{nextPid: 4000, procs: make(map[string]*fakeProcess)}
}

func (l *fakeLauncher) Launch(spec ports.ProcessSpec) (ports.Process, error) {
	if spec.Executable == missingExecutable {
		return nil, errors.Errorf("fork/exec %s: no such file or directory", spec.Executable)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextPid++
	p := &fakeProcess{
		pid:        l.nextPid,
		spec:       spec,
		ignoreTerm: l.ignoreTerm,
		exitCh:     make(chan ports.ProcessExit, 1),
	}
	l.procs[spec.JobID] = p
	return p, nil
}

func (l *fakeLauncher) process(t *testing.T, jobID string) *fakeProcess {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.procs[jobID]
	require.True(t, ok, "no process launched for %s", jobID)
	return p
}

func (l *fakeLauncher) launched() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.procs)
}

// cancellingRegistry calls onRunning right after a job becomes running, the
// way a concurrent client would.
type cancellingRegistry struct {
	ports.JobRegistry
	onRunning func(id string) bool
	cancelled atomic.Bool
}

func (r *cancellingRegistry) Transition(jobID string, to job.Status, u job.Update) (job.Job, error) {
	j, err := r.JobRegistry.Transition(jobID, to, u)
	if err == nil && to == job.Running && r.onRunning != nil {
		r.cancelled.Store(r.onRunning(jobID))
	}
	return j, err
}

// eventRecorder collects every event it is notified of.
type eventRecorder struct {
	mu     sync.Mutex
	events []job.Event
}

func (r *eventRecorder) Notify(ev job.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) kinds(jobID string) []job.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []job.EventKind
	for _, ev := range r.events {
		if ev.JobID == jobID {
			out = append(out, ev.Kind)
		}
	}
	return out
}

func (r *eventRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *eventRecorder) last(jobID string) job.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].JobID == jobID {
			return r.events[i]
		}
	}
	return job.Event{}
}
