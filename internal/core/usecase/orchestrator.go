package usecase

import (
	"context"
	"sync"
	"time"

	"dev.rubentxu.background-orchestrator/internal/core/domain/job"
	"dev.rubentxu.background-orchestrator/internal/core/domain/resource"
	"dev.rubentxu.background-orchestrator/internal/core/ports"
	"github.com/pkg/errors"
)

var (
	ErrWaitTimeout        = errors.New("timed out waiting for job")
	ErrOrchestratorClosed = errors.New("orchestrator is shut down")
)

const (
	DefaultShutdownGrace  = 5 * time.Second
	DefaultSampleInterval = 30 * time.Second

	// shutdownKillWait bounds the wait for children after SIGKILL.
	shutdownKillWait = 2 * time.Second
)

// Config holds the orchestrator knobs. Zero durations disable the feature
// they control (escalation, monitor); see DefaultConfig for the defaults.
type Config struct {
	BackgroundCommands []string
	GracePeriod        time.Duration
	ShutdownGrace      time.Duration
	SampleInterval     time.Duration

	WorkerExecutable string
	WorkerMarker     string
	WorkerEnv        []string
	WorkerDir        string
	Commands         map[string]CommandTarget
}

func DefaultConfig() Config {
	return Config{
		BackgroundCommands: DefaultBackgroundCommands(),
		GracePeriod:        DefaultGracePeriod,
		ShutdownGrace:      DefaultShutdownGrace,
		SampleInterval:     DefaultSampleInterval,
		WorkerMarker:       DefaultWorkerMarker,
	}
}

// Orchestrator decides foreground vs background for a command and owns the
// lifecycle of every job it detaches.
type Orchestrator struct {
	cfg        Config
	registry   ports.JobRegistry
	policy     *BackgroundPolicy
	resolver   *CommandResolver
	supervisor *Supervisor
	sampler    *ResourceSampler
	bus        *EventBus
	host       ports.HostStatsReader
	logger     ports.Logger
	now        func() time.Time

	// lifecycle serialises job submission against the start of shutdown
	lifecycle    sync.RWMutex
	closing      chan struct{}
	closed       chan struct{}
	shutdownOnce sync.Once

	monitorStop chan struct{}
	monitorDone chan struct{}
}

var _ ports.JobOrchestrator = (*Orchestrator)(nil)

// NewOrchestrator wires the components together. host may be nil, in which
// case the periodic monitor only logs process usage.
func NewOrchestrator(cfg Config, registry ports.JobRegistry, launcher ports.ProcessLauncher, host ports.HostStatsReader, logger ports.Logger) *Orchestrator {
	bus := NewEventBus(logger)
	resolver := NewCommandResolver(cfg.WorkerExecutable, cfg.WorkerMarker, cfg.Commands)
	o := &Orchestrator{
		cfg:      cfg,
		registry: registry,
		policy:   NewBackgroundPolicy(cfg.BackgroundCommands),
		resolver: resolver,
		supervisor: NewSupervisor(registry, launcher, bus, logger, SupervisorConfig{
			GracePeriod: cfg.GracePeriod,
			Env:         cfg.WorkerEnv,
			Dir:         cfg.WorkerDir,
			Marker:      resolver.Marker,
		}),
		sampler:     NewResourceSampler(registry),
		bus:         bus,
		host:        host,
		logger:      logger.With("component", "orchestrator"),
		now:         time.Now,
		closing:     make(chan struct{}),
		closed:      make(chan struct{}),
		monitorStop: make(chan struct{}),
		monitorDone: make(chan struct{}),
	}

	if cfg.SampleInterval > 0 {
		go o.monitor(cfg.SampleInterval)
	} else {
		close(o.monitorDone)
	}
	return o
}

func (o *Orchestrator) ShouldRunInBackground(command string, args []string, flags map[string]any) bool {
	return o.policy.ShouldRunInBackground(command, args, flags)
}

// ExecuteInBackground registers and spawns a job and returns its id at once.
// How the job ends is reported through its status and events, never here;
// the only error is ErrOrchestratorClosed.
func (o *Orchestrator) ExecuteInBackground(command string, args []string, flags map[string]any) (string, error) {
	o.lifecycle.RLock()
	defer o.lifecycle.RUnlock()

	select {
	case <-o.closing:
		return "", ErrOrchestratorClosed
	default:
	}

	j := o.registry.Create(command, args, flags)
	executable, argv := o.resolver.Resolve(command, args, flags)
	o.logger.Debug("spawning job", "job_id", j.ID, "command", command, "executable", executable, "argv", argv)
	o.supervisor.Spawn(j, executable, argv)
	return j.ID, nil
}

// GetJobStatus returns copies of every known job in submission order.
func (o *Orchestrator) GetJobStatus() []job.Job {
	return o.registry.List()
}

func (o *Orchestrator) GetJob(jobID string) (job.Job, error) {
	return o.registry.Get(jobID)
}

func (o *Orchestrator) GenerateStatusReport() string {
	return FormatStatusReport(o.GetJobStatus(), o.sampler.Sample(), o.now())
}

// CancelJob requests termination of a running job. Unknown ids and jobs that
// already ended yield false.
func (o *Orchestrator) CancelJob(jobID string) bool {
	return o.supervisor.Cancel(jobID)
}

// WaitForJob blocks until the job is terminal, the timeout elapses
// (ErrWaitTimeout), or ctx ends. Giving up the wait never affects the job.
// A timeout <= 0 waits on ctx alone.
func (o *Orchestrator) WaitForJob(ctx context.Context, jobID string, timeout time.Duration) (job.Job, error) {
	done, err := o.registry.Done(jobID)
	if err != nil {
		return job.Job{}, err
	}

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-done:
		j, err := o.registry.Get(jobID)
		if err != nil {
			return job.Job{}, errors.Wrap(ErrOrchestratorClosed, err.Error())
		}
		return j, nil
	case <-expired:
		return job.Job{}, errors.Wrapf(ErrWaitTimeout, "job %s after %s", jobID, timeout)
	case <-ctx.Done():
		return job.Job{}, ctx.Err()
	case <-o.closed:
		return job.Job{}, ErrOrchestratorClosed
	}
}

func (o *Orchestrator) GetCurrentResourceUsage() resource.Usage {
	return o.sampler.Sample()
}

// HostStats reads host-level figures; it performs I/O.
func (o *Orchestrator) HostStats() (resource.HostStats, error) {
	if o.host == nil {
		return resource.HostStats{}, errors.New("host stats not available")
	}
	return o.host.Read()
}

// Prune drops terminal jobs that ended more than olderThan ago; olderThan <= 0
// drops every terminal job. Running jobs are never pruned.
func (o *Orchestrator) Prune(olderThan time.Duration) int {
	var cutoff time.Time
	if olderThan > 0 {
		cutoff = o.now().Add(-olderThan)
	}
	removed := o.registry.Prune(cutoff)
	if removed > 0 {
		o.logger.Info("pruned job history", "removed", removed, "older_than", olderThan)
	}
	return removed
}

func (o *Orchestrator) RegisterObserver(kind job.EventKind, observer ports.JobObserver) ObserverID {
	return o.bus.RegisterObserver(kind, observer)
}

func (o *Orchestrator) UnregisterObserver(kind job.EventKind, id ObserverID) bool {
	return o.bus.UnregisterObserver(kind, id)
}

func (o *Orchestrator) RemoveAllObservers(kind job.EventKind) {
	o.bus.RemoveAllObservers(kind)
}

func (o *Orchestrator) ObserverCount(kind job.EventKind) int {
	return o.bus.ObserverCount(kind)
}

// Subscribe streams every lifecycle event until the returned cancel function
// is called or the orchestrator shuts down.
func (o *Orchestrator) Subscribe() (<-chan job.Event, func()) {
	return o.bus.Subscribe()
}

// Shutdown cancels every running job, waits up to ShutdownGrace for them,
// kills survivors and clears the registry. Only the first call does any of
// that; later or concurrent calls return nil immediately.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	first := false
	o.shutdownOnce.Do(func() { first = true })
	if !first {
		return nil
	}

	o.lifecycle.Lock()
	close(o.closing)
	o.lifecycle.Unlock()

	close(o.monitorStop)
	<-o.monitorDone

	started := o.now()
	pending := o.liveJobs()
	o.logger.Info("shutting down", "live_jobs", len(pending))

	for id := range pending {
		o.supervisor.Cancel(id)
	}
	pending = waitForJobs(ctx, pending, o.cfg.ShutdownGrace)

	if len(pending) > 0 {
		o.logger.Warn("jobs survived shutdown grace, killing", "count", len(pending))
		for id := range pending {
			o.supervisor.Kill(id)
		}
		pending = waitForJobs(ctx, pending, shutdownKillWait)
	}
	if len(pending) > 0 {
		o.logger.Error("jobs still alive after kill", "count", len(pending))
	}
	// terminal events are published after done closes; let them reach the bus
	if !o.supervisor.Wait(shutdownKillWait) {
		o.logger.Warn("job watchers still running at shutdown")
	}

	o.registry.Clear()
	close(o.closed)
	o.bus.Close()

	o.logger.Info("shutdown complete", "elapsed", o.now().Sub(started))
	return nil
}

// liveJobs maps running job ids to their done channels.
func (o *Orchestrator) liveJobs() map[string]<-chan struct{} {
	out := make(map[string]<-chan struct{})
	for _, j := range o.registry.List() {
		if j.Status != job.Running {
			continue
		}
		if done, err := o.registry.Done(j.ID); err == nil {
			out[j.ID] = done
		}
	}
	return out
}

// waitForJobs waits up to d for the given jobs and returns the ones still
// not terminal.
func waitForJobs(ctx context.Context, jobs map[string]<-chan struct{}, d time.Duration) map[string]<-chan struct{} {
	if len(jobs) == 0 {
		return jobs
	}
	deadline := time.NewTimer(d)
	defer deadline.Stop()

	remaining := make(map[string]<-chan struct{}, len(jobs))
	for id, done := range jobs {
		remaining[id] = done
	}
	for id, done := range jobs {
		select {
		case <-done:
			delete(remaining, id)
		case <-deadline.C:
			return pruneDone(remaining)
		case <-ctx.Done():
			return pruneDone(remaining)
		}
	}
	return remaining
}

func pruneDone(jobs map[string]<-chan struct{}) map[string]<-chan struct{} {
	for id, done := range jobs {
		select {
		case <-done:
			delete(jobs, id)
		default:
		}
	}
	return jobs
}

func (o *Orchestrator) monitor(interval time.Duration) {
	defer close(o.monitorDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			o.logUsage()
		case <-o.monitorStop:
			return
		}
	}
}

func (o *Orchestrator) logUsage() {
	usage := o.sampler.Sample()
	fields := []interface{}{
		"memory_bytes", usage.MemoryBytes,
		"peak_memory_bytes", usage.PeakMemoryBytes,
		"active_jobs", usage.ActiveJobs,
		"goroutines", usage.Goroutines,
	}
	if o.host != nil {
		if hs, err := o.host.Read(); err == nil {
			fields = append(fields,
				"load_1m", hs.Load.Last1Min,
				"process_rss_kb", hs.ProcessRSSKb,
				"host_available_kb", hs.Memory.AvailableKb,
			)
		}
	}
	o.logger.Debug("resource usage", fields...)
}
