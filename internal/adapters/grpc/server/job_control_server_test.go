package server

import (
	"context"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"dev.rubentxu.background-orchestrator/internal/adapters/grpc/jobcontrol"
	"dev.rubentxu.background-orchestrator/internal/adapters/logger"
	"dev.rubentxu.background-orchestrator/internal/core/domain/job"
	"dev.rubentxu.background-orchestrator/internal/core/domain/resource"
	"dev.rubentxu.background-orchestrator/internal/core/ports"
	"dev.rubentxu.background-orchestrator/internal/core/usecase"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

// stubOrchestrator answers from a fixed job table and lets tests push events.
type stubOrchestrator struct {
	mu        sync.Mutex
	jobs      map[string]job.Job
	submitted []string
	waitErr   error
	events    chan job.Event
}

func newStubOrchestrator() *stubOrchestrator {
	return &stubOrchestrator{
		jobs:   make(map[string]job.Job),
		events: make(chan job.Event, 16),
	}
}

func (o *stubOrchestrator) ShouldRunInBackground(command string, args []string, flags map[string]any) bool {
	return command == "store"
}

func (o *stubOrchestrator) ExecuteInBackground(command string, args []string, flags map[string]any) (string, error) {
	if command == "closed" {
		return "", usecase.ErrOrchestratorClosed
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.submitted = append(o.submitted, command)
	id := "job_" + command
	o.jobs[id] = job.Job{ID: id, Command: command, Args: args, Flags: flags, Status: job.Running}
	return id, nil
}

func (o *stubOrchestrator) GetJobStatus() []job.Job {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]job.Job, 0, len(o.jobs))
	for _, j := range o.jobs {
		out = append(out, j)
	}
	return out
}

func (o *stubOrchestrator) GetJob(jobID string) (job.Job, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	j, ok := o.jobs[jobID]
	if !ok {
		return job.Job{}, errors.Wrapf(job.ErrJobNotFound, "job %s", jobID)
	}
	return j, nil
}

func (o *stubOrchestrator) CancelJob(jobID string) bool {
	j, err := o.GetJob(jobID)
	return err == nil && j.Status == job.Running
}

func (o *stubOrchestrator) WaitForJob(ctx context.Context, jobID string, timeout time.Duration) (job.Job, error) {
	if o.waitErr != nil {
		return job.Job{}, o.waitErr
	}
	return o.GetJob(jobID)
}

func (o *stubOrchestrator) GenerateStatusReport() string { return "Background Jobs\n" }

func (o *stubOrchestrator) GetCurrentResourceUsage() resource.Usage {
	return resource.Usage{MemoryBytes: 1024, ActiveJobs: 2}
}

func (o *stubOrchestrator) HostStats() (resource.HostStats, error) {
	return resource.HostStats{CPUCores: 4}, nil
}

func (o *stubOrchestrator) Prune(olderThan time.Duration) int {
	if olderThan == time.Hour {
		return 3
	}
	return 0
}

func (o *stubOrchestrator) Subscribe() (<-chan job.Event, func()) {
	return o.events, func() {}
}

func (o *stubOrchestrator) set(j job.Job) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.jobs[j.ID] = j
}

func startServer(t *testing.T, orch ports.JobOrchestrator) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	gs, _ := NewGRPCServer(NewJobControlServer(orch, logger.NewNopLogger()), logger.NewNopLogger())
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestUnaryCalls(t *testing.T) {
	orch := newStubOrchestrator()
	c := jobcontrol.NewJobControlClient(startServer(t, orch))
	ctx := context.Background()

	decide, err := c.Decide(ctx, &jobcontrol.DecideRequest{Command: "store"})
	require.NoError(t, err)
	require.True(t, decide.Background)

	submit, err := c.Submit(ctx, &jobcontrol.SubmitRequest{Command: "sync", Args: []string{"a"}, Flags: map[string]any{"epochs": 5}})
	require.NoError(t, err)
	require.Equal(t, "job_sync", submit.JobID)
	require.True(t, submit.Background)

	got, err := c.Get(ctx, &jobcontrol.GetRequest{JobID: "job_sync"})
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, got.Job.Args)
	require.Equal(t, float64(5), got.Job.Flags["epochs"], "flags travel as JSON")

	list, err := c.List(ctx, &jobcontrol.ListRequest{})
	require.NoError(t, err)
	require.Len(t, list.Jobs, 1)

	cancelled, err := c.Cancel(ctx, &jobcontrol.CancelRequest{JobID: "job_sync"})
	require.NoError(t, err)
	require.True(t, cancelled.Cancelled)

	cancelled, err = c.Cancel(ctx, &jobcontrol.CancelRequest{JobID: "nope"})
	require.NoError(t, err)
	require.False(t, cancelled.Cancelled)

	report, err := c.Report(ctx, &jobcontrol.ReportRequest{})
	require.NoError(t, err)
	require.Contains(t, report.Report, "Background Jobs")

	res, err := c.Resources(ctx, &jobcontrol.ResourcesRequest{IncludeHost: true})
	require.NoError(t, err)
	require.Equal(t, 2, res.Usage.ActiveJobs)
	require.NotNil(t, res.Host)
	require.Equal(t, 4, res.Host.CPUCores)

	pruned, err := c.Prune(ctx, &jobcontrol.PruneRequest{OlderThanMillis: jobcontrol.Millis(time.Hour)})
	require.NoError(t, err)
	require.Equal(t, 3, pruned.Removed)
}

func TestErrorCodes(t *testing.T) {
	orch := newStubOrchestrator()
	c := jobcontrol.NewJobControlClient(startServer(t, orch))
	ctx := context.Background()

	_, err := c.Get(ctx, &jobcontrol.GetRequest{JobID: "missing"})
	require.Equal(t, codes.NotFound, status.Code(err))

	_, err = c.Submit(ctx, &jobcontrol.SubmitRequest{Command: "  "})
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = c.Decide(ctx, &jobcontrol.DecideRequest{})
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = c.Submit(ctx, &jobcontrol.SubmitRequest{Command: "closed"})
	require.Equal(t, codes.Unavailable, status.Code(err))

	orch.set(job.Job{ID: "job_slow", Status: job.Running})
	orch.waitErr = errors.Wrap(usecase.ErrWaitTimeout, "job job_slow")
	_, err = c.Wait(ctx, &jobcontrol.WaitRequest{JobID: "job_slow", TimeoutMillis: 10})
	require.Equal(t, codes.DeadlineExceeded, status.Code(err))
}

func TestWatchFiltersByJobAndEndsOnTerminal(t *testing.T) {
	orch := newStubOrchestrator()
	orch.set(job.Job{ID: "job_1", Status: job.Running})
	c := jobcontrol.NewJobControlClient(startServer(t, orch))

	stream, err := c.Watch(context.Background(), &jobcontrol.WatchRequest{JobID: "job_1"})
	require.NoError(t, err)

	orch.events <- job.NewEvent(job.EventStarted, job.Job{ID: "job_2", Status: job.Running})
	orch.events <- job.NewEvent(job.EventCompleted, job.Job{ID: "job_1", Status: job.Completed, ExitCode: job.IntPtr(0)})

	ev, err := stream.Recv()
	require.NoError(t, err)
	require.Equal(t, "jobCompleted", ev.Kind)
	require.Equal(t, "job_1", ev.JobID)
	require.Equal(t, 0, *ev.Job.ExitCode)

	_, err = stream.Recv()
	require.Equal(t, io.EOF, err)
}

func TestWatchOfFinishedJobReplaysTerminalEvent(t *testing.T) {
	orch := newStubOrchestrator()
	orch.set(job.Job{ID: "job_done", Status: job.Failed, Error: "exit status 1"})
	c := jobcontrol.NewJobControlClient(startServer(t, orch))

	stream, err := c.Watch(context.Background(), &jobcontrol.WatchRequest{JobID: "job_done"})
	require.NoError(t, err)

	ev, err := stream.Recv()
	require.NoError(t, err)
	require.Equal(t, "jobFailed", ev.Kind)
	_, err = stream.Recv()
	require.Equal(t, io.EOF, err)
}

func TestWatchUnknownJob(t *testing.T) {
	c := jobcontrol.NewJobControlClient(startServer(t, newStubOrchestrator()))

	stream, err := c.Watch(context.Background(), &jobcontrol.WatchRequest{JobID: "ghost"})
	require.NoError(t, err)
	_, err = stream.Recv()
	require.Equal(t, codes.NotFound, status.Code(err))
}

func TestWatchEndsWhenOrchestratorCloses(t *testing.T) {
	orch := newStubOrchestrator()
	c := jobcontrol.NewJobControlClient(startServer(t, orch))

	stream, err := c.Watch(context.Background(), &jobcontrol.WatchRequest{})
	require.NoError(t, err)

	orch.events <- job.NewEvent(job.EventStarted, job.Job{ID: "job_a", Status: job.Running})
	ev, err := stream.Recv()
	require.NoError(t, err)
	require.Equal(t, "jobStarted", ev.Kind)

	close(orch.events)
	_, err = stream.Recv()
	require.Equal(t, codes.Unavailable, status.Code(err))
}

func TestHealthService(t *testing.T) {
	conn := startServer(t, newStubOrchestrator())
	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: jobcontrol.ServiceName})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}
