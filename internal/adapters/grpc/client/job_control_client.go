package client

import (
	"context"
	"io"
	"strings"
	"time"

	"dev.rubentxu.background-orchestrator/internal/adapters/grpc/jobcontrol"
	"dev.rubentxu.background-orchestrator/internal/core/domain/job"
	"dev.rubentxu.background-orchestrator/internal/core/ports"
	"dev.rubentxu.background-orchestrator/internal/core/usecase"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// JobControlClient encapsula el cliente gRPC del orquestador
type JobControlClient struct {
	conn   *grpc.ClientConn
	client jobcontrol.JobControlClient
	health healthpb.HealthClient
	logger ports.Logger
}

// Dial opens a plaintext connection to addr. The connection is established
// lazily on the first call.
func Dial(addr string, logger ports.Logger, opts ...grpc.DialOption) (*JobControlClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create client for %s", addr)
	}
	return NewJobControlClient(conn, logger), nil
}

// NewJobControlClient crea el cliente sobre una conexión existente
func NewJobControlClient(conn *grpc.ClientConn, logger ports.Logger) *JobControlClient {
	return &JobControlClient{
		conn:   conn,
		client: jobcontrol.NewJobControlClient(conn),
		health: healthpb.NewHealthClient(conn),
		logger: logger.With("component", "job_control_client"),
	}
}

func (c *JobControlClient) Close() error {
	return c.conn.Close()
}

func (c *JobControlClient) Decide(ctx context.Context, command string, args []string, flags map[string]any) (bool, error) {
	resp, err := c.client.Decide(ctx, &jobcontrol.DecideRequest{Command: command, Args: args, Flags: flags})
	if err != nil {
		return false, fromStatus(ctx, err, "decide")
	}
	return resp.Background, nil
}

// Submit detaches command on the orchestrator and returns the job id.
func (c *JobControlClient) Submit(ctx context.Context, command string, args []string, flags map[string]any) (string, error) {
	resp, err := c.client.Submit(ctx, &jobcontrol.SubmitRequest{Command: command, Args: args, Flags: flags})
	if err != nil {
		return "", fromStatus(ctx, err, "submit")
	}
	return resp.JobID, nil
}

func (c *JobControlClient) List(ctx context.Context) ([]job.Job, error) {
	resp, err := c.client.List(ctx, &jobcontrol.ListRequest{})
	if err != nil {
		return nil, fromStatus(ctx, err, "list")
	}
	return resp.Jobs, nil
}

func (c *JobControlClient) Get(ctx context.Context, jobID string) (job.Job, error) {
	resp, err := c.client.Get(ctx, &jobcontrol.GetRequest{JobID: jobID})
	if err != nil {
		return job.Job{}, fromStatus(ctx, err, "get "+jobID)
	}
	return resp.Job, nil
}

func (c *JobControlClient) Cancel(ctx context.Context, jobID string) (bool, error) {
	resp, err := c.client.Cancel(ctx, &jobcontrol.CancelRequest{JobID: jobID})
	if err != nil {
		return false, fromStatus(ctx, err, "cancel "+jobID)
	}
	return resp.Cancelled, nil
}

// Wait blocks until the job is terminal or timeout elapses, in which case the
// error matches usecase.ErrWaitTimeout.
func (c *JobControlClient) Wait(ctx context.Context, jobID string, timeout time.Duration) (job.Job, error) {
	resp, err := c.client.Wait(ctx, &jobcontrol.WaitRequest{JobID: jobID, TimeoutMillis: jobcontrol.Millis(timeout)})
	if err != nil {
		return job.Job{}, fromStatus(ctx, err, "wait "+jobID)
	}
	return resp.Job, nil
}

func (c *JobControlClient) Report(ctx context.Context) (string, error) {
	resp, err := c.client.Report(ctx, &jobcontrol.ReportRequest{})
	if err != nil {
		return "", fromStatus(ctx, err, "report")
	}
	return resp.Report, nil
}

func (c *JobControlClient) Resources(ctx context.Context, includeHost bool) (*jobcontrol.ResourcesResponse, error) {
	resp, err := c.client.Resources(ctx, &jobcontrol.ResourcesRequest{IncludeHost: includeHost})
	if err != nil {
		return nil, fromStatus(ctx, err, "resources")
	}
	return resp, nil
}

func (c *JobControlClient) Prune(ctx context.Context, olderThan time.Duration) (int, error) {
	resp, err := c.client.Prune(ctx, &jobcontrol.PruneRequest{OlderThanMillis: jobcontrol.Millis(olderThan)})
	if err != nil {
		return 0, fromStatus(ctx, err, "prune")
	}
	return resp.Removed, nil
}

// Watch delivers lifecycle events on eventChan until the stream ends, then
// closes it. An empty jobID watches every job.
func (c *JobControlClient) Watch(ctx context.Context, jobID string, eventChan chan<- *jobcontrol.EventMessage) error {
	stream, err := c.client.Watch(ctx, &jobcontrol.WatchRequest{JobID: jobID})
	if err != nil {
		close(eventChan)
		return fromStatus(ctx, err, "watch")
	}

	go func() {
		defer close(eventChan)
		for {
			ev, err := stream.Recv()
			if err == io.EOF {
				return
			}
			if err != nil {
				if ctx.Err() == nil {
					c.logger.Error("error receiving event", "error", err)
				}
				return
			}
			select {
			case eventChan <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Healthy reports whether the JobControl service answers SERVING.
func (c *JobControlClient) Healthy(ctx context.Context) (bool, error) {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: jobcontrol.ServiceName})
	if err != nil {
		return false, errors.Wrap(err, "health check failed")
	}
	return resp.Status == healthpb.HealthCheckResponse_SERVING, nil
}

// fromStatus turns gRPC codes back into the domain errors callers match on.
func fromStatus(ctx context.Context, err error, op string) error {
	st, ok := status.FromError(err)
	if !ok {
		return errors.Wrap(err, op)
	}
	switch st.Code() {
	case codes.NotFound:
		return errors.Wrap(job.ErrJobNotFound, st.Message())
	case codes.DeadlineExceeded:
		if ctx.Err() == nil {
			return errors.Wrap(usecase.ErrWaitTimeout, st.Message())
		}
	case codes.Unavailable:
		if strings.Contains(st.Message(), usecase.ErrOrchestratorClosed.Error()) {
			return usecase.ErrOrchestratorClosed
		}
	}
	return errors.Wrap(err, op)
}
