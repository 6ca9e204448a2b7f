package server

import (
	"context"
	"strings"

	"dev.rubentxu.background-orchestrator/internal/adapters/grpc/jobcontrol"
	"dev.rubentxu.background-orchestrator/internal/core/domain/job"
	"dev.rubentxu.background-orchestrator/internal/core/ports"
	"dev.rubentxu.background-orchestrator/internal/core/usecase"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// JobControlServer exposes the orchestrator over gRPC.
type JobControlServer struct {
	orch   ports.JobOrchestrator
	logger ports.Logger
}

var _ jobcontrol.JobControlServer = (*JobControlServer)(nil)

func NewJobControlServer(orch ports.JobOrchestrator, logger ports.Logger) *JobControlServer {
	return &JobControlServer{
		orch:   orch,
		logger: logger.With("component", "grpc_job_control"),
	}
}

func (s *JobControlServer) Decide(ctx context.Context, req *jobcontrol.DecideRequest) (*jobcontrol.DecideResponse, error) {
	if err := requireCommand(req.Command); err != nil {
		return nil, err
	}
	return &jobcontrol.DecideResponse{
		Background: s.orch.ShouldRunInBackground(req.Command, req.Args, req.Flags),
	}, nil
}

// Submit always detaches the command; callers that want the policy applied
// call Decide first.
func (s *JobControlServer) Submit(ctx context.Context, req *jobcontrol.SubmitRequest) (*jobcontrol.SubmitResponse, error) {
	if err := requireCommand(req.Command); err != nil {
		return nil, err
	}
	id, err := s.orch.ExecuteInBackground(req.Command, req.Args, req.Flags)
	if err != nil {
		return nil, toStatus(err)
	}
	s.logger.Info("job submitted", "job_id", id, "command", req.Command)
	return &jobcontrol.SubmitResponse{JobID: id, Background: true}, nil
}

func (s *JobControlServer) List(ctx context.Context, req *jobcontrol.ListRequest) (*jobcontrol.ListResponse, error) {
	return &jobcontrol.ListResponse{Jobs: s.orch.GetJobStatus()}, nil
}

func (s *JobControlServer) Get(ctx context.Context, req *jobcontrol.GetRequest) (*jobcontrol.JobResponse, error) {
	j, err := s.orch.GetJob(req.JobID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &jobcontrol.JobResponse{Job: j}, nil
}

func (s *JobControlServer) Cancel(ctx context.Context, req *jobcontrol.CancelRequest) (*jobcontrol.CancelResponse, error) {
	return &jobcontrol.CancelResponse{Cancelled: s.orch.CancelJob(req.JobID)}, nil
}

func (s *JobControlServer) Wait(ctx context.Context, req *jobcontrol.WaitRequest) (*jobcontrol.JobResponse, error) {
	j, err := s.orch.WaitForJob(ctx, req.JobID, jobcontrol.Duration(req.TimeoutMillis))
	if err != nil {
		return nil, toStatus(err)
	}
	return &jobcontrol.JobResponse{Job: j}, nil
}

func (s *JobControlServer) Report(ctx context.Context, req *jobcontrol.ReportRequest) (*jobcontrol.ReportResponse, error) {
	return &jobcontrol.ReportResponse{Report: s.orch.GenerateStatusReport()}, nil
}

func (s *JobControlServer) Resources(ctx context.Context, req *jobcontrol.ResourcesRequest) (*jobcontrol.ResourcesResponse, error) {
	resp := &jobcontrol.ResourcesResponse{Usage: s.orch.GetCurrentResourceUsage()}
	if req.IncludeHost {
		host, err := s.orch.HostStats()
		if err != nil {
			s.logger.Debug("host stats unavailable", "error", err)
		} else {
			resp.Host = &host
		}
	}
	return resp, nil
}

func (s *JobControlServer) Prune(ctx context.Context, req *jobcontrol.PruneRequest) (*jobcontrol.PruneResponse, error) {
	return &jobcontrol.PruneResponse{Removed: s.orch.Prune(jobcontrol.Duration(req.OlderThanMillis))}, nil
}

// Watch streams lifecycle events until the client goes away or the
// orchestrator shuts down. A job-scoped watch returns after the job's
// terminal event, including when the job had already finished.
func (s *JobControlServer) Watch(req *jobcontrol.WatchRequest, stream jobcontrol.JobControl_WatchServer) error {
	events, cancel := s.orch.Subscribe()
	defer cancel()

	watcher := uuid.New().String()
	log := s.logger.With("watcher", watcher, "job_id", req.JobID)
	log.Debug("watch started")
	defer log.Debug("watch ended")

	if req.JobID != "" {
		j, err := s.orch.GetJob(req.JobID)
		if err != nil {
			return toStatus(err)
		}
		// subscribed before the read, so a later terminal event is not missed
		if kind, ok := job.TerminalEventFor(j.Status); ok {
			return stream.Send(jobcontrol.NewEventMessage(job.NewEvent(kind, j)))
		}
	}

	for {
		select {
		case <-stream.Context().Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return status.Error(codes.Unavailable, usecase.ErrOrchestratorClosed.Error())
			}
			if req.JobID != "" && ev.JobID != req.JobID {
				continue
			}
			if err := stream.Send(jobcontrol.NewEventMessage(ev)); err != nil {
				return err
			}
			if req.JobID != "" && ev.Kind.IsTerminal() {
				return nil
			}
		}
	}
}

func requireCommand(command string) error {
	if strings.TrimSpace(command) == "" {
		return status.Error(codes.InvalidArgument, "command is required")
	}
	return nil
}

// toStatus maps domain errors onto gRPC status codes.
func toStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, job.ErrJobNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, usecase.ErrWaitTimeout):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, usecase.ErrOrchestratorClosed):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
