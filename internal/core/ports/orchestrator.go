package ports

import (
	"context"
	"time"

	"dev.rubentxu.background-orchestrator/internal/core/domain/job"
	"dev.rubentxu.background-orchestrator/internal/core/domain/resource"
)

// JobOrchestrator is the driving port the control-plane adapters call into.
type JobOrchestrator interface {
	ShouldRunInBackground(command string, args []string, flags map[string]any) bool
	ExecuteInBackground(command string, args []string, flags map[string]any) (string, error)
	GetJobStatus() []job.Job
	GetJob(jobID string) (job.Job, error)
	CancelJob(jobID string) bool
	WaitForJob(ctx context.Context, jobID string, timeout time.Duration) (job.Job, error)
	GenerateStatusReport() string
	GetCurrentResourceUsage() resource.Usage
	HostStats() (resource.HostStats, error)
	Prune(olderThan time.Duration) int
	Subscribe() (<-chan job.Event, func())
}
