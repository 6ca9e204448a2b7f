package ports

import (
	"time"

	"dev.rubentxu.background-orchestrator/internal/core/domain/job"
)

// JobRegistry define la interfaz para guardar y consultar jobs en memoria.
// Every method returns snapshots; callers never hold live records.
type JobRegistry interface {
	Create(command string, args []string, flags map[string]any) job.Job
	Get(jobID string) (job.Job, error)
	List() []job.Job
	Transition(jobID string, to job.Status, update job.Update) (job.Job, error)
	AppendOutput(jobID string, stream job.Stream, p []byte) error
	// Done returns a channel closed when the job reaches a terminal status.
	Done(jobID string) (<-chan struct{}, error)
	CountByStatus(status job.Status) int
	Remove(jobID string) error
	// Prune removes terminal jobs that ended before cutoff; a zero cutoff
	// removes every terminal job.
	Prune(cutoff time.Time) int
	Clear()
}
