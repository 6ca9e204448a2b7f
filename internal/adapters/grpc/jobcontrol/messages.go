package jobcontrol

import (
	"time"

	"dev.rubentxu.background-orchestrator/internal/core/domain/job"
	"dev.rubentxu.background-orchestrator/internal/core/domain/resource"
)

type DecideRequest struct {
	Command string         `json:"command"`
	Args    []string       `json:"args,omitempty"`
	Flags   map[string]any `json:"flags,omitempty"`
}

type DecideResponse struct {
	Background bool `json:"background"`
}

type SubmitRequest struct {
	Command string         `json:"command"`
	Args    []string       `json:"args,omitempty"`
	Flags   map[string]any `json:"flags,omitempty"`
}

type SubmitResponse struct {
	JobID      string `json:"job_id"`
	Background bool   `json:"background"`
}

type ListRequest struct{}

type ListResponse struct {
	Jobs []job.Job `json:"jobs"`
}

type GetRequest struct {
	JobID string `json:"job_id"`
}

type JobResponse struct {
	Job job.Job `json:"job"`
}

type CancelRequest struct {
	JobID string `json:"job_id"`
}

type CancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

// WaitRequest waits for a job to finish. TimeoutMillis <= 0 waits until the
// call's own deadline.
type WaitRequest struct {
	JobID         string `json:"job_id"`
	TimeoutMillis int64  `json:"timeout_ms,omitempty"`
}

type ReportRequest struct{}

type ReportResponse struct {
	Report string `json:"report"`
}

type ResourcesRequest struct {
	IncludeHost bool `json:"include_host,omitempty"`
}

type ResourcesResponse struct {
	Usage resource.Usage      `json:"usage"`
	Host  *resource.HostStats `json:"host,omitempty"`
}

// PruneRequest drops terminal jobs older than OlderThanMillis; <= 0 drops
// every terminal job.
type PruneRequest struct {
	OlderThanMillis int64 `json:"older_than_ms,omitempty"`
}

type PruneResponse struct {
	Removed int `json:"removed"`
}

// WatchRequest subscribes to lifecycle events, optionally for a single job.
// A job-scoped watch ends after that job's terminal event.
type WatchRequest struct {
	JobID string `json:"job_id,omitempty"`
}

type EventMessage struct {
	Kind      string    `json:"kind"`
	JobID     string    `json:"job_id"`
	Job       job.Job   `json:"job"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEventMessage(ev job.Event) *EventMessage {
	return &EventMessage{
		Kind:      ev.Kind.String(),
		JobID:     ev.JobID,
		Job:       ev.Job,
		Timestamp: ev.Timestamp,
	}
}

func Millis(d time.Duration) int64 {
	return d.Milliseconds()
}

func Duration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
