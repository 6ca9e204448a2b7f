package job

import (
	"time"
)

// Job is a point-in-time copy of one tracked background command. Values
// returned by the registry never alias registry state.
type Job struct {
	ID      string         `json:"id"`
	Command string         `json:"command"`
	Args    []string       `json:"args,omitempty"`
	Flags   map[string]any `json:"flags,omitempty"`

	PID    int    `json:"pid,omitempty"`
	Status Status `json:"status"`

	CreatedAt time.Time  `json:"created_at"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`

	ExitCode *int   `json:"exit_code,omitempty"`
	Error    string `json:"error,omitempty"`

	Stdout        string `json:"stdout,omitempty"`
	Stderr        string `json:"stderr,omitempty"`
	StdoutDropped int64  `json:"stdout_dropped,omitempty"`
	StderrDropped int64  `json:"stderr_dropped,omitempty"`
}

// Update carries the fields that accompany a status transition. Fields that
// do not apply to the target status are ignored.
type Update struct {
	PID      int
	ExitCode *int
	Error    string
	At       time.Time
}

// IsTerminal verifica si el job ha terminado
func (j Job) IsTerminal() bool {
	return j.Status.IsTerminal()
}

// Elapsed is the running time so far, or the total runtime once ended.
func (j Job) Elapsed(now time.Time) time.Duration {
	if j.StartedAt == nil {
		return 0
	}
	if j.EndedAt != nil {
		return j.EndedAt.Sub(*j.StartedAt)
	}
	return now.Sub(*j.StartedAt)
}

// Apply moves j to status to, filling in the fields the target state owns.
func (j *Job) Apply(to Status, u Update) error {
	if err := ValidateTransition(j.Status, to); err != nil {
		return err
	}
	at := u.At
	if at.IsZero() {
		at = time.Now()
	}
	j.Status = to

	switch to {
	case Running:
		if u.PID > 0 && j.PID == 0 {
			j.PID = u.PID
		}
		j.StartedAt = &at
	case Completed, Failed:
		j.EndedAt = &at
		if u.ExitCode != nil {
			code := *u.ExitCode
			j.ExitCode = &code
		}
		if to == Failed {
			j.Error = u.Error
		}
	case Cancelled:
		j.EndedAt = &at
		j.Error = u.Error
	}
	return nil
}

// Clone returns a copy of j that shares no mutable state with it.
func (j Job) Clone() Job {
	out := j
	if j.Args != nil {
		out.Args = append([]string(nil), j.Args...)
	}
	if j.Flags != nil {
		out.Flags = make(map[string]any, len(j.Flags))
		for k, v := range j.Flags {
			out.Flags[k] = v
		}
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		out.StartedAt = &t
	}
	if j.EndedAt != nil {
		t := *j.EndedAt
		out.EndedAt = &t
	}
	if j.ExitCode != nil {
		c := *j.ExitCode
		out.ExitCode = &c
	}
	return out
}

// IntPtr is a small helper for populating ExitCode.
func IntPtr(v int) *int {
	return &v
}
