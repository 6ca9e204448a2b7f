package job

import (
	"time"
)

// EventKind is the closed set of lifecycle notifications.
type EventKind int

const (
	EventStarted EventKind = iota + 1
	EventCompleted
	EventFailed
	EventCancelled
)

func AllEventKinds() []EventKind {
	return []EventKind{EventStarted, EventCompleted, EventFailed, EventCancelled}
}

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "jobStarted"
	case EventCompleted:
		return "jobCompleted"
	case EventFailed:
		return "jobFailed"
	case EventCancelled:
		return "jobCancelled"
	default:
		return "unknown"
	}
}

// ParseEventKind is the inverse of EventKind.String.
func ParseEventKind(s string) (EventKind, bool) {
	for _, k := range AllEventKinds() {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// IsTerminal reports whether k closes a job's event sequence.
func (k EventKind) IsTerminal() bool {
	return k == EventCompleted || k == EventFailed || k == EventCancelled
}

// TerminalEventFor maps a terminal status to the event announcing it.
func TerminalEventFor(s Status) (EventKind, bool) {
	switch s {
	case Completed:
		return EventCompleted, true
	case Failed:
		return EventFailed, true
	case Cancelled:
		return EventCancelled, true
	default:
		return 0, false
	}
}

// Event is one lifecycle notification for a job.
type Event struct {
	Kind      EventKind
	JobID     string
	Job       Job
	Timestamp time.Time
}

func NewEvent(kind EventKind, j Job) Event {
	return Event{
		Kind:      kind,
		JobID:     j.ID,
		Job:       j,
		Timestamp: time.Now(),
	}
}
