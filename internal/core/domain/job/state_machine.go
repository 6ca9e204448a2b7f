package job

import (
	"github.com/pkg/errors"
)

// Status is the lifecycle state of a background job.
type Status string

const (
	Pending   Status = "pending"
	Running   Status = "running"
	Completed Status = "completed"
	Failed    Status = "failed"
	Cancelled Status = "cancelled"
)

var (
	ErrJobNotFound       = errors.New("job not found")
	ErrInvalidTransition = errors.New("invalid job transition")
)

func AllStatuses() []Status {
	return []Status{Pending, Running, Completed, Failed, Cancelled}
}

func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is allowed out of s.
func (s Status) IsTerminal() bool {
	return s == Completed || s == Failed || s == Cancelled
}

var stateTransitionMap = map[Status][]Status{
	Pending:   {Running, Failed},
	Running:   {Completed, Failed, Cancelled},
	Completed: {},
	Failed:    {},
	Cancelled: {},
}

func Contains(statuses []Status, status Status) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

// ValidStateTransition reports whether src -> dst is allowed.
func ValidStateTransition(src Status, dst Status) bool {
	return Contains(stateTransitionMap[src], dst)
}

// ValidateTransition is ValidStateTransition with a descriptive error.
func ValidateTransition(src Status, dst Status) error {
	if _, ok := stateTransitionMap[src]; !ok {
		return errors.Wrapf(ErrInvalidTransition, "unknown status %q", src)
	}
	if !ValidStateTransition(src, dst) {
		return errors.Wrapf(ErrInvalidTransition, "%s -> %s", src, dst)
	}
	return nil
}
