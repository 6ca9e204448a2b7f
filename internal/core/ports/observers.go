package ports

import "dev.rubentxu.background-orchestrator/internal/core/domain/job"

// JobObserver receives lifecycle events for background jobs. Notify is called
// from supervisor goroutines and must not block for long.
type JobObserver interface {
	Notify(event job.Event)
}

// ObserverFunc adapts a plain function to JobObserver.
type ObserverFunc func(event job.Event)

func (f ObserverFunc) Notify(event job.Event) {
	f(event)
}
