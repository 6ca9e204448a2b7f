package usecase

import (
	"sort"
	"sync"

	"dev.rubentxu.background-orchestrator/internal/core/domain/job"
	"dev.rubentxu.background-orchestrator/internal/core/ports"
	"github.com/golang-collections/collections/queue"
)

// ObserverID identifies one registration so it can be removed later.
type ObserverID uint64

// EventBus fans lifecycle events out to typed observers and to channel
// subscribers. A kind with no observers has no entry at all.
type EventBus struct {
	mu          sync.RWMutex
	nextID      ObserverID
	observers   map[job.EventKind]map[ObserverID]ports.JobObserver
	subscribers map[ObserverID]*subscription
	logger      ports.Logger
}

func NewEventBus(logger ports.Logger) *EventBus {
	return &EventBus{
		observers:   make(map[job.EventKind]map[ObserverID]ports.JobObserver),
		subscribers: make(map[ObserverID]*subscription),
		logger:      logger.With("component", "event_bus"),
	}
}

// RegisterObserver registra un observador para un tipo de evento
func (b *EventBus) RegisterObserver(kind job.EventKind, observer ports.JobObserver) ObserverID {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	byID, ok := b.observers[kind]
	if !ok {
		byID = make(map[ObserverID]ports.JobObserver)
		b.observers[kind] = byID
	}
	byID[id] = observer
	return id
}

func (b *EventBus) UnregisterObserver(kind job.EventKind, id ObserverID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	byID, ok := b.observers[kind]
	if !ok {
		return false
	}
	if _, ok := byID[id]; !ok {
		return false
	}
	delete(byID, id)
	if len(byID) == 0 {
		delete(b.observers, kind)
	}
	return true
}

func (b *EventBus) RemoveAllObservers(kind job.EventKind) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.observers, kind)
}

func (b *EventBus) ObserverCount(kind job.EventKind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.observers[kind])
}

// registeredKinds is the number of kinds that currently carry bookkeeping.
func (b *EventBus) registeredKinds() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.observers)
}

// Subscribe returns a channel receiving every event in publish order. Delivery
// is buffered without bound, so a slow reader never stalls publishers. The
// returned function cancels the subscription and closes the channel.
func (b *EventBus) Subscribe() (<-chan job.Event, func()) {
	sub := &subscription{
		pending: queue.New(),
		signal:  make(chan struct{}, 1),
		out:     make(chan job.Event),
		drain:   make(chan struct{}),
		closed:  make(chan struct{}),
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subscribers[id] = sub
	b.mu.Unlock()

	go sub.run()

	return sub.out, func() {
		b.mu.Lock()
		delete(b.subscribers, id)
		b.mu.Unlock()
		sub.close()
	}
}

// Publish delivers ev synchronously to observers in registration order, then
// queues it for subscribers.
func (b *EventBus) Publish(ev job.Event) {
	b.mu.RLock()
	ids := make([]ObserverID, 0, len(b.observers[ev.Kind]))
	for id := range b.observers[ev.Kind] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	observers := make([]ports.JobObserver, 0, len(ids))
	for _, id := range ids {
		observers = append(observers, b.observers[ev.Kind][id])
	}
	subs := make([]*subscription, 0, len(b.subscribers))
	for _, s := range b.subscribers {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	for _, obs := range observers {
		b.notify(obs, ev)
	}
	for _, s := range subs {
		s.push(ev)
	}
}

// Close ends every channel subscription once the events already queued for it
// have been received. Observers stay registered.
func (b *EventBus) Close() {
	b.mu.Lock()
	subs := b.subscribers
	b.subscribers = make(map[ObserverID]*subscription)
	b.mu.Unlock()

	for _, s := range subs {
		s.finish()
	}
}

func (b *EventBus) notify(obs ports.JobObserver, ev job.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("observer panicked", "event", ev.Kind.String(), "job_id", ev.JobID, "panic", r)
		}
	}()
	obs.Notify(ev)
}

type subscription struct {
	mu      sync.Mutex
	pending *queue.Queue
	signal  chan struct{}
	out     chan job.Event
	// drain ends the subscription after the queue empties; closed ends it now
	drain     chan struct{}
	closed    chan struct{}
	once      sync.Once
	drainOnce sync.Once
}

func (s *subscription) push(ev job.Event) {
	s.mu.Lock()
	s.pending.Enqueue(ev)
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *subscription) run() {
	defer close(s.out)
	for {
		s.mu.Lock()
		var next interface{}
		if s.pending.Len() > 0 {
			next = s.pending.Dequeue()
		}
		s.mu.Unlock()

		if next == nil {
			select {
			case <-s.signal:
				continue
			case <-s.drain:
				if s.empty() {
					return
				}
				continue
			case <-s.closed:
				return
			}
		}

		select {
		case s.out <- next.(job.Event):
		case <-s.closed:
			return
		}
	}
}

func (s *subscription) empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.Len() == 0
}

func (s *subscription) finish() {
	s.drainOnce.Do(func() { close(s.drain) })
}

func (s *subscription) close() {
	s.once.Do(func() { close(s.closed) })
}
