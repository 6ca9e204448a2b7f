package store

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"dev.rubentxu.background-orchestrator/internal/core/domain/job"
	"dev.rubentxu.background-orchestrator/internal/core/ports"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type record struct {
	job    job.Job
	stdout *job.OutputBuffer
	stderr *job.OutputBuffer
	done   chan struct{}
}

// MemoryJobRegistry is the in-memory job table. Records live until Remove,
// Prune or Clear; nothing is evicted automatically.
type MemoryJobRegistry struct {
	mu          sync.RWMutex
	seq         uint64
	order       []string
	records     map[string]*record
	outputLimit int
	now         func() time.Time
}

var _ ports.JobRegistry = (*MemoryJobRegistry)(nil)

// NewMemoryJobRegistry crea un registro vacío; outputLimit acota stdout y
// stderr de cada job por separado.
func NewMemoryJobRegistry(outputLimit int) *MemoryJobRegistry {
	if outputLimit <= 0 {
		outputLimit = job.DefaultOutputLimit
	}
	return &MemoryJobRegistry{
		records:     make(map[string]*record),
		outputLimit: outputLimit,
		now:         time.Now,
	}
}

func (r *MemoryJobRegistry) Create(command string, args []string, flags map[string]any) job.Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	id := newJobID(r.seq)
	rec := &record{
		job: job.Job{
			ID:        id,
			Command:   command,
			Status:    job.Pending,
			CreatedAt: r.now(),
		},
		stdout: job.NewOutputBuffer(r.outputLimit),
		stderr: job.NewOutputBuffer(r.outputLimit),
		done:   make(chan struct{}),
	}
	// stored through Clone so the caller's slices and map are not retained
	rec.job.Args = args
	rec.job.Flags = flags
	rec.job = rec.job.Clone()

	r.records[id] = rec
	r.order = append(r.order, id)
	return r.snapshot(rec)
}

func (r *MemoryJobRegistry) Get(jobID string) (job.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[jobID]
	if !ok {
		return job.Job{}, errors.Wrap(job.ErrJobNotFound, jobID)
	}
	return r.snapshot(rec), nil
}

func (r *MemoryJobRegistry) List() []job.Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]job.Job, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.snapshot(r.records[id]))
	}
	return out
}

func (r *MemoryJobRegistry) Transition(jobID string, to job.Status, update job.Update) (job.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[jobID]
	if !ok {
		return job.Job{}, errors.Wrap(job.ErrJobNotFound, jobID)
	}
	if update.At.IsZero() {
		update.At = r.now()
	}
	if err := rec.job.Apply(to, update); err != nil {
		return job.Job{}, errors.Wrapf(err, "job %s", jobID)
	}
	if to.IsTerminal() {
		close(rec.done)
	}
	return r.snapshot(rec), nil
}

func (r *MemoryJobRegistry) AppendOutput(jobID string, stream job.Stream, p []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[jobID]
	if !ok {
		return errors.Wrap(job.ErrJobNotFound, jobID)
	}
	if stream == job.Stderr {
		_, _ = rec.stderr.Write(p)
	} else {
		_, _ = rec.stdout.Write(p)
	}
	return nil
}

func (r *MemoryJobRegistry) Done(jobID string) (<-chan struct{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[jobID]
	if !ok {
		return nil, errors.Wrap(job.ErrJobNotFound, jobID)
	}
	return rec.done, nil
}

func (r *MemoryJobRegistry) CountByStatus(status job.Status) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, rec := range r.records {
		if rec.job.Status == status {
			n++
		}
	}
	return n
}

func (r *MemoryJobRegistry) Remove(jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[jobID]; !ok {
		return errors.Wrap(job.ErrJobNotFound, jobID)
	}
	r.removeLocked(jobID)
	return nil
}

func (r *MemoryJobRegistry) Prune(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for _, id := range append([]string(nil), r.order...) {
		rec := r.records[id]
		if !rec.job.IsTerminal() || rec.job.EndedAt == nil {
			continue
		}
		if cutoff.IsZero() || rec.job.EndedAt.Before(cutoff) {
			r.removeLocked(id)
			removed++
		}
	}
	return removed
}

func (r *MemoryJobRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = make(map[string]*record)
	r.order = nil
}

func (r *MemoryJobRegistry) removeLocked(jobID string) {
	delete(r.records, jobID)
	for i, id := range r.order {
		if id == jobID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *MemoryJobRegistry) snapshot(rec *record) job.Job {
	out := rec.job.Clone()
	out.Stdout = rec.stdout.String()
	out.Stderr = rec.stderr.String()
	out.StdoutDropped = rec.stdout.Dropped()
	out.StderrDropped = rec.stderr.Dropped()
	return out
}

func newJobID(seq uint64) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("job_%d_%s", seq, suffix)
}
