package usecase

import (
	"runtime"
	"sync/atomic"
	"time"

	"dev.rubentxu.background-orchestrator/internal/core/domain/job"
	"dev.rubentxu.background-orchestrator/internal/core/domain/resource"
	"dev.rubentxu.background-orchestrator/internal/core/ports"
)

// ResourceSampler reports the orchestrator's own memory and its running job
// count. It reads runtime counters only and performs no I/O.
type ResourceSampler struct {
	registry ports.JobRegistry
	peak     atomic.Uint64
	now      func() time.Time
}

func NewResourceSampler(registry ports.JobRegistry) *ResourceSampler {
	return &ResourceSampler{registry: registry, now: time.Now}
}

func (s *ResourceSampler) Sample() resource.Usage {
	mem := resource.NewMemoryStats()
	peak := s.recordPeak(mem.HeapAllocBytes)

	return resource.Usage{
		MemoryBytes:     mem.HeapAllocBytes,
		SysBytes:        mem.SysBytes,
		PeakMemoryBytes: peak,
		ActiveJobs:      s.registry.CountByStatus(job.Running),
		Goroutines:      runtime.NumGoroutine(),
		SampledAt:       s.now(),
	}
}

func (s *ResourceSampler) recordPeak(v uint64) uint64 {
	for {
		cur := s.peak.Load()
		if v <= cur {
			return cur
		}
		if s.peak.CompareAndSwap(cur, v) {
			return v
		}
	}
}
