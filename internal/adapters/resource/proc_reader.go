package resource

import (
	"path/filepath"
	"runtime"
	"time"

	"dev.rubentxu.background-orchestrator/internal/core/domain/resource"
	"dev.rubentxu.background-orchestrator/internal/core/ports"
	"github.com/c9s/goprocinfo/linux"
	"github.com/pkg/errors"
)

// ProcReader lee estadísticas del host desde procfs.
type ProcReader struct {
	root string
	now  func() time.Time
}

var _ ports.HostStatsReader = (*ProcReader)(nil)

// NewProcReader reads from root, normally "/proc".
func NewProcReader(root string) *ProcReader {
	if root == "" {
		root = "/proc"
	}
	return &ProcReader{root: root, now: time.Now}
}

func (r *ProcReader) Read() (resource.HostStats, error) {
	stats := resource.HostStats{
		CPUCores: runtime.NumCPU(),
		ReadAt:   r.now(),
	}

	load, err := linux.ReadLoadAvg(filepath.Join(r.root, "loadavg"))
	if err != nil {
		return stats, errors.Wrap(err, "failed to read load average")
	}
	stats.Load = resource.LoadStats{
		Last1Min:  load.Last1Min,
		Last5Min:  load.Last5Min,
		Last15Min: load.Last15Min,
	}

	mem, err := linux.ReadMemInfo(filepath.Join(r.root, "meminfo"))
	if err != nil {
		return stats, errors.Wrap(err, "failed to read meminfo")
	}
	stats.Memory = resource.HostMemoryStats{
		TotalKb:     mem.MemTotal,
		AvailableKb: mem.MemAvailable,
	}

	status, err := linux.ReadProcessStatus(filepath.Join(r.root, "self", "status"))
	if err != nil {
		return stats, errors.Wrap(err, "failed to read process status")
	}
	stats.ProcessRSSKb = status.VmRSS
	stats.Threads = status.Threads

	return stats, nil
}
