package resource

import (
	"runtime"
	"time"
)

// Usage is a cheap snapshot of the orchestrating process and its job table.
type Usage struct {
	MemoryBytes     uint64    `json:"memory_bytes"`
	SysBytes        uint64    `json:"sys_bytes"`
	PeakMemoryBytes uint64    `json:"peak_memory_bytes"`
	ActiveJobs      int       `json:"active_jobs"`
	Goroutines      int       `json:"goroutines"`
	SampledAt       time.Time `json:"sampled_at"`
}

// MemoryStats representa las estadísticas de memoria del propio proceso
type MemoryStats struct {
	HeapAllocBytes uint64 `json:"heap_alloc_bytes"`
	SysBytes       uint64 `json:"sys_bytes"`
}

// NewMemoryStats lee los contadores del runtime; no hace I/O.
func NewMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return MemoryStats{
		HeapAllocBytes: m.HeapAlloc,
		SysBytes:       m.Sys,
	}
}

// LoadStats is the host load average.
type LoadStats struct {
	Last1Min  float64 `json:"last_1_min"`
	Last5Min  float64 `json:"last_5_min"`
	Last15Min float64 `json:"last_15_min"`
}

// HostMemoryStats representa la memoria del host en KB
type HostMemoryStats struct {
	TotalKb     uint64 `json:"total_kb"`
	AvailableKb uint64 `json:"available_kb"`
}

// HostStats are host-level figures read from the operating system.
type HostStats struct {
	Load         LoadStats       `json:"load"`
	Memory       HostMemoryStats `json:"memory"`
	ProcessRSSKb uint64          `json:"process_rss_kb"`
	Threads      uint64          `json:"threads"`
	CPUCores     int             `json:"cpu_cores"`
	ReadAt       time.Time       `json:"read_at"`
}
