package usecase

import (
	"testing"

	"dev.rubentxu.background-orchestrator/internal/adapters/store"
	"dev.rubentxu.background-orchestrator/internal/core/domain/job"
	"github.com/stretchr/testify/require"
)

func TestSampleCountsRunningJobs(t *testing.T) {
	reg := store.NewMemoryJobRegistry(0)
	s := NewResourceSampler(reg)
	require.Equal(t, 0, s.Sample().ActiveJobs)

	a := reg.Create("store", nil, nil)
	b := reg.Create("sync", nil, nil)
	reg.Create("deploy", nil, nil)
	_, err := reg.Transition(a.ID, job.Running, job.Update{PID: 10})
	require.NoError(t, err)
	_, err = reg.Transition(b.ID, job.Running, job.Update{PID: 11})
	require.NoError(t, err)

	usage := s.Sample()
	require.Equal(t, 2, usage.ActiveJobs)
	require.NotZero(t, usage.MemoryBytes)
	require.GreaterOrEqual(t, usage.PeakMemoryBytes, usage.MemoryBytes)
	require.Positive(t, usage.Goroutines)
}

func TestPeakNeverDecreases(t *testing.T) {
	s := NewResourceSampler(store.NewMemoryJobRegistry(0))
	require.Equal(t, uint64(100), s.recordPeak(100))
	require.Equal(t, uint64(100), s.recordPeak(40))
	require.Equal(t, uint64(250), s.recordPeak(250))
}
