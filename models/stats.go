package models

import (
	"os"
	"sync/atomic"

	"github.com/shirou/gopsutil/v4/process"
)

// RunStats holds run-scoped counters. It is reset per invocation by
// constructing a fresh value and is safe for concurrent use.
type RunStats struct {
	ItemsProcessed   atomic.Int64
	RecordsExtracted atomic.Int64
	RecordsSkipped   atomic.Int64 // records dropped for a missing identity key
	RecordsDuplicate atomic.Int64
	peakRSS          atomic.Uint64
}

// NewRunStats creates a zeroed counter set for one run.
func NewRunStats() *RunStats {
	return &RunStats{}
}

// StatsSnapshot is a read-only view of RunStats, taken after the run ends.
type StatsSnapshot struct {
	ItemsProcessed   int64
	RecordsExtracted int64
	RecordsSkipped   int64
	RecordsDuplicate int64
	PeakRSSBytes     uint64
}

// SampleMemory reads the process RSS and folds it into the peak. Sampling
// failures are ignored; the counter is operational visibility only.
func (s *RunStats) SampleMemory() {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return
	}
	mem, err := proc.MemoryInfo()
	if err != nil || mem == nil {
		return
	}
	for {
		prev := s.peakRSS.Load()
		if mem.RSS <= prev || s.peakRSS.CompareAndSwap(prev, mem.RSS) {
			return
		}
	}
}

// Snapshot returns the current counter values.
func (s *RunStats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		ItemsProcessed:   s.ItemsProcessed.Load(),
		RecordsExtracted: s.RecordsExtracted.Load(),
		RecordsSkipped:   s.RecordsSkipped.Load(),
		RecordsDuplicate: s.RecordsDuplicate.Load(),
		PeakRSSBytes:     s.peakRSS.Load(),
	}
}
