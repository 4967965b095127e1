// Package telemetry wraps process-level resource counters behind a single
// sampling interface so the rest of the harness never touches the global
// counters directly and tests can substitute a deterministic fake.
package telemetry

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v4/process"
	"golang.org/x/sys/unix"
)

// Reading is one point-in-time view of the current process.
type Reading struct {
	RSSBytes uint64
	// CPUTime is cumulative user+system CPU seconds; utilization is
	// derived from deltas between consecutive readings.
	CPUTime float64
}

// Meter produces readings for the current process. Implementations must be
// cheap enough to call at the sampling cadence without distorting the
// measured workload.
type Meter interface {
	Read() (Reading, error)
}

// ProcessMeter reads the live process counters.
type ProcessMeter struct {
	proc *process.Process
}

func NewProcessMeter() (*ProcessMeter, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("attach to own process: %w", err)
	}

	return &ProcessMeter{proc: proc}, nil
}

func (m *ProcessMeter) Read() (Reading, error) {
	memory, err := m.proc.MemoryInfo()
	if err != nil {
		return Reading{}, fmt.Errorf("read memory info: %w", err)
	}

	times, err := m.proc.Times()
	if err != nil {
		return Reading{}, fmt.Errorf("read cpu times: %w", err)
	}

	return Reading{
		RSSBytes: memory.RSS,
		CPUTime:  times.User + times.System,
	}, nil
}

// PeakRSSBytes reads the kernel-tracked high-water mark of the resident set.
// Getrusage reports KiB on Linux.
func PeakRSSBytes() uint64 {
	var usage unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &usage); err != nil {
		return 0
	}

	return uint64(usage.Maxrss) * 1024
}
