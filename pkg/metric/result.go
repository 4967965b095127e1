package metric

import (
	"time"

	"stressor/pkg/common"
)

// RunResult aggregates one harness execution. It is the run's sole externally
// visible output: every abnormal termination short of a kernel OOM kill still
// produces one, with whatever metrics were collected up to that point.
type RunResult struct {
	RunID      string `json:"run_id"`
	TargetName string `json:"target"`

	WorkloadSize int   `json:"workload_size"`
	Seed         int64 `json:"seed"`

	ItemsApplied      int    `json:"items_applied"`
	FailureCount      int    `json:"failure_count"`
	FirstFailureIndex int64  `json:"first_failure_index"`
	FirstFailureError string `json:"first_failure_error,omitempty"`
	CheckError        string `json:"check_error,omitempty"`

	Outcome common.FailureKind `json:"outcome"`

	GenerateMicro int64 `json:"generate_micro"`
	ApplyMicro    int64 `json:"apply_micro"`
	FinalizeMicro int64 `json:"finalize_micro"`
	ElapsedMicro  int64 `json:"elapsed_micro"`

	PeakRSSBytes  uint64  `json:"peak_rss_bytes"`
	AvgCPUPercent float64 `json:"avg_cpu_percent"`

	LatencyP50Micro int64 `json:"latency_p50_micro"`
	LatencyP95Micro int64 `json:"latency_p95_micro"`
	LatencyP99Micro int64 `json:"latency_p99_micro"`
	LatencyMaxMicro int64 `json:"latency_max_micro"`

	Samples []ResourceRecord `json:"-"`
}

func (r *RunResult) Failed() bool {
	return r.Outcome != common.FailureNone
}

func (r *RunResult) Elapsed() time.Duration {
	return time.Duration(r.ElapsedMicro) * time.Microsecond
}

// FailureRatio reports the fraction of applied items the target rejected.
func (r *RunResult) FailureRatio() float64 {
	if r.ItemsApplied == 0 {
		return 0
	}

	return float64(r.FailureCount) / float64(r.ItemsApplied)
}
