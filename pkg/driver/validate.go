package driver

import (
	"fmt"
	"time"

	"stressor/pkg/common"
	"stressor/pkg/metric"
)

// Thresholds are the acceptance bounds a finished run is judged against.
// Zero values disable the corresponding check.
type Thresholds struct {
	MaxElapsed      time.Duration
	MaxPeakRSSBytes uint64
	MaxFailureRatio float64
}

// Verdict is the harness's final judgement of one run.
type Verdict struct {
	Pass   bool
	Kind   common.FailureKind
	Reason string
}

func (v Verdict) String() string {
	if v.Pass {
		return "PASS"
	}

	return fmt.Sprintf("FAIL(%s): %s", v.Kind, v.Reason)
}

// Validate compares a run result against the thresholds. A run that already
// carries a failure outcome fails with that outcome regardless of thresholds.
func Validate(result *metric.RunResult, thresholds Thresholds) Verdict {
	if result.Failed() {
		reason := result.FirstFailureError
		if reason == "" {
			reason = fmt.Sprintf("run ended with outcome %s after %d of %d items",
				result.Outcome, result.ItemsApplied, result.WorkloadSize)
		}

		return Verdict{Kind: result.Outcome, Reason: reason}
	}

	if result.CheckError != "" {
		return Verdict{
			Kind:   common.FailureTargetOperation,
			Reason: fmt.Sprintf("target correctness check failed: %s", result.CheckError),
		}
	}

	if thresholds.MaxElapsed > 0 && result.Elapsed() > thresholds.MaxElapsed {
		return Verdict{
			Kind: common.FailureTimeout,
			Reason: fmt.Sprintf("elapsed %v exceeds threshold %v",
				result.Elapsed(), thresholds.MaxElapsed),
		}
	}

	if thresholds.MaxPeakRSSBytes > 0 && result.PeakRSSBytes > thresholds.MaxPeakRSSBytes {
		return Verdict{
			Kind: common.FailureResourceExhausted,
			Reason: fmt.Sprintf("peak RSS %s exceeds threshold %s",
				common.FormatBytes(result.PeakRSSBytes),
				common.FormatBytes(thresholds.MaxPeakRSSBytes)),
		}
	}

	if result.FailureRatio() > thresholds.MaxFailureRatio {
		return Verdict{
			Kind: common.FailureTargetOperation,
			Reason: fmt.Sprintf("failure ratio %.4f exceeds threshold %.4f (%d of %d items)",
				result.FailureRatio(), thresholds.MaxFailureRatio,
				result.FailureCount, result.ItemsApplied),
		}
	}

	return Verdict{Pass: true, Kind: common.FailureNone}
}
