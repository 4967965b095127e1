package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"stressor/pkg/common"
	"stressor/pkg/metric"
	"stressor/pkg/target"
	"stressor/pkg/telemetry"
)

type DriverConfiguration struct {
	FailFast bool

	// Timeout bounds the apply phase; zero disables the watchdog.
	Timeout time.Duration

	SamplePeriod     time.Duration
	MemoryLimitBytes uint64

	Meter    telemetry.Meter
	Exporter *metric.Exporter
}

// Driver applies a workload to a target sequentially, item by item, in
// insertion order, while a sampler observes resource usage concurrently.
type Driver struct {
	Configuration *DriverConfiguration
}

func NewDriver(driverConfig *DriverConfiguration) *Driver {
	return &Driver{Configuration: driverConfig}
}

// RunStress drives the whole workload against the target and always returns
// a RunResult; the error return covers only preconditions that would make
// the run meaningless (they are configuration errors, not run failures).
func (d *Driver) RunStress(ctx context.Context, workload *common.Workload, tgt target.Target) (*metric.RunResult, error) {
	if workload == nil || tgt == nil {
		return nil, &common.ConfigurationError{
			Parameter: "workload/target",
			Message:   "both a workload and a target are required",
		}
	}
	if workload.Size() != workload.DeclaredSize {
		return nil, &common.ConfigurationError{
			Parameter: "WorkloadSize",
			Message: fmt.Sprintf("workload truncated: declared %d, materialized %d",
				workload.DeclaredSize, workload.Size()),
		}
	}

	result := &metric.RunResult{
		RunID:             uuid.New().String(),
		TargetName:        tgt.Name(),
		WorkloadSize:      workload.DeclaredSize,
		Seed:              workload.Seed,
		FirstFailureIndex: -1,
		Outcome:           common.FailureNone,
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	if d.Configuration.Timeout > 0 {
		var cancelWatchdog context.CancelFunc
		runCtx, cancelWatchdog = context.WithTimeoutCause(runCtx, d.Configuration.Timeout, common.ErrTimeout)
		defer cancelWatchdog()
	}

	sampler := telemetry.NewSampler(
		d.Configuration.Meter,
		d.Configuration.SamplePeriod,
		d.Configuration.MemoryLimitBytes,
		cancel,
	)
	sampler.Start()

	histogram := metric.NewLatencyHistogram()

	log.Infof("Starting stress run %s: %d items against target %s",
		result.RunID, workload.DeclaredSize, tgt.Name())

	applyStart := time.Now()
	d.applyLoop(runCtx, workload, tgt, histogram, result)
	result.ApplyMicro = time.Since(applyStart).Microseconds()

	finalizeStart := time.Now()
	d.finalize(tgt, sampler, histogram, result)
	result.FinalizeMicro = time.Since(finalizeStart).Microseconds()

	result.ElapsedMicro = result.GenerateMicro + result.ApplyMicro + result.FinalizeMicro

	log.Infof("Stress run %s finished: outcome=%s applied=%d failures=%d elapsed=%v peak_rss=%s",
		result.RunID, result.Outcome, result.ItemsApplied, result.FailureCount,
		result.Elapsed(), common.FormatBytes(result.PeakRSSBytes))

	return result, nil
}

func (d *Driver) applyLoop(ctx context.Context, workload *common.Workload, tgt target.Target,
	histogram *metric.LatencyHistogram, result *metric.RunResult) {

	for i := range workload.Items {
		if ctx.Err() != nil {
			result.Outcome = outcomeForCause(context.Cause(ctx))
			log.Warnf("Run cancelled after %d items: %v", result.ItemsApplied, context.Cause(ctx))

			return
		}

		item := &workload.Items[i]

		opStart := time.Now()
		err := applyOne(tgt, item)
		histogram.Record(time.Since(opStart))

		result.ItemsApplied++

		if err == nil {
			continue
		}

		result.FailureCount++
		if result.FirstFailureIndex < 0 {
			result.FirstFailureIndex = item.Index
			result.FirstFailureError = err.Error()
		}
		if d.Configuration.Exporter != nil {
			d.Configuration.Exporter.ReportFailure(metric.FailureRecord{
				Index: item.Index,
				Error: err.Error(),
			})
		}

		if d.Configuration.FailFast {
			result.Outcome = common.FailureTargetOperation
			log.Warnf("Fail-fast: target rejected item %d: %v", item.Index, err)

			return
		}
	}
}

// applyOne contains target panics so a misbehaving component cannot crash
// the harness out of its exit-code contract.
func applyOne(tgt target.Target, item *common.WorkloadItem) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("target panicked on item %d: %v", item.Index, r)
		}
	}()

	return tgt.Apply(item)
}

func (d *Driver) finalize(tgt target.Target, sampler *telemetry.Sampler,
	histogram *metric.LatencyHistogram, result *metric.RunResult) {

	samples := sampler.Stop()
	result.Samples = samples
	if d.Configuration.Exporter != nil {
		d.Configuration.Exporter.ReportResources(samples)
	}

	result.PeakRSSBytes = sampler.PeakRSS()
	if kernelPeak := telemetry.PeakRSSBytes(); kernelPeak > result.PeakRSSBytes {
		result.PeakRSSBytes = kernelPeak
	}

	result.AvgCPUPercent, _ = metric.SummarizeCPU(samples)

	result.LatencyP50Micro = histogram.Quantile(50)
	result.LatencyP95Micro = histogram.Quantile(95)
	result.LatencyP99Micro = histogram.Quantile(99)
	result.LatencyMaxMicro = histogram.Max()

	// The correctness oracle is only meaningful over a complete run.
	if result.Outcome == common.FailureNone && result.ItemsApplied == result.WorkloadSize {
		if err := tgt.Check(); err != nil {
			result.CheckError = err.Error()
		}
	}
}

func outcomeForCause(cause error) common.FailureKind {
	switch {
	case errors.Is(cause, common.ErrResourceExhausted):
		return common.FailureResourceExhausted
	case errors.Is(cause, common.ErrTimeout), errors.Is(cause, context.DeadlineExceeded):
		return common.FailureTimeout
	default:
		return common.FailureInterrupted
	}
}
