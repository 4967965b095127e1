package driver

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stressor/pkg/common"
	"stressor/pkg/generator"
	"stressor/pkg/metric"
	"stressor/pkg/target"
	"stressor/pkg/telemetry"
)

// fakeMeter keeps resource readings constant so driver tests never depend on
// the host's actual memory usage.
type fakeMeter struct {
	rss uint64
	cpu float64
}

func (m *fakeMeter) Read() (telemetry.Reading, error) {
	m.cpu += 0.001
	return telemetry.Reading{RSSBytes: m.rss, CPUTime: m.cpu}, nil
}

// countingTarget records exactly which indices were applied.
type countingTarget struct {
	applied []int64
	failAt  int64
	panicAt int64
}

func newCountingTarget() *countingTarget {
	return &countingTarget{failAt: -1, panicAt: -1}
}

func (t *countingTarget) Name() string { return "counting" }

func (t *countingTarget) Apply(item *common.WorkloadItem) error {
	if item.Index == t.panicAt {
		panic(fmt.Sprintf("boom at %d", item.Index))
	}

	t.applied = append(t.applied, item.Index)

	if item.Index == t.failAt {
		return fmt.Errorf("injected fault at index %d", item.Index)
	}

	return nil
}

func (t *countingTarget) Check() error { return nil }

func testDriver(failFast bool, timeout time.Duration) *Driver {
	return NewDriver(&DriverConfiguration{
		FailFast:     failFast,
		Timeout:      timeout,
		SamplePeriod: 10 * time.Millisecond,
		Meter:        &fakeMeter{rss: 32 * common.OneMib},
	})
}

func generate(t *testing.T, size int) *common.Workload {
	t.Helper()

	workload, err := generator.NewWorkloadGenerator(42, 2, common.DistributionUniform).Generate(size)
	require.NoError(t, err)

	return workload
}

func TestRunStressAllItemsSucceed(t *testing.T) {
	workload := generate(t, 10000)
	tgt := newCountingTarget()

	result, err := testDriver(true, time.Minute).RunStress(context.Background(), workload, tgt)
	require.NoError(t, err)

	assert.Equal(t, common.FailureNone, result.Outcome)
	assert.Equal(t, 10000, result.ItemsApplied)
	assert.Zero(t, result.FailureCount)
	assert.Equal(t, int64(-1), result.FirstFailureIndex)
	assert.Len(t, tgt.applied, 10000)
	assert.NotEmpty(t, result.RunID)
	assert.Greater(t, result.LatencyMaxMicro, int64(0))

	verdict := Validate(result, Thresholds{
		MaxElapsed:      time.Minute,
		MaxPeakRSSBytes: 2048 * common.OneMib,
	})
	assert.True(t, verdict.Pass)
}

func TestRunStressFailFastHaltsAtFailingIndex(t *testing.T) {
	workload := generate(t, 1000)
	tgt := newCountingTarget()
	tgt.failAt = 500

	result, err := testDriver(true, time.Minute).RunStress(context.Background(), workload, tgt)
	require.NoError(t, err)

	assert.Equal(t, common.FailureTargetOperation, result.Outcome)
	assert.Equal(t, int64(500), result.FirstFailureIndex)
	assert.Contains(t, result.FirstFailureError, "index 500")

	// Items past the failing index are never applied.
	assert.Equal(t, 501, result.ItemsApplied)
	assert.Equal(t, int64(500), tgt.applied[len(tgt.applied)-1])

	verdict := Validate(result, Thresholds{})
	assert.False(t, verdict.Pass)
	assert.Equal(t, common.FailureTargetOperation, verdict.Kind)
}

func TestRunStressFailSoftAccumulates(t *testing.T) {
	workload := generate(t, 1000)
	tgt := newCountingTarget()
	tgt.failAt = 500

	exporter := metric.NewExporter()
	stressDriver := NewDriver(&DriverConfiguration{
		FailFast:     false,
		Timeout:      time.Minute,
		SamplePeriod: 10 * time.Millisecond,
		Meter:        &fakeMeter{rss: common.OneMib},
		Exporter:     exporter,
	})

	result, err := stressDriver.RunStress(context.Background(), workload, tgt)
	require.NoError(t, err)

	assert.Equal(t, common.FailureNone, result.Outcome)
	assert.Equal(t, 1000, result.ItemsApplied)
	assert.Equal(t, 1, result.FailureCount)
	assert.Equal(t, int64(500), result.FirstFailureIndex)
	assert.Equal(t, 1, exporter.GetFailureRecordLen())

	// The aggregate failure count fails the run once the ratio threshold
	// is zero.
	verdict := Validate(result, Thresholds{MaxFailureRatio: 0})
	assert.False(t, verdict.Pass)

	verdict = Validate(result, Thresholds{MaxFailureRatio: 0.01})
	assert.True(t, verdict.Pass)
}

func TestRunStressTimeout(t *testing.T) {
	workload := generate(t, 1000000)
	tgt := target.NewSlow(newCountingTarget(), 100)

	timeout := 150 * time.Millisecond
	start := time.Now()
	result, err := testDriver(true, timeout).RunStress(context.Background(), workload, tgt)
	elapsed := time.Since(start)
	require.NoError(t, err)

	assert.Equal(t, common.FailureTimeout, result.Outcome)
	assert.Less(t, result.ItemsApplied, 1000000)
	assert.Greater(t, result.ItemsApplied, 0)

	// The run stops near the deadline, not after all N items.
	assert.Less(t, elapsed, 5*time.Second)
	assert.GreaterOrEqual(t, elapsed, timeout)

	// Partial metrics are still reported.
	assert.NotEmpty(t, result.Samples)
	assert.Greater(t, result.LatencyMaxMicro, int64(0))
}

func TestRunStressMemoryLimitTrips(t *testing.T) {
	workload := generate(t, 1000000)
	tgt := target.NewSlow(newCountingTarget(), 100)

	stressDriver := NewDriver(&DriverConfiguration{
		FailFast:         true,
		Timeout:          time.Minute,
		SamplePeriod:     5 * time.Millisecond,
		MemoryLimitBytes: 100 * common.OneMib,
		Meter:            &fakeMeter{rss: 500 * common.OneMib},
	})

	result, err := stressDriver.RunStress(context.Background(), workload, tgt)
	require.NoError(t, err)

	assert.Equal(t, common.FailureResourceExhausted, result.Outcome)
	assert.Less(t, result.ItemsApplied, 1000000)
	assert.GreaterOrEqual(t, result.PeakRSSBytes, uint64(500*common.OneMib))
}

func TestRunStressExternalInterrupt(t *testing.T) {
	workload := generate(t, 100)
	tgt := newCountingTarget()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := testDriver(true, time.Minute).RunStress(ctx, workload, tgt)
	require.NoError(t, err)

	assert.Equal(t, common.FailureInterrupted, result.Outcome)
	assert.Zero(t, result.ItemsApplied)
}

func TestRunStressContainsTargetPanic(t *testing.T) {
	workload := generate(t, 100)
	tgt := newCountingTarget()
	tgt.panicAt = 50

	result, err := testDriver(true, time.Minute).RunStress(context.Background(), workload, tgt)
	require.NoError(t, err)

	assert.Equal(t, common.FailureTargetOperation, result.Outcome)
	assert.Equal(t, int64(50), result.FirstFailureIndex)
	assert.Contains(t, result.FirstFailureError, "panicked")
}

func TestRunStressRejectsTruncatedWorkload(t *testing.T) {
	workload := generate(t, 100)
	workload.Items = workload.Items[:50]

	_, err := testDriver(true, time.Minute).RunStress(context.Background(), workload, newCountingTarget())

	var confErr *common.ConfigurationError
	assert.ErrorAs(t, err, &confErr)
}

func TestRunStressRejectsNilInputs(t *testing.T) {
	_, err := testDriver(true, time.Minute).RunStress(context.Background(), nil, newCountingTarget())

	var confErr *common.ConfigurationError
	assert.ErrorAs(t, err, &confErr)
}
