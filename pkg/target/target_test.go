package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stressor/pkg/common"
	"stressor/pkg/config"
)

func item(index int64, key uint64) *common.WorkloadItem {
	return &common.WorkloadItem{Index: index, Key: key, Values: []float64{0.1, 0.2}}
}

func TestSinkAcceptsEverything(t *testing.T) {
	sink := NewSink()

	for i := int64(0); i < 100; i++ {
		assert.NoError(t, sink.Apply(item(i, uint64(i))))
	}

	assert.NoError(t, sink.Check())
}

func TestKVStoreInsertLookup(t *testing.T) {
	store := NewKVStore()

	require.NoError(t, store.Apply(item(0, 7)))
	require.NoError(t, store.Apply(item(1, 7))) // overwrite is fine
	require.NoError(t, store.Apply(item(2, 8)))

	assert.NoError(t, store.Check())
}

func TestKVStoreCheckOnEmptyRun(t *testing.T) {
	assert.NoError(t, NewKVStore().Check())
}

func TestFaultyFailsOnlyAtConfiguredIndex(t *testing.T) {
	faulty := NewFaulty(NewSink(), 5)

	for i := int64(0); i < 10; i++ {
		err := faulty.Apply(item(i, uint64(i)))
		if i == 5 {
			assert.Error(t, err)
		} else {
			assert.NoError(t, err)
		}
	}

	assert.NoError(t, faulty.Check())
	assert.Equal(t, "sink+faulty", faulty.Name())
}

func TestSlowDelegates(t *testing.T) {
	slow := NewSlow(NewKVStore(), 1)

	require.NoError(t, slow.Apply(item(0, 1)))
	assert.NoError(t, slow.Check())
	assert.Equal(t, "kvstore+slow", slow.Name())
}

func TestForConfiguration(t *testing.T) {
	tgt, err := ForConfiguration(&config.StressConfiguration{
		TargetKind:  KindSink,
		FailAtIndex: -1,
	})
	require.NoError(t, err)
	assert.Equal(t, KindSink, tgt.Name())

	tgt, err = ForConfiguration(&config.StressConfiguration{
		TargetKind:  KindKVStore,
		FailAtIndex: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, "kvstore+faulty", tgt.Name())
	assert.Error(t, tgt.Apply(item(3, 3)))
}

func TestForConfigurationUnknownTarget(t *testing.T) {
	_, err := ForConfiguration(&config.StressConfiguration{
		TargetKind:  "warp-drive",
		FailAtIndex: -1,
	})

	var confErr *common.ConfigurationError
	assert.ErrorAs(t, err, &confErr)
}
