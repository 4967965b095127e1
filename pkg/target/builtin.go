package target

import (
	"fmt"
	"time"

	"stressor/pkg/common"
)

// Sink accepts every item and keeps nothing. It is the cheapest possible
// target, useful for measuring the harness's own overhead.
type Sink struct {
	applied int64
}

func NewSink() *Sink {
	return &Sink{}
}

func (s *Sink) Name() string { return KindSink }

func (s *Sink) Apply(_ *common.WorkloadItem) error {
	s.applied++
	return nil
}

func (s *Sink) Check() error { return nil }

// KVStore inserts each item into an in-memory map and immediately reads it
// back, exercising an insert/lookup pattern with a verifiable end state.
type KVStore struct {
	store   map[uint64][]float64
	applied int64
	lastKey uint64
}

func NewKVStore() *KVStore {
	return &KVStore{store: make(map[uint64][]float64)}
}

func (t *KVStore) Name() string { return KindKVStore }

func (t *KVStore) Apply(item *common.WorkloadItem) error {
	t.store[item.Key] = item.Values

	stored, ok := t.store[item.Key]
	if !ok {
		return fmt.Errorf("lookup after insert missed key %d at index %d", item.Key, item.Index)
	}
	if len(stored) != len(item.Values) {
		return fmt.Errorf("value truncated for key %d at index %d", item.Key, item.Index)
	}

	t.applied++
	t.lastKey = item.Key

	return nil
}

func (t *KVStore) Check() error {
	if t.applied == 0 {
		return nil
	}
	if len(t.store) == 0 {
		return fmt.Errorf("store empty after %d applied items", t.applied)
	}
	if _, ok := t.store[t.lastKey]; !ok {
		return fmt.Errorf("last inserted key %d missing from store", t.lastKey)
	}

	return nil
}

// Faulty wraps a target and rejects the item at a fixed index.
type Faulty struct {
	inner  Target
	failAt int64
}

func NewFaulty(inner Target, failAt int64) *Faulty {
	return &Faulty{inner: inner, failAt: failAt}
}

func (t *Faulty) Name() string { return t.inner.Name() + "+faulty" }

func (t *Faulty) Apply(item *common.WorkloadItem) error {
	if item.Index == t.failAt {
		return fmt.Errorf("injected fault at index %d", item.Index)
	}

	return t.inner.Apply(item)
}

func (t *Faulty) Check() error { return t.inner.Check() }

// Slow wraps a target and delays every operation, used to provoke the run
// watchdog in tests and soak configurations.
type Slow struct {
	inner Target
	delay time.Duration
}

func NewSlow(inner Target, delayMicroseconds int) *Slow {
	return &Slow{
		inner: inner,
		delay: time.Duration(delayMicroseconds) * time.Microsecond,
	}
}

func (t *Slow) Name() string { return t.inner.Name() + "+slow" }

func (t *Slow) Apply(item *common.WorkloadItem) error {
	time.Sleep(t.delay)
	return t.inner.Apply(item)
}

func (t *Slow) Check() error { return t.inner.Check() }
