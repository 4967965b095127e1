// Package target defines the capability interface through which the harness
// drives the component under test, plus built-in reference targets used by
// the shipped configurations and the test suite.
package target

import (
	"fmt"

	"stressor/pkg/common"
	"stressor/pkg/config"
)

// Target is the opaque component under test. Apply consumes one workload
// item; Check is an optional correctness oracle invoked after a complete run
// and may return nil unconditionally.
type Target interface {
	Name() string
	Apply(item *common.WorkloadItem) error
	Check() error
}

const (
	KindSink    = "sink"
	KindKVStore = "kvstore"
)

// ForConfiguration builds the configured target, wrapping it with fault
// injection when the corresponding knobs are set.
func ForConfiguration(cfg *config.StressConfiguration) (Target, error) {
	var tgt Target

	switch cfg.TargetKind {
	case KindSink:
		tgt = NewSink()
	case KindKVStore:
		tgt = NewKVStore()
	default:
		return nil, &common.ConfigurationError{
			Parameter: "TargetKind",
			Message:   fmt.Sprintf("unknown target %q", cfg.TargetKind),
		}
	}

	if cfg.FailAtIndex >= 0 {
		tgt = NewFaulty(tgt, cfg.FailAtIndex)
	}
	if cfg.PerItemDelayMicroseconds > 0 {
		tgt = NewSlow(tgt, cfg.PerItemDelayMicroseconds)
	}

	return tgt, nil
}
