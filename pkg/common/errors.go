package common

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a stress run did not pass.
type FailureKind string

const (
	FailureNone              FailureKind = "none"
	FailureTargetOperation   FailureKind = "target_operation"
	FailureResourceExhausted FailureKind = "resource_exhausted"
	FailureTimeout           FailureKind = "timeout"
	FailureInterrupted       FailureKind = "interrupted"
)

// ErrResourceExhausted is used as a context cancellation cause when the
// process crosses its configured memory limit.
var ErrResourceExhausted = errors.New("process memory limit exceeded")

// ErrTimeout is used as a context cancellation cause when the run watchdog
// fires.
var ErrTimeout = errors.New("run exceeded its time budget")

// ConfigurationError reports an invalid parameter detected before a run
// starts. It is the only error kind that surfaces to the caller instead of
// being folded into a run result.
type ConfigurationError struct {
	Parameter string
	Message   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration parameter %q: %s", e.Parameter, e.Message)
}
