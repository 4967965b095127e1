package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"

	"stressor/pkg/common"
)

// StressConfiguration describes one harness run. It is read from a JSON file
// and may be overridden through STRESSOR_* environment variables, so the
// containerized entrypoint can be tuned without command-line arguments.
type StressConfiguration struct {
	Seed int64 `json:"Seed"`

	WorkloadSize    int    `json:"WorkloadSize"`
	ValueDimension  int    `json:"ValueDimension"`
	KeyDistribution string `json:"KeyDistribution"`

	TargetKind string `json:"TargetKind"`
	FailFast   bool   `json:"FailFast"`

	TimeoutSeconds           int `json:"TimeoutSeconds"`
	SamplePeriodMilliseconds int `json:"SamplePeriodMilliseconds"`

	MemoryLimitMib    uint64  `json:"MemoryLimitMib"`
	MaxElapsedSeconds int     `json:"MaxElapsedSeconds"`
	MaxFailureRatio   float64 `json:"MaxFailureRatio"`

	OutputPathPrefix string `json:"OutputPathPrefix"`

	// Fault injection knobs for the built-in target wrappers.
	FailAtIndex              int64 `json:"FailAtIndex"`
	PerItemDelayMicroseconds int   `json:"PerItemDelayMicroseconds"`
}

// ReadConfigurationFile loads, overrides, and defaults a configuration.
// Validation is left to the caller so that bad parameters surface as
// ConfigurationError before any workload memory is allocated.
func ReadConfigurationFile(path string) (StressConfiguration, error) {
	config := StressConfiguration{FailAtIndex: -1}

	byteValue, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("read configuration file: %w", err)
	}

	if err = json.Unmarshal(byteValue, &config); err != nil {
		return config, fmt.Errorf("parse configuration file %s: %w", path, err)
	}

	if err = config.applyEnvironmentOverrides(); err != nil {
		return config, err
	}

	if config.ValueDimension == 0 {
		config.ValueDimension = common.DefaultValueDimension
	}
	if config.KeyDistribution == "" {
		config.KeyDistribution = common.DistributionUniform
	}

	return config, nil
}

func (c *StressConfiguration) applyEnvironmentOverrides() error {
	if err := overrideInt64("STRESSOR_SEED", &c.Seed); err != nil {
		return err
	}
	if err := overrideInt("STRESSOR_WORKLOAD_SIZE", &c.WorkloadSize); err != nil {
		return err
	}
	if err := overrideInt("STRESSOR_TIMEOUT_SECONDS", &c.TimeoutSeconds); err != nil {
		return err
	}
	if err := overrideUint64("STRESSOR_MEMORY_LIMIT_MIB", &c.MemoryLimitMib); err != nil {
		return err
	}
	if err := overrideBool("STRESSOR_FAIL_FAST", &c.FailFast); err != nil {
		return err
	}

	if v, ok := os.LookupEnv("STRESSOR_TARGET"); ok {
		c.TargetKind = v
	}
	if v, ok := os.LookupEnv("STRESSOR_OUTPUT_PREFIX"); ok {
		c.OutputPathPrefix = v
	}

	return nil
}

// Validate checks all parameters that must hold before a run starts.
func (c *StressConfiguration) Validate() error {
	if c.WorkloadSize <= 0 {
		return &common.ConfigurationError{
			Parameter: "WorkloadSize",
			Message:   fmt.Sprintf("must be positive, got %d", c.WorkloadSize),
		}
	}
	if c.ValueDimension <= 0 {
		return &common.ConfigurationError{
			Parameter: "ValueDimension",
			Message:   fmt.Sprintf("must be positive, got %d", c.ValueDimension),
		}
	}
	if c.TimeoutSeconds <= 0 {
		return &common.ConfigurationError{
			Parameter: "TimeoutSeconds",
			Message:   fmt.Sprintf("must be positive, got %d", c.TimeoutSeconds),
		}
	}
	if c.SamplePeriodMilliseconds <= 0 {
		return &common.ConfigurationError{
			Parameter: "SamplePeriodMilliseconds",
			Message:   fmt.Sprintf("must be positive, got %d", c.SamplePeriodMilliseconds),
		}
	}
	if c.MaxFailureRatio < 0 || c.MaxFailureRatio > 1 {
		return &common.ConfigurationError{
			Parameter: "MaxFailureRatio",
			Message:   fmt.Sprintf("must be within [0, 1], got %f", c.MaxFailureRatio),
		}
	}

	switch c.KeyDistribution {
	case common.DistributionUniform, common.DistributionZipfian, common.DistributionSequential:
	default:
		return &common.ConfigurationError{
			Parameter: "KeyDistribution",
			Message:   fmt.Sprintf("unsupported distribution %q", c.KeyDistribution),
		}
	}

	if c.TargetKind == "" {
		return &common.ConfigurationError{
			Parameter: "TargetKind",
			Message:   "must name a target",
		}
	}

	log.Debugf("Configuration validated: %d items, seed %d, target %s",
		c.WorkloadSize, c.Seed, c.TargetKind)

	return nil
}

func overrideInt(name string, dst *int) error {
	v, ok := os.LookupEnv(name)
	if !ok {
		return nil
	}

	parsed, err := strconv.Atoi(v)
	if err != nil {
		return &common.ConfigurationError{Parameter: name, Message: err.Error()}
	}

	*dst = parsed
	return nil
}

func overrideInt64(name string, dst *int64) error {
	v, ok := os.LookupEnv(name)
	if !ok {
		return nil
	}

	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return &common.ConfigurationError{Parameter: name, Message: err.Error()}
	}

	*dst = parsed
	return nil
}

func overrideUint64(name string, dst *uint64) error {
	v, ok := os.LookupEnv(name)
	if !ok {
		return nil
	}

	parsed, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return &common.ConfigurationError{Parameter: name, Message: err.Error()}
	}

	*dst = parsed
	return nil
}

func overrideBool(name string, dst *bool) error {
	v, ok := os.LookupEnv(name)
	if !ok {
		return nil
	}

	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return &common.ConfigurationError{Parameter: name, Message: err.Error()}
	}

	*dst = parsed
	return nil
}
