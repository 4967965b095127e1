package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"stressor/pkg/common"
	"stressor/pkg/config"
	"stressor/pkg/driver"
	"stressor/pkg/generator"
	"stressor/pkg/metric"
	"stressor/pkg/target"
	"stressor/pkg/telemetry"
)

var (
	configPath = flag.String("config", "cmd/config_stress_1m.json", "Path to stress harness configuration file")
	verbosity  = flag.String("verbosity", "info", "Logging verbosity - choose from [info, debug, trace]")
)

func init() {
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{
		TimestampFormat: time.StampMilli,
		FullTimestamp:   true,
	})
	log.SetOutput(os.Stdout)

	switch *verbosity {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "trace":
		log.SetLevel(log.TraceLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
}

func main() {
	cfg, err := config.ReadConfigurationFile(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if err = cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	tgt, err := target.ForConfiguration(&cfg)
	if err != nil {
		log.Fatal(err)
	}

	meter, err := telemetry.NewProcessMeter()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infof("Generating workload: %d items, seed %d, %s keys",
		cfg.WorkloadSize, cfg.Seed, cfg.KeyDistribution)

	generateStart := time.Now()
	workloadGenerator := generator.NewWorkloadGenerator(cfg.Seed, cfg.ValueDimension, cfg.KeyDistribution)
	workload, err := workloadGenerator.Generate(cfg.WorkloadSize)
	if err != nil {
		log.Fatal(err)
	}
	generateMicro := time.Since(generateStart).Microseconds()

	exporter := metric.NewExporter()

	stressDriver := driver.NewDriver(&driver.DriverConfiguration{
		FailFast:         cfg.FailFast,
		Timeout:          time.Duration(cfg.TimeoutSeconds) * time.Second,
		SamplePeriod:     time.Duration(cfg.SamplePeriodMilliseconds) * time.Millisecond,
		MemoryLimitBytes: common.Mib2b(cfg.MemoryLimitMib),
		Meter:            meter,
		Exporter:         exporter,
	})

	result, err := stressDriver.RunStress(ctx, workload, tgt)
	if err != nil {
		log.Fatal(err)
	}

	// Workload buffers are no longer needed once metrics are finalized.
	workload.Items = nil

	result.GenerateMicro = generateMicro
	result.ElapsedMicro += generateMicro

	if cfg.OutputPathPrefix != "" {
		if err = exporter.FinishAndSave(result, cfg.OutputPathPrefix); err != nil {
			log.Errorf("Failed to export metrics: %v", err)
		}
	}

	verdict := driver.Validate(result, driver.Thresholds{
		MaxElapsed:      time.Duration(cfg.MaxElapsedSeconds) * time.Second,
		MaxPeakRSSBytes: common.Mib2b(cfg.MemoryLimitMib),
		MaxFailureRatio: cfg.MaxFailureRatio,
	})

	log.Infof("Latency p50/p95/p99/max: %dus/%dus/%dus/%dus",
		result.LatencyP50Micro, result.LatencyP95Micro,
		result.LatencyP99Micro, result.LatencyMaxMicro)
	log.Infof("Average CPU: %.1f%%, peak RSS: %s",
		result.AvgCPUPercent, common.FormatBytes(result.PeakRSSBytes))
	log.Infof("Verdict: %s", verdict)

	if !verdict.Pass {
		os.Exit(1)
	}
}
