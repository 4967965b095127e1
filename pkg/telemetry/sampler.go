package telemetry

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"stressor/pkg/common"
	"stressor/pkg/metric"
)

// Sampler collects resource records at a fixed cadence on its own goroutine
// while the driver loop runs. The sample log is append-only under a mutex;
// the driver only sees it after Stop. When a memory limit is configured, the
// sampler trips the run's cancellation cause on the first reading above it.
type Sampler struct {
	meter       Meter
	period      time.Duration
	memoryLimit uint64
	trip        context.CancelCauseFunc

	mu      sync.Mutex
	records []metric.ResourceRecord
	peakRSS uint64

	start   time.Time
	lastCPU float64
	lastAt  time.Time
	tripped bool

	stop chan struct{}
	done chan struct{}
}

// NewSampler configures a sampler. memoryLimitBytes == 0 disables the limit;
// trip may be nil when no cancellation is wired up.
func NewSampler(meter Meter, period time.Duration, memoryLimitBytes uint64, trip context.CancelCauseFunc) *Sampler {
	return &Sampler{
		meter:       meter,
		period:      period,
		memoryLimit: memoryLimitBytes,
		trip:        trip,
		records:     []metric.ResourceRecord{},
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start takes a baseline reading and launches the sampling goroutine.
func (s *Sampler) Start() {
	s.start = time.Now()
	s.lastAt = s.start

	if baseline, err := s.meter.Read(); err == nil {
		s.lastCPU = baseline.CPUTime
	} else {
		log.Warnf("Resource baseline reading failed: %v", err)
	}

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.period)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.sampleOnce()
			}
		}
	}()
}

// Stop halts sampling, takes one final sample, and returns the collected
// records. Safe to call once per Start.
func (s *Sampler) Stop() []metric.ResourceRecord {
	close(s.stop)
	<-s.done

	s.sampleOnce()

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]metric.ResourceRecord, len(s.records))
	copy(out, s.records)

	return out
}

// PeakRSS reports the largest resident set observed by the sampler.
func (s *Sampler) PeakRSS() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peakRSS
}

func (s *Sampler) sampleOnce() {
	reading, err := s.meter.Read()
	if err != nil {
		log.Warnf("Resource sampling failed: %v", err)
		return
	}

	now := time.Now()
	wallDelta := now.Sub(s.lastAt).Seconds()

	cpuPercent := 0.0
	if wallDelta > 0 {
		cpuPercent = (reading.CPUTime - s.lastCPU) / wallDelta * 100.0
		if cpuPercent < 0 {
			cpuPercent = 0
		}
	}

	s.lastCPU = reading.CPUTime
	s.lastAt = now

	s.mu.Lock()
	s.records = append(s.records, metric.ResourceRecord{
		ElapsedMicro: now.Sub(s.start).Microseconds(),
		RSSBytes:     reading.RSSBytes,
		CPUPercent:   cpuPercent,
	})
	if reading.RSSBytes > s.peakRSS {
		s.peakRSS = reading.RSSBytes
	}
	shouldTrip := s.memoryLimit > 0 && reading.RSSBytes > s.memoryLimit && !s.tripped
	if shouldTrip {
		s.tripped = true
	}
	s.mu.Unlock()

	if shouldTrip && s.trip != nil {
		log.Warnf("Resident set %s exceeds limit %s, cancelling run",
			common.FormatBytes(reading.RSSBytes), common.FormatBytes(s.memoryLimit))
		s.trip(common.ErrResourceExhausted)
	}
}
