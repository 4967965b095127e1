package metric

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// LatencyHistogram is a thread-safe HDR histogram of per-item apply latencies
// in microseconds.
type LatencyHistogram struct {
	mu   sync.Mutex
	hist *hdrhistogram.Histogram
}

func NewLatencyHistogram() *LatencyHistogram {
	// 1us to 5min, 3 significant figures.
	return &LatencyHistogram{
		hist: hdrhistogram.New(1, int64(5*time.Minute/time.Microsecond), 3),
	}
}

func (h *LatencyHistogram) Record(d time.Duration) {
	v := d.Microseconds()
	if v < 1 {
		v = 1
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_ = h.hist.RecordValue(v)
}

// Quantile returns the latency in microseconds at quantile q (0-100).
func (h *LatencyHistogram) Quantile(q float64) int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hist.ValueAtQuantile(q)
}

func (h *LatencyHistogram) Max() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hist.Max()
}

func (h *LatencyHistogram) Count() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hist.TotalCount()
}
