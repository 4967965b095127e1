package metric

// ResourceRecord is one timestamped snapshot of process resource usage taken
// while the workload loop is running. Records are append-only for the
// duration of a run and strictly ordered by elapsed time.
type ResourceRecord struct {
	ElapsedMicro int64   `csv:"elapsed_micro"`
	RSSBytes     uint64  `csv:"rss_bytes"`
	CPUPercent   float64 `csv:"cpu_percent"`
}

// FailureRecord captures one item the target rejected.
type FailureRecord struct {
	Index int64  `csv:"index"`
	Error string `csv:"error"`
}
