package common

// Key distributions supported by the workload generator.
const (
	DistributionUniform    = "uniform"
	DistributionZipfian    = "zipfian"
	DistributionSequential = "sequential"
)

const (
	OneMib = 1024 * 1024

	// DefaultValueDimension is the payload vector length used when the
	// configuration leaves it unset.
	DefaultValueDimension = 8
)
