package common

// WorkloadItem is a single generated input applied to the target component.
type WorkloadItem struct {
	Index  int64
	Key    uint64
	Values []float64
}

// Workload is the ordered sequence of inputs for one stress run. DeclaredSize
// is the size requested at generation time; the generator guarantees
// len(Items) == DeclaredSize so that no run silently truncates its workload.
type Workload struct {
	Seed         int64
	DeclaredSize int
	Items        []WorkloadItem
}

func (w *Workload) Size() int {
	return len(w.Items)
}
