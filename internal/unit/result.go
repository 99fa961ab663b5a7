package unit

import "time"

// LoadResult records the outcome of a single load attempt. It is created
// once per attempt and immutable afterwards; the final result for each
// spec feeds the lifecycle registry.
type LoadResult struct {
	Name     string
	Success  bool
	Instance Unit
	Err      error
	LoadTime time.Duration
	Metadata *Metadata
}

// Succeeded builds a successful result.
func Succeeded(name string, instance Unit, loadTime time.Duration) *LoadResult {
	res := &LoadResult{
		Name:     name,
		Success:  true,
		Instance: instance,
		LoadTime: loadTime,
	}
	if d, ok := instance.(Describer); ok {
		meta := d.Describe()
		res.Metadata = &meta
	}
	return res
}

// Failed builds a failed result carrying the captured error.
func Failed(name string, err error, loadTime time.Duration) *LoadResult {
	return &LoadResult{
		Name:     name,
		Success:  false,
		Err:      err,
		LoadTime: loadTime,
	}
}
