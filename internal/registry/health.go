package registry

import "time"

// Health classifies a unit's runtime condition for observability.
type Health string

const (
	Healthy  Health = "healthy"
	Warning  Health = "warning"
	Unwell   Health = "error"
	Disabled Health = "disabled"
)

// Classification thresholds. A unit whose executions fail more than half
// the time is in error; elevated failure rates or slow average execution
// only warrant a warning.
const (
	errorRateThreshold   = 0.5
	warningRateThreshold = 0.1
	slowExecution        = time.Second
)

// HealthOf derives a unit's health from its recorded statistics.
func (r *Registry) HealthOf(name string) Health {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.stats[name]
	if !ok {
		return Disabled
	}
	return classify(st)
}

// HealthAll reports the health of every unit with recorded statistics.
func (r *Registry) HealthAll() map[string]Health {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]Health, len(r.stats))
	for name, st := range r.stats {
		out[name] = classify(st)
	}
	return out
}

func classify(st *Stats) Health {
	if !st.Enabled {
		return Disabled
	}
	if st.ExecutionCount > 0 {
		rate := float64(st.ErrorCount) / float64(st.ExecutionCount)
		if rate > errorRateThreshold {
			return Unwell
		}
		if rate > warningRateThreshold || st.AverageExecutionTime > slowExecution {
			return Warning
		}
	}
	return Healthy
}
