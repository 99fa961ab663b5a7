package registry

import "time"

// maxHistory bounds the per-unit execution history ring.
const maxHistory = 100

// Execution is one recorded invocation of a unit capability.
type Execution struct {
	Function string
	Duration time.Duration
	Success  bool
	At       time.Time
}

// Stats tracks a unit's lifecycle counters. Mutated only under the
// registry lock.
type Stats struct {
	Enabled              bool
	Loaded               bool
	LoadTime             time.Duration
	LastReload           time.Time
	FunctionCount        int
	ExecutionCount       int64
	TotalExecutionTime   time.Duration
	AverageExecutionTime time.Duration
	ErrorCount           int64
	LastError            string

	history []Execution
}

// RecordExecution is invoked by the dispatcher collaborator after each
// capability invocation. It updates the running counters and appends to
// the bounded execution history, dropping the oldest entry once the ring
// is full.
func (r *Registry) RecordExecution(name, function string, duration time.Duration, execErr error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.statsLocked(name)
	st.ExecutionCount++
	st.TotalExecutionTime += duration
	st.AverageExecutionTime = st.TotalExecutionTime / time.Duration(st.ExecutionCount)
	if execErr != nil {
		st.ErrorCount++
		st.LastError = execErr.Error()
	}

	st.history = append(st.history, Execution{
		Function: function,
		Duration: duration,
		Success:  execErr == nil,
		At:       time.Now(),
	})
	if len(st.history) > maxHistory {
		st.history = st.history[len(st.history)-maxHistory:]
	}
}

// MarkReloaded refreshes the reload bookkeeping after a successful reload.
func (r *Registry) MarkReloaded(name string, loadTime time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.statsLocked(name)
	st.LastReload = time.Now()
	st.LoadTime = loadTime
	st.Loaded = true
}

// Stats returns a copy of a unit's counters.
func (r *Registry) Stats(name string) (Stats, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.stats[name]
	if !ok {
		return Stats{}, false
	}
	out := *st
	out.history = nil
	return out, true
}

// History returns a copy of a unit's recent executions, oldest first.
func (r *Registry) History(name string) []Execution {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.stats[name]
	if !ok {
		return nil
	}
	out := make([]Execution, len(st.history))
	copy(out, st.history)
	return out
}
