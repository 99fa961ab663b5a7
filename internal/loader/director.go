package loader

import (
	"context"
	"sort"
	"sync"

	"github.com/vk/modgrid/internal/ctxlog"
	"github.com/vk/modgrid/internal/dag"
	"github.com/vk/modgrid/internal/scan"
	"github.com/vk/modgrid/internal/unit"
)

// Summary is the outcome of a directory-level load: one LoadResult per
// enabled discovered spec, plus counts, the batch plan, skipped units,
// and discovery warnings.
type Summary struct {
	Results      []*unit.LoadResult
	SuccessCount int
	FailureCount int
	Batches      [][]string
	Skipped      []string
	Warnings     []scan.Warning
}

// Result finds the result for a unit by name.
func (s *Summary) Result(name string) (*unit.LoadResult, bool) {
	for _, r := range s.Results {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

// LoadDirectory discovers units under dir and brings them online in
// dependency order. Batches execute strictly in sequence; within a batch,
// units load concurrently up to MaxConcurrency when Parallel is set.
//
// Individual unit failures are recorded in the summary and never abort
// the operation. The only fatal error after a successful scan is a
// dependency cycle, which aborts before anything is instantiated.
func (l *Loader) LoadDirectory(ctx context.Context, dir string) (*Summary, error) {
	logger := ctxlog.FromContext(ctx)

	specs, warnings, err := scan.Scan(ctx, dir)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Warnings: warnings}

	byName := make(map[string]*unit.Spec, len(specs))
	enabled := make([]*unit.Spec, 0, len(specs))
	for _, s := range specs {
		if !s.Enabled {
			summary.Skipped = append(summary.Skipped, s.Name)
			continue
		}
		byName[s.Name] = s
		enabled = append(enabled, s)
	}

	edges := dag.BuildEdges(enabled)
	if _, err := dag.Order(edges); err != nil {
		// Fatal: no valid order exists, nothing is instantiated.
		return nil, err
	}

	batches, stuck := dag.Batches(edges)
	summary.Batches = batches
	if len(stuck) > 0 {
		logger.Error("Some units cannot be batched and will not load.", "stuck", stuck)
	}

	for _, batch := range batches {
		results := l.loadBatch(ctx, batch, byName)
		summary.Results = append(summary.Results, results...)
	}

	for _, name := range stuck {
		err := &dag.UnresolvedBatchError{Unit: name, Stuck: stuck}
		res := unit.Failed(name, err, 0)
		l.reg.FinishLoad(byName[name], res)
		l.publish(ctx, res)
		summary.Results = append(summary.Results, res)
	}

	for _, r := range summary.Results {
		if r.Success {
			summary.SuccessCount++
		} else {
			summary.FailureCount++
		}
	}

	logger.Info("Directory load finished.",
		"path", dir,
		"loaded", summary.SuccessCount,
		"failed", summary.FailureCount,
		"skipped", len(summary.Skipped),
		"batches", len(summary.Batches))
	return summary, nil
}

// loadBatch resolves every spec in one batch. The next batch never starts
// before all of these attempts have resolved, success or failure.
func (l *Loader) loadBatch(ctx context.Context, names []string, byName map[string]*unit.Spec) []*unit.LoadResult {
	ordered := make([]*unit.Spec, 0, len(names))
	for _, name := range names {
		ordered = append(ordered, byName[name])
	}
	// Higher priority first; ties by name keep the submission order
	// deterministic. Within a batch this only affects start order, never
	// correctness.
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority > ordered[j].Priority
		}
		return ordered[i].Name < ordered[j].Name
	})

	results := make([]*unit.LoadResult, len(ordered))

	if !l.opts.Parallel || len(ordered) == 1 {
		for i, spec := range ordered {
			results[i] = l.Load(ctx, spec)
		}
		return results
	}

	sem := make(chan struct{}, l.opts.MaxConcurrency)
	var wg sync.WaitGroup
	for i, spec := range ordered {
		wg.Add(1)
		go func(i int, spec *unit.Spec) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = l.Load(ctx, spec)
		}(i, spec)
	}
	wg.Wait()
	return results
}
