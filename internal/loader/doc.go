// Package loader brings units online. It owns the per-unit load pipeline
// (de-duplication, dependency verification, factory instantiation,
// optional sandbox probing, initialization under timeout with retries)
// and the directory-level orchestration that scans, orders, batches, and
// fans out load attempts.
//
// A load attempt always resolves to exactly one LoadResult, success or
// failure; per-unit failures never escape batch execution.
package loader
