package dag

import "sort"

// Batches partitions the edge map into waves of units whose dependencies
// are all satisfied by earlier waves. Batches are consumed strictly in
// sequence; membership within a batch carries no order guarantee.
//
// The second return value lists units that could never be placed: an
// iteration that places nothing while units remain means the remainder
// depends on names outside the discovered set. Cycles are not the cause
// here; Order has already excluded them.
func Batches(edges Edges) (batches [][]string, stuck []string) {
	placed := make(map[string]bool, len(edges))
	remaining := len(edges)

	for remaining > 0 {
		var wave []string
		for name, deps := range edges {
			if placed[name] {
				continue
			}
			ready := true
			for _, dep := range deps {
				if !placed[dep] {
					ready = false
					break
				}
			}
			if ready {
				wave = append(wave, name)
			}
		}

		if len(wave) == 0 {
			for name := range edges {
				if !placed[name] {
					stuck = append(stuck, name)
				}
			}
			sort.Strings(stuck)
			return batches, stuck
		}

		sort.Strings(wave)
		for _, name := range wave {
			placed[name] = true
		}
		remaining -= len(wave)
		batches = append(batches, wave)
	}

	return batches, nil
}
