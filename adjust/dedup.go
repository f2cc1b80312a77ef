package adjust

import "math"

// candidateHash rounds a candidate's probe cost to a coarse bucket so two initializers
// that converge to the same basin (e.g. PnP and Essential-matrix agreeing) collapse to
// one dedup key before the expensive full-LM pass runs (spec §4.7 step 2's "rough cost
// hash").
func candidateHash(cost float64) int64 {
	if math.IsNaN(cost) || math.IsInf(cost, 0) {
		return math.MinInt64
	}
	const bucketWidth = 1e-2
	return int64(math.Round(cost / bucketWidth))
}

// dedupeCandidates drops candidates whose probe cost hashes to a bucket already seen,
// keeping the first index of each bucket encountered in the given order. Callers pass
// indices pre-sorted ascending by cost so the survivor of each bucket is its cheapest
// member, not just whichever initializer happened to run first.
func dedupeCandidates(costs []float64, order []int) []int {
	seen := make(map[int64]bool, len(order))
	var keep []int
	for _, i := range order {
		h := candidateHash(costs[i])
		if seen[h] {
			continue
		}
		seen[h] = true
		keep = append(keep, i)
	}
	return keep
}
