package clustering

import "math"

// normalizationEpsilon keeps the per-cluster normalization finite when a
// cluster's total distance is zero.
const normalizationEpsilon = 0.0001

// ImproveResult reports the outcome of one label-improvement pass.
type ImproveResult struct {
	// Converged is true when no label changed.
	Converged bool
	// Changed counts items whose label changed.
	Changed int
	// Error sums the raw distance of every item to its chosen cluster. It is
	// diagnostic only.
	Error float64
}

// Improve relabels every item with the cluster minimizing
//
//	distance[item][k] / (sum over items of distance[.][k] + epsilon)
//
// Clusters are scanned in index order and replace the current best only on
// strict improvement, so the lowest index wins ties. Clusters whose distance
// is not finite (empty clusters) are never chosen.
func Improve(table *DistanceTable, labels *Labels) ImproveResult {
	clusters := labels.Clusters()
	totals := make([]float64, clusters)
	for _, row := range table.Rows {
		for k, d := range row {
			if isFinite(d) {
				totals[k] += d
			}
		}
	}

	res := ImproveResult{Converged: true}
	for i, row := range table.Rows {
		best := -1
		var bestScore float64
		for k, d := range row {
			if !isFinite(d) {
				continue
			}
			score := d / (totals[k] + normalizationEpsilon)
			if best < 0 || score < bestScore {
				best = k
				bestScore = score
			}
		}
		if best < 0 {
			// Unreachable for a well-formed table: the item's own cluster is
			// never empty. Keep the current label.
			best = labels.At(i)
		}
		if best != labels.At(i) {
			res.Converged = false
			res.Changed++
		}
		labels.set(i, best)
		if isFinite(row[best]) {
			res.Error += row[best]
		}
	}
	return res
}

func isFinite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}
