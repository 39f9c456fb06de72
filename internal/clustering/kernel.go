// Package clustering implements kernel k-means: a kernel similarity, the
// kernel-space distance of every item to every implicit cluster centroid, and
// the label-improvement loop that runs until no label changes.
package clustering

import "gonum.org/v1/gonum/floats"

// Similarity returns 1 - s/(s+c), where s is the squared euclidean distance
// between a and b over their shared prefix. Vectors of unequal length are
// compared on the first min(len(a), len(b)) components only.
//
// The result is 1 when s is zero, whatever c is. For c > 0 it lies in (0, 1].
// For c == 0 it is 0 unless the prefixes coincide.
func Similarity(a, b []float64, c float64) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 1
	}
	d := floats.Distance(a[:n], b[:n], 2)
	s := d * d
	if s == 0 {
		return 1
	}
	// c/(s+c) equals 1 - s/(s+c) without losing small results to cancellation.
	return c / (s + c)
}
