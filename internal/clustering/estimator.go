package clustering

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"
)

// DistanceTable holds, for every dataset item, the squared kernel-space
// distance to each cluster's implicit centroid. Rows follow dataset order.
// A cluster without members has distance +Inf in every row.
type DistanceTable struct {
	Rows         [][]float64
	Histogram    []int
	InterCluster []float64
}

func (t *DistanceTable) Clusters() int { return len(t.Histogram) }

// Estimator computes distance tables without materializing centroids:
//
//	||phi(x) - m_k||^2 = k(x,x) + (1/n_k^2) sum_{p,q in k} k(p,q) - (2/n_k) sum_{p in k} k(x,p)
type Estimator struct {
	kernelParam float64
	workers     int
	logger      *slog.Logger
}

// NewEstimator creates an Estimator. workers <= 1 runs the pairwise pass on
// the calling goroutine.
func NewEstimator(kernelParam float64, workers int) *Estimator {
	if workers < 1 {
		workers = 1
	}
	return &Estimator{
		kernelParam: kernelParam,
		workers:     workers,
		logger:      slog.Default().With("component", "estimator"),
	}
}

// Estimate builds the distance table for the current labels. The dataset and
// labels are only read.
func (e *Estimator) Estimate(ctx context.Context, ds *Dataset, labels *Labels) (*DistanceTable, error) {
	n := ds.Len()
	clusters := labels.Clusters()
	hist := labels.Histogram()

	// dots[y][k] is the summed similarity of item y to every member of k.
	dots := make([][]float64, n)
	for y := range dots {
		dots[y] = make([]float64, clusters)
	}

	workers := min(e.workers, n)
	if workers < 1 {
		workers = 1
	}
	chunk := (n + workers - 1) / workers
	partials := make([][]float64, workers)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := min(lo+chunk, n)
		partial := make([]float64, clusters)
		partials[w] = partial
		if lo >= hi {
			continue
		}
		g.Go(func() error {
			return e.accumulate(gctx, ds, labels, lo, hi, dots, partial)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("pairwise similarity pass: %w", err)
	}

	inter := make([]float64, clusters)
	for _, partial := range partials {
		for k, v := range partial {
			inter[k] += v
		}
	}
	for k := range inter {
		if hist[k] == 0 {
			inter[k] = 0
			continue
		}
		inter[k] /= float64(hist[k]) * float64(hist[k])
	}

	rows := make([][]float64, n)
	for w := 0; w < n; w++ {
		v := ds.Vector(w)
		self := Similarity(v, v, e.kernelParam)
		row := make([]float64, clusters)
		for k := range row {
			if hist[k] == 0 {
				row[k] = math.Inf(1)
				continue
			}
			row[k] = self + inter[k] - 2*dots[w][k]/float64(hist[k])
		}
		rows[w] = row
	}

	e.logger.Debug("distance table computed",
		"items", n,
		"clusters", clusters,
		"workers", workers,
	)
	return &DistanceTable{Rows: rows, Histogram: hist, InterCluster: inter}, nil
}

// accumulate visits every ordered pair (x, y) with y in [lo, hi). It is the
// only writer of dots[lo:hi]; intra-cluster sums go to the worker's partial.
func (e *Estimator) accumulate(ctx context.Context, ds *Dataset, labels *Labels, lo, hi int, dots [][]float64, partial []float64) error {
	n := ds.Len()
	for y := lo; y < hi; y++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		vy := ds.Vector(y)
		ly := labels.At(y)
		row := dots[y]
		for x := 0; x < n; x++ {
			s := Similarity(ds.Vector(x), vy, e.kernelParam)
			lx := labels.At(x)
			row[lx] += s
			if lx == ly {
				partial[lx] += s
			}
		}
	}
	return nil
}
