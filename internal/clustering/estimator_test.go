package clustering

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bruteForceTable evaluates the kernel-space decomposition directly from the
// item maps, independent of the Estimator's row blocking.
func bruteForceTable(items map[string][]float64, assign map[string]int, clusters int, c float64) map[string][]float64 {
	hist := make([]int, clusters)
	for _, k := range assign {
		hist[k]++
	}
	inter := make([]float64, clusters)
	dots := make(map[string][]float64, len(items))
	for key := range items {
		dots[key] = make([]float64, clusters)
	}
	for x, vx := range items {
		for y, vy := range items {
			s := Similarity(vx, vy, c)
			dots[y][assign[x]] += s
			if assign[x] == assign[y] {
				inter[assign[x]] += s
			}
		}
	}
	out := make(map[string][]float64, len(items))
	for w, v := range items {
		row := make([]float64, clusters)
		for k := range row {
			if hist[k] == 0 {
				row[k] = math.Inf(1)
				continue
			}
			n := float64(hist[k])
			row[k] = Similarity(v, v, c) + inter[k]/(n*n) - 2*dots[w][k]/n
		}
		out[w] = row
	}
	return out
}

func randomItems(rng *rand.Rand, n, dims int) map[string][]float64 {
	items := make(map[string][]float64, n)
	for i := 0; i < n; i++ {
		items[fmt.Sprintf("item-%03d", i)] = randomVector(rng, dims, 10)
	}
	return items
}

func assertTableMatches(t *testing.T, ds *Dataset, table *DistanceTable, want map[string][]float64) {
	t.Helper()
	require.Len(t, table.Rows, ds.Len())
	for i, key := range ds.Keys() {
		for k, d := range want[key] {
			got := table.Rows[i][k]
			if math.IsInf(d, 1) {
				assert.True(t, math.IsInf(got, 1), "item %s cluster %d", key, k)
				continue
			}
			assert.InDelta(t, d, got, 1e-9, "item %s cluster %d", key, k)
		}
	}
}

func TestEstimateMatchesDecomposition(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	items := randomItems(rng, 40, 3)
	ds := NewDataset(items)
	labels := InitLabels(ds, 4)

	table, err := NewEstimator(0.7, 1).Estimate(context.Background(), ds, labels)
	require.NoError(t, err)

	assert.Equal(t, labels.Histogram(), table.Histogram)
	assert.Equal(t, 4, table.Clusters())
	assertTableMatches(t, ds, table, bruteForceTable(items, labels.Map(), 4, 0.7))
}

func TestEstimateParallelMatchesSequential(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	items := randomItems(rng, 101, 4)
	ds := NewDataset(items)
	labels := InitLabels(ds, 5)

	seq, err := NewEstimator(1.5, 1).Estimate(context.Background(), ds, labels)
	require.NoError(t, err)

	for _, workers := range []int{2, 3, 8, 200} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			par, err := NewEstimator(1.5, workers).Estimate(context.Background(), ds, labels)
			require.NoError(t, err)
			for i := range seq.Rows {
				for k := range seq.Rows[i] {
					assert.InDelta(t, seq.Rows[i][k], par.Rows[i][k], 1e-9)
				}
			}
		})
	}
}

func TestEstimateEmptyClusterIsInfinite(t *testing.T) {
	items := map[string][]float64{"a": {0, 0}, "b": {1, 1}, "c": {5, 5}}
	ds := NewDataset(items)
	labels, err := NewLabels(ds, 3, map[string]int{"a": 0, "b": 0, "c": 2})
	require.NoError(t, err)

	table, err := NewEstimator(1, 1).Estimate(context.Background(), ds, labels)
	require.NoError(t, err)

	assert.Equal(t, []int{2, 0, 1}, table.Histogram)
	assert.Equal(t, 0.0, table.InterCluster[1])
	for _, row := range table.Rows {
		assert.True(t, math.IsInf(row[1], 1))
	}
	// a lone member sits exactly on its centroid
	ci, _ := ds.Index("c")
	assert.InDelta(t, 0, table.Rows[ci][2], 1e-12)
}

func TestEstimateHonorsCancellation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	ds := NewDataset(randomItems(rng, 50, 2))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEstimator(1, 4).Estimate(ctx, ds, InitLabels(ds, 3))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEstimateEmptyDataset(t *testing.T) {
	ds := NewDataset(nil)
	table, err := NewEstimator(1, 4).Estimate(context.Background(), ds, InitLabels(ds, 2))
	require.NoError(t, err)
	assert.Empty(t, table.Rows)
}

func BenchmarkEstimate(b *testing.B) {
	rng := rand.New(rand.NewSource(11))
	ds := NewDataset(randomItems(rng, 500, 8))
	labels := InitLabels(ds, 8)
	for _, workers := range []int{1, 4} {
		b.Run(fmt.Sprintf("workers=%d", workers), func(b *testing.B) {
			est := NewEstimator(1, workers)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := est.Estimate(context.Background(), ds, labels); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
