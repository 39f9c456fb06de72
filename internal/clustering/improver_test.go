package clustering

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoItemLabels(t *testing.T, clusters int, a, b int) *Labels {
	t.Helper()
	ds := NewDataset(map[string][]float64{"a": {0}, "b": {1}})
	l, err := NewLabels(ds, clusters, map[string]int{"a": a, "b": b})
	require.NoError(t, err)
	return l
}

func TestImproveLowestIndexWinsTies(t *testing.T) {
	labels := twoItemLabels(t, 2, 1, 1)
	table := &DistanceTable{Rows: [][]float64{{1, 1}, {1, 1}}}

	res := Improve(table, labels)
	assert.False(t, res.Converged)
	assert.Equal(t, 2, res.Changed)
	assert.Equal(t, map[string]int{"a": 0, "b": 0}, labels.Map())
	assert.InDelta(t, 2.0, res.Error, 1e-12)

	again := Improve(table, labels)
	assert.True(t, again.Converged)
	assert.Zero(t, again.Changed)
}

func TestImproveUsesNormalizedScore(t *testing.T) {
	labels := twoItemLabels(t, 2, 0, 0)
	// totals are {2, 12}: a scores {0.5, 0.167}, b scores {0.5, 0.833}
	table := &DistanceTable{Rows: [][]float64{{1, 2}, {1, 10}}}

	res := Improve(table, labels)
	assert.Equal(t, map[string]int{"a": 1, "b": 0}, labels.Map())
	assert.Equal(t, 1, res.Changed)
	// raw distances of the chosen clusters: 2 + 1
	assert.InDelta(t, 3.0, res.Error, 1e-12)
}

func TestImproveSkipsEmptyClusters(t *testing.T) {
	labels := twoItemLabels(t, 3, 1, 1)
	inf := math.Inf(1)
	table := &DistanceTable{Rows: [][]float64{{inf, 0.2, inf}, {inf, 0.1, inf}}}

	res := Improve(table, labels)
	assert.True(t, res.Converged)
	assert.Equal(t, map[string]int{"a": 1, "b": 1}, labels.Map())
	assert.InDelta(t, 0.3, res.Error, 1e-12)
}

func TestImproveHandlesNegativeRoundoff(t *testing.T) {
	labels := twoItemLabels(t, 2, 0, 1)
	table := &DistanceTable{Rows: [][]float64{{-1e-17, 0.9}, {0.9, -1e-17}}}

	res := Improve(table, labels)
	assert.True(t, res.Converged)
	for _, k := range labels.Map() {
		assert.GreaterOrEqual(t, k, 0)
		assert.Less(t, k, 2)
	}
}

func TestImproveIsIdempotentOnceStable(t *testing.T) {
	ds := NewDataset(map[string][]float64{
		"a": {0, 0}, "b": {0, 0.1}, "c": {10, 10}, "d": {10, 10.1},
	})
	labels, err := NewLabels(ds, 2, map[string]int{"a": 0, "b": 0, "c": 1, "d": 1})
	require.NoError(t, err)
	table, err := NewEstimator(1, 1).Estimate(t.Context(), ds, labels)
	require.NoError(t, err)

	first := Improve(table, labels)
	require.True(t, first.Converged)
	second := Improve(table, labels)
	assert.True(t, second.Converged)
	assert.Equal(t, first.Error, second.Error)
}
