package clustering

import (
	"github.com/cespare/xxhash/v2"

	apperrors "github.com/Adithya-Monish-Kumar-K/kernel-kmeans/pkg/errors"
)

// Labels assigns every item of a Dataset to a cluster in [0, Clusters()).
type Labels struct {
	ds       *Dataset
	clusters int
	assign   []int
}

// InitLabels assigns each item to xxhash64(key) mod clusters. The hash is
// seedless, so the initial assignment depends only on the keys.
func InitLabels(ds *Dataset, clusters int) *Labels {
	l := &Labels{ds: ds, clusters: clusters, assign: make([]int, ds.Len())}
	n := uint64(clusters)
	for i, key := range ds.Keys() {
		l.assign[i] = int(xxhash.Sum64String(key) % n)
	}
	return l
}

// NewLabels builds an explicit assignment. Every dataset key must be present
// with a cluster in range.
func NewLabels(ds *Dataset, clusters int, assign map[string]int) (*Labels, error) {
	if clusters <= 0 {
		return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "clusters must be positive, got %d", clusters)
	}
	l := &Labels{ds: ds, clusters: clusters, assign: make([]int, ds.Len())}
	for i, key := range ds.Keys() {
		k, ok := assign[key]
		if !ok {
			return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "no label for item %q", key)
		}
		if k < 0 || k >= clusters {
			return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "label %d of item %q out of range [0, %d)", k, key, clusters)
		}
		l.assign[i] = k
	}
	return l, nil
}

func (l *Labels) Clusters() int { return l.clusters }

func (l *Labels) Len() int { return len(l.assign) }

// At returns the cluster of the i-th dataset item.
func (l *Labels) At(i int) int { return l.assign[i] }

func (l *Labels) Get(key string) (int, bool) {
	i, ok := l.ds.Index(key)
	if !ok {
		return 0, false
	}
	return l.assign[i], true
}

func (l *Labels) set(i, cluster int) { l.assign[i] = cluster }

// Histogram counts the items assigned to each cluster.
func (l *Labels) Histogram() []int {
	hist := make([]int, l.clusters)
	for _, k := range l.assign {
		hist[k]++
	}
	return hist
}

// Map returns the assignment keyed by item.
func (l *Labels) Map() map[string]int {
	out := make(map[string]int, len(l.assign))
	for i, k := range l.assign {
		out[l.ds.Key(i)] = k
	}
	return out
}

func (l *Labels) Clone() *Labels {
	assign := make([]int, len(l.assign))
	copy(assign, l.assign)
	return &Labels{ds: l.ds, clusters: l.clusters, assign: assign}
}

// Equal reports whether both assignments label every item identically.
func (l *Labels) Equal(other *Labels) bool {
	if l.clusters != other.clusters || len(l.assign) != len(other.assign) {
		return false
	}
	for i := range l.assign {
		if l.assign[i] != other.assign[i] {
			return false
		}
	}
	return true
}
