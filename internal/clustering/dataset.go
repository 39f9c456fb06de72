package clustering

import (
	"sort"

	apperrors "github.com/Adithya-Monish-Kumar-K/kernel-kmeans/pkg/errors"
)

// Dataset is an immutable, key-ordered set of feature vectors. Items are
// addressed by position; positions follow the sorted key order so every run
// over the same data sums in the same order.
type Dataset struct {
	keys    []string
	vectors [][]float64
	index   map[string]int
}

// NewDataset copies items into a Dataset.
func NewDataset(items map[string][]float64) *Dataset {
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ds := &Dataset{
		keys:    keys,
		vectors: make([][]float64, len(keys)),
		index:   make(map[string]int, len(keys)),
	}
	for i, k := range keys {
		v := make([]float64, len(items[k]))
		copy(v, items[k])
		ds.vectors[i] = v
		ds.index[k] = i
	}
	return ds
}

func (d *Dataset) Len() int { return len(d.keys) }

// Keys returns the item keys in dataset order. The slice must not be modified.
func (d *Dataset) Keys() []string { return d.keys }

func (d *Dataset) Key(i int) string { return d.keys[i] }

// Vector returns the vector of the i-th item. The slice must not be modified.
func (d *Dataset) Vector(i int) []float64 { return d.vectors[i] }

// Index returns the position of key, or false if the key is unknown.
func (d *Dataset) Index(key string) (int, bool) {
	i, ok := d.index[key]
	return i, ok
}

// Dimensions returns the smallest and largest vector length in the dataset.
func (d *Dataset) Dimensions() (lo, hi int) {
	for i, v := range d.vectors {
		if i == 0 || len(v) < lo {
			lo = len(v)
		}
		if len(v) > hi {
			hi = len(v)
		}
	}
	return lo, hi
}

// CheckDimensions reports ErrDimensionMismatch naming the first item whose
// vector length differs from the first item's.
func (d *Dataset) CheckDimensions() error {
	if len(d.vectors) == 0 {
		return nil
	}
	want := len(d.vectors[0])
	for i, v := range d.vectors {
		if len(v) != want {
			return apperrors.Newf(apperrors.ErrDimensionMismatch,
				"item %q has %d dimensions, item %q has %d", d.keys[i], len(v), d.keys[0], want)
		}
	}
	return nil
}

// Builder accumulates items before freezing them into a Dataset. A repeated
// key replaces the earlier vector.
type Builder struct {
	items map[string][]float64
}

func NewBuilder() *Builder {
	return &Builder{items: make(map[string][]float64)}
}

// Add stores vec under key and reports whether an earlier vector was replaced.
func (b *Builder) Add(key string, vec []float64) bool {
	_, replaced := b.items[key]
	b.items[key] = vec
	return replaced
}

func (b *Builder) Len() int { return len(b.items) }

func (b *Builder) Build() *Dataset {
	return NewDataset(b.items)
}
