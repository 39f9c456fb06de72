// Package sink publishes the final cluster assignment of a run to one or more
// destinations: a text file, Redis hashes, a PostgreSQL table, or a Kafka
// topic.
package sink

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/kernel-kmeans/internal/clustering"
)

// ItemLabel is the cluster of one item.
type ItemLabel struct {
	Key     string `json:"key"`
	Cluster int    `json:"cluster"`
}

// Assignment is the published result of a run. Items are in key order.
type Assignment struct {
	RunID      string
	Items      []ItemLabel
	Clusters   int
	Epochs     int
	Error      float64
	State      string
	FinishedAt time.Time
}

// NewAssignment snapshots the labels of res.
func NewAssignment(runID string, ds *clustering.Dataset, res *clustering.Result) Assignment {
	items := make([]ItemLabel, ds.Len())
	for i, key := range ds.Keys() {
		items[i] = ItemLabel{Key: key, Cluster: res.Labels.At(i)}
	}
	return Assignment{
		RunID:      runID,
		Items:      items,
		Clusters:   res.Labels.Clusters(),
		Epochs:     res.Epochs,
		Error:      res.Error,
		State:      res.State.String(),
		FinishedAt: time.Now().UTC(),
	}
}

// Sink is a destination for assignments.
type Sink interface {
	Name() string
	Write(ctx context.Context, a Assignment) error
	Close() error
}

// Pinger is implemented by sinks whose backend can be probed for
// reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

func ping(ctx context.Context, backend any) error {
	if p, ok := backend.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
