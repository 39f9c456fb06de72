package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/kernel-kmeans/pkg/kafka"
)

const kafkaBatchSize = 1000

// AssignmentEvent is the Kafka payload for one item, keyed by item key.
type AssignmentEvent struct {
	RunID      string    `json:"run_id"`
	Key        string    `json:"key"`
	Cluster    int       `json:"cluster"`
	Clusters   int       `json:"clusters"`
	FinishedAt time.Time `json:"finished_at"`
}

// batchPublisher is the subset of pkg/kafka.Producer used by KafkaSink.
type batchPublisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
	Close() error
}

// KafkaSink publishes one event per item in batches.
type KafkaSink struct {
	producer batchPublisher
}

func NewKafkaSink(producer batchPublisher) *KafkaSink {
	return &KafkaSink{producer: producer}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Write(ctx context.Context, a Assignment) error {
	headers := map[string]string{"run_id": a.RunID, "source": "kkmeans"}
	for start := 0; start < len(a.Items); start += kafkaBatchSize {
		end := min(start+kafkaBatchSize, len(a.Items))
		events := make([]kafka.Event, 0, end-start)
		for _, item := range a.Items[start:end] {
			events = append(events, kafka.Event{
				Key:     item.Key,
				Headers: headers,
				Value: AssignmentEvent{
					RunID:      a.RunID,
					Key:        item.Key,
					Cluster:    item.Cluster,
					Clusters:   a.Clusters,
					FinishedAt: a.FinishedAt,
				},
			})
		}
		if err := s.producer.PublishBatch(ctx, events); err != nil {
			return fmt.Errorf("publishing items %d-%d: %w", start, end-1, err)
		}
	}
	return nil
}

func (s *KafkaSink) Close() error { return s.producer.Close() }
