package sink

import (
	"context"
	"fmt"
	"time"
)

// hashWriter is the subset of pkg/redis.Client used by RedisSink.
type hashWriter interface {
	WriteHash(ctx context.Context, key string, fields map[string]any, ttl time.Duration) error
	Close() error
}

// RedisSink stores a run as three hashes:
//
//	<prefix>:<run>:labels   item key -> cluster
//	<prefix>:<run>:summary  clusters, epochs, error, state, finished_at
//	<prefix>:latest         run_id of the most recent run
type RedisSink struct {
	client hashWriter
	prefix string
	ttl    time.Duration
}

func NewRedisSink(client hashWriter, prefix string, ttl time.Duration) *RedisSink {
	return &RedisSink{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Write(ctx context.Context, a Assignment) error {
	labels := make(map[string]any, len(a.Items))
	for _, item := range a.Items {
		labels[item.Key] = item.Cluster
	}
	if err := s.client.WriteHash(ctx, s.key(a.RunID, "labels"), labels, s.ttl); err != nil {
		return fmt.Errorf("storing labels: %w", err)
	}

	summary := map[string]any{
		"clusters":    a.Clusters,
		"items":       len(a.Items),
		"epochs":      a.Epochs,
		"error":       a.Error,
		"state":       a.State,
		"finished_at": a.FinishedAt.Format(time.RFC3339),
	}
	if err := s.client.WriteHash(ctx, s.key(a.RunID, "summary"), summary, s.ttl); err != nil {
		return fmt.Errorf("storing summary: %w", err)
	}

	latest := map[string]any{"run_id": a.RunID}
	if err := s.client.WriteHash(ctx, s.prefix+":latest", latest, 0); err != nil {
		return fmt.Errorf("storing latest run: %w", err)
	}
	return nil
}

func (s *RedisSink) key(runID, part string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, runID, part)
}

func (s *RedisSink) Ping(ctx context.Context) error { return ping(ctx, s.client) }

func (s *RedisSink) Close() error { return s.client.Close() }
