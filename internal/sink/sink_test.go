package sink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/kernel-kmeans/internal/clustering"
	apperrors "github.com/Adithya-Monish-Kumar-K/kernel-kmeans/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/kernel-kmeans/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/kernel-kmeans/pkg/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAssignment() Assignment {
	return Assignment{
		RunID: "run-1",
		Items: []ItemLabel{
			{Key: "a", Cluster: 1},
			{Key: "b", Cluster: 1},
			{Key: "c", Cluster: 0},
		},
		Clusters:   2,
		Epochs:     2,
		Error:      0.25,
		State:      "converged",
		FinishedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestNewAssignmentFollowsDatasetOrder(t *testing.T) {
	ds := clustering.NewDataset(map[string][]float64{"b": {1}, "a": {0}})
	labels, err := clustering.NewLabels(ds, 2, map[string]int{"a": 1, "b": 0})
	require.NoError(t, err)
	res := &clustering.Result{Labels: labels, State: clustering.StateConverged, Epochs: 3, Error: 1.5}

	a := NewAssignment("r", ds, res)
	assert.Equal(t, []ItemLabel{{Key: "a", Cluster: 1}, {Key: "b", Cluster: 0}}, a.Items)
	assert.Equal(t, 2, a.Clusters)
	assert.Equal(t, 3, a.Epochs)
	assert.Equal(t, "converged", a.State)
}

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriterSink(&buf).Write(context.Background(), sampleAssignment()))
	assert.Equal(t, "a 1\nb 1\nc 0\n", buf.String())
}

func TestFileSinkCreatesFileOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	s := NewFileSink(path)

	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))

	require.NoError(t, s.Write(context.Background(), sampleAssignment()))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a 1\nb 1\nc 0\n", string(data))
	assert.NoError(t, s.Close())
}

func TestFileSinkBadPath(t *testing.T) {
	s := NewFileSink(filepath.Join(t.TempDir(), "missing", "out.txt"))
	assert.Error(t, s.Write(context.Background(), sampleAssignment()))
}

type fakeHashWriter struct {
	hashes map[string]map[string]any
	ttls   map[string]time.Duration
	err    error
	closed bool
}

func (f *fakeHashWriter) WriteHash(_ context.Context, key string, fields map[string]any, ttl time.Duration) error {
	if f.err != nil {
		return f.err
	}
	if f.hashes == nil {
		f.hashes = make(map[string]map[string]any)
		f.ttls = make(map[string]time.Duration)
	}
	f.hashes[key] = fields
	f.ttls[key] = ttl
	return nil
}

func (f *fakeHashWriter) Close() error {
	f.closed = true
	return nil
}

func TestRedisSink(t *testing.T) {
	fake := &fakeHashWriter{}
	s := NewRedisSink(fake, "kkm", time.Hour)

	require.NoError(t, s.Write(context.Background(), sampleAssignment()))

	assert.Equal(t, map[string]any{"a": 1, "b": 1, "c": 0}, fake.hashes["kkm:run-1:labels"])
	assert.Equal(t, time.Hour, fake.ttls["kkm:run-1:labels"])
	summary := fake.hashes["kkm:run-1:summary"]
	assert.Equal(t, 2, summary["epochs"])
	assert.Equal(t, "converged", summary["state"])
	assert.Equal(t, "2026-01-02T03:04:05Z", summary["finished_at"])
	assert.Equal(t, map[string]any{"run_id": "run-1"}, fake.hashes["kkm:latest"])
	assert.Zero(t, fake.ttls["kkm:latest"])

	require.NoError(t, s.Close())
	assert.True(t, fake.closed)
}

func TestRedisSinkPropagatesErrors(t *testing.T) {
	s := NewRedisSink(&fakeHashWriter{err: errors.New("down")}, "kkm", 0)
	assert.ErrorContains(t, s.Write(context.Background(), sampleAssignment()), "storing labels")
}

type fakePublisher struct {
	batches [][]kafka.Event
	err     error
}

func (f *fakePublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, events)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func TestKafkaSinkBatches(t *testing.T) {
	a := sampleAssignment()
	a.Items = nil
	for i := 0; i < kafkaBatchSize+5; i++ {
		a.Items = append(a.Items, ItemLabel{Key: fmt.Sprintf("k%04d", i), Cluster: i % 2})
	}
	fake := &fakePublisher{}

	require.NoError(t, NewKafkaSink(fake).Write(context.Background(), a))

	require.Len(t, fake.batches, 2)
	assert.Len(t, fake.batches[0], kafkaBatchSize)
	assert.Len(t, fake.batches[1], 5)
	first := fake.batches[0][0]
	assert.Equal(t, "k0000", first.Key)
	assert.Equal(t, "run-1", first.Headers["run_id"])
	assert.Equal(t, AssignmentEvent{
		RunID: "run-1", Key: "k0000", Cluster: 0, Clusters: 2, FinishedAt: a.FinishedAt,
	}, first.Value)
}

func TestPostgresSchemaQuotesTable(t *testing.T) {
	sql := schemaSQL(`assign"ments`)
	assert.True(t, strings.HasPrefix(sql, `CREATE TABLE IF NOT EXISTS "assign""ments" (`))
	assert.Contains(t, sql, "PRIMARY KEY (run_id, item_key)")
}

type flakySink struct {
	name     string
	failures int
	calls    int
}

func (f *flakySink) Name() string { return f.name }

func (f *flakySink) Write(context.Context, Assignment) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("transient")
	}
	return nil
}

func (f *flakySink) Close() error { return nil }

type recordingObserver struct {
	writes map[string]error
}

func (r *recordingObserver) ObserveSinkWrite(name string, _ time.Duration, err error) {
	if r.writes == nil {
		r.writes = make(map[string]error)
	}
	r.writes[name] = err
}

func TestRetryingSink(t *testing.T) {
	flaky := &flakySink{name: "flaky", failures: 2}
	s := WithRetry(flaky, resilience.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond})

	require.NoError(t, s.Write(context.Background(), sampleAssignment()))
	assert.Equal(t, 3, flaky.calls)
	assert.Equal(t, "flaky", s.Name())
}

type pingingHashWriter struct {
	fakeHashWriter
	err error
}

func (p *pingingHashWriter) Ping(context.Context) error { return p.err }

func TestMultiProbes(t *testing.T) {
	down := errors.New("down")
	retry := resilience.RetryConfig{MaxAttempts: 1}
	m := NewMulti(nil,
		NewWriterSink(&bytes.Buffer{}),
		WithRetry(NewRedisSink(&pingingHashWriter{err: down}, "kkm", 0), retry),
		WithRetry(NewKafkaSink(&fakePublisher{}), retry),
	)

	probes := m.Probes()
	require.Len(t, probes, 1)
	require.Contains(t, probes, "redis")
	assert.ErrorIs(t, probes["redis"](context.Background()), down)
}

func TestMultiContinuesAfterFailure(t *testing.T) {
	broken := &flakySink{name: "broken", failures: 100}
	healthy := &flakySink{name: "healthy"}
	obs := &recordingObserver{}

	m := NewMulti(obs, broken, healthy)
	err := m.Write(context.Background(), sampleAssignment())

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrSinkFailed)
	assert.Contains(t, err.Error(), "broken")
	assert.Equal(t, 1, healthy.calls)
	assert.Error(t, obs.writes["broken"])
	assert.NoError(t, obs.writes["healthy"])
	assert.Equal(t, 2, m.Len())
	assert.NoError(t, m.Close())
}
