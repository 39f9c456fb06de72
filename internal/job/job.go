// Package job runs one clustering job end to end: read and validate the
// dataset, cluster it, and publish the assignment to the configured sinks.
package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/kernel-kmeans/internal/clustering"
	"github.com/Adithya-Monish-Kumar-K/kernel-kmeans/internal/ingest"
	"github.com/Adithya-Monish-Kumar-K/kernel-kmeans/internal/sink"
	"github.com/Adithya-Monish-Kumar-K/kernel-kmeans/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/kernel-kmeans/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/kernel-kmeans/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/kernel-kmeans/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/kernel-kmeans/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/kernel-kmeans/pkg/tracing"
)

// Outcome labels of kkmeans_runs_total.
const (
	outcomeConverged = "converged"
	outcomeExhausted = "exhausted"
	outcomeFailed    = "failed"
)

// Job wires a configuration to its collaborators.
type Job struct {
	cfg     *config.Config
	reader  *ingest.Reader
	sinks   *sink.Multi
	metrics *metrics.Metrics
	tracker *health.Tracker
}

// New creates a Job. m may be nil.
func New(cfg *config.Config, sinks *sink.Multi, m *metrics.Metrics) *Job {
	return &Job{
		cfg:     cfg,
		reader:  ingest.NewReader(),
		sinks:   sinks,
		metrics: m,
	}
}

// WithTracker makes the job publish its progress to t.
func (j *Job) WithTracker(t *health.Tracker) *Job {
	j.tracker = t
	return j
}

// Report summarizes a finished job.
type Report struct {
	RunID  string
	Items  int
	Result *clustering.Result
}

// Run executes the job. Results are published only when clustering
// converged; a dataset or configuration error leaves every sink untouched.
func (j *Job) Run(ctx context.Context) (*Report, error) {
	runID := uuid.NewString()
	j.tracker.Start(runID)
	ctx = logger.WithRunID(ctx, runID)
	log := logger.FromContext(ctx)

	ctx, span := tracing.StartSpan(ctx, "run")
	span.SetAttr("run_id", runID)
	defer func() {
		span.End()
		if j.cfg.Tracing.Enabled {
			span.Log(log)
		}
	}()

	report, err := j.run(ctx, runID, log)
	if err != nil {
		j.tracker.SetPhase(health.PhaseFailed)
		j.countRun(outcomeFailed, err)
		return report, err
	}
	j.tracker.SetPhase(health.PhaseDone)
	j.countRun(outcomeConverged, nil)
	return report, nil
}

func (j *Job) run(ctx context.Context, runID string, log *slog.Logger) (*Report, error) {
	j.tracker.SetPhase(health.PhaseReading)
	ds, err := j.reader.ReadFile(j.cfg.Input.Path)
	if err != nil {
		return nil, err
	}
	if err := ingest.Validate(ds, j.cfg.Input); err != nil {
		return nil, err
	}
	if ds.Len() == 0 {
		log.Warn("dataset is empty, nothing to cluster")
	}
	if j.metrics != nil {
		j.metrics.DatasetItems.Set(float64(ds.Len()))
	}

	opts := clustering.Options{
		Clusters:    j.cfg.Clustering.Clusters,
		KernelParam: j.cfg.Clustering.KernelParam,
		MaxEpochs:   j.cfg.Clustering.MaxEpochs,
		Workers:     j.cfg.Clustering.Workers,
	}
	opts.Recorder = epochRecorder{m: j.metrics, tracker: j.tracker}
	loop, err := clustering.NewLoop(opts)
	if err != nil {
		return nil, err
	}

	j.tracker.SetPhase(health.PhaseClustering)
	res, err := loop.Run(ctx, ds)
	report := &Report{RunID: runID, Items: ds.Len(), Result: res}
	if err != nil {
		return report, fmt.Errorf("clustering: %w", err)
	}

	j.tracker.SetPhase(health.PhaseWriting)
	if err := j.sinks.Write(ctx, sink.NewAssignment(runID, ds, res)); err != nil {
		return report, err
	}
	log.Info("job complete",
		"items", ds.Len(),
		"epochs", res.Epochs,
		"current_error", res.Error,
		"sinks", j.sinks.Len(),
	)
	return report, nil
}

func (j *Job) countRun(outcome string, err error) {
	if j.metrics == nil {
		return
	}
	if errors.Is(err, apperrors.ErrNotConverged) {
		outcome = outcomeExhausted
	}
	j.metrics.RunsTotal.WithLabelValues(outcome).Inc()
}

// epochRecorder forwards epoch statistics to metrics and the progress
// tracker; either may be nil.
type epochRecorder struct {
	m       *metrics.Metrics
	tracker *health.Tracker
}

func (r epochRecorder) RecordEpoch(s clustering.EpochStats) {
	if r.m != nil {
		r.m.ObserveEpoch(s.Error, s.Changed, s.Sizes, s.Duration)
	}
	r.tracker.Epoch(s.Epoch+1, s.Error, s.Changed)
}
