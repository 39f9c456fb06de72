package clustering

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/kernel-kmeans/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/kernel-kmeans/pkg/tracing"
)

// State is the convergence state of a Loop run.
type State int

const (
	StateRunning State = iota
	StateConverged
	// StateExhausted means MaxEpochs was reached with labels still changing.
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateConverged:
		return "converged"
	case StateExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// EpochStats describes one completed epoch.
type EpochStats struct {
	Epoch    int
	Error    float64
	Changed  int
	Sizes    []int
	Duration time.Duration
}

// EpochRecorder observes completed epochs, typically to export metrics.
type EpochRecorder interface {
	RecordEpoch(EpochStats)
}

// Options configures a Loop.
type Options struct {
	Clusters    int
	KernelParam float64
	// MaxEpochs bounds the number of epochs. Zero runs until label-stable.
	MaxEpochs int
	Workers   int
	Recorder  EpochRecorder
}

// Result is the outcome of a Loop run.
type Result struct {
	Labels *Labels
	State  State
	// Epochs is the number of epochs executed.
	Epochs int
	// Error is the diagnostic error of the last epoch.
	Error   float64
	History []EpochStats
}

// Loop alternates distance estimation and label improvement until an epoch
// changes no label.
type Loop struct {
	opts      Options
	estimator *Estimator
	logger    *slog.Logger
}

func NewLoop(opts Options) (*Loop, error) {
	if opts.Clusters <= 0 {
		return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "clusters must be positive, got %d", opts.Clusters)
	}
	if opts.MaxEpochs < 0 {
		return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "maxEpochs must not be negative, got %d", opts.MaxEpochs)
	}
	return &Loop{
		opts:      opts,
		estimator: NewEstimator(opts.KernelParam, opts.Workers),
		logger:    slog.Default().With("component", "convergence-loop"),
	}, nil
}

// Run clusters ds starting from the hash-derived initial labels.
func (l *Loop) Run(ctx context.Context, ds *Dataset) (*Result, error) {
	return l.RunFrom(ctx, ds, InitLabels(ds, l.opts.Clusters))
}

// RunFrom clusters ds starting from labels, which it updates in place. When
// MaxEpochs is reached first the returned Result holds the last labels and the
// error wraps ErrNotConverged.
func (l *Loop) RunFrom(ctx context.Context, ds *Dataset, labels *Labels) (*Result, error) {
	if labels.Clusters() != l.opts.Clusters || labels.Len() != ds.Len() {
		return nil, apperrors.Newf(apperrors.ErrInternal,
			"labels cover %d items in %d clusters, dataset has %d items and loop expects %d clusters",
			labels.Len(), labels.Clusters(), ds.Len(), l.opts.Clusters)
	}

	res := &Result{Labels: labels, State: StateRunning}
	l.logger.Info("clustering started",
		"items", ds.Len(),
		"clusters", l.opts.Clusters,
		"kernel_param", l.opts.KernelParam,
		"max_epochs", l.opts.MaxEpochs,
	)

	for epoch := 0; res.State == StateRunning; epoch++ {
		if l.opts.MaxEpochs > 0 && epoch >= l.opts.MaxEpochs {
			res.State = StateExhausted
			break
		}
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("clustering cancelled before epoch %d: %w", epoch, err)
		}

		stats, converged, err := l.epoch(ctx, ds, labels, epoch)
		if err != nil {
			return res, fmt.Errorf("epoch %d: %w", epoch, err)
		}
		res.Epochs++
		res.Error = stats.Error
		res.History = append(res.History, stats)
		if converged {
			res.State = StateConverged
		}
	}

	l.logger.Info("clustering finished",
		"state", res.State.String(),
		"epochs", res.Epochs,
		"current_error", res.Error,
	)
	if res.State == StateExhausted {
		return res, apperrors.Newf(apperrors.ErrNotConverged,
			"labels still changing after %d epochs", res.Epochs)
	}
	return res, nil
}

func (l *Loop) epoch(ctx context.Context, ds *Dataset, labels *Labels, epoch int) (EpochStats, bool, error) {
	ctx, span := tracing.StartChildSpan(ctx, "epoch")
	defer span.End()
	start := time.Now()

	l.logger.Debug("epoch started", "epoch", epoch)
	table, err := l.estimator.Estimate(ctx, ds, labels)
	if err != nil {
		return EpochStats{}, false, err
	}
	improved := Improve(table, labels)

	stats := EpochStats{
		Epoch:    epoch,
		Error:    improved.Error,
		Changed:  improved.Changed,
		Sizes:    labels.Histogram(),
		Duration: time.Since(start),
	}
	span.SetAttr("epoch", epoch)
	span.SetAttr("changed", improved.Changed)
	span.SetAttr("current_error", improved.Error)

	l.logger.Info("epoch complete",
		"epoch", epoch,
		"current_error", improved.Error,
		"changed", improved.Changed,
		"duration_ms", stats.Duration.Milliseconds(),
	)
	if l.opts.Recorder != nil {
		l.opts.Recorder.RecordEpoch(stats)
	}
	return stats, improved.Converged, nil
}
