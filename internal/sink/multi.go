package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/kernel-kmeans/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/kernel-kmeans/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/kernel-kmeans/pkg/tracing"
)

// WriteObserver is notified of every sink write.
type WriteObserver interface {
	ObserveSinkWrite(sink string, d time.Duration, err error)
}

// Retrying retries failed writes of the wrapped sink.
type Retrying struct {
	Sink
	cfg resilience.RetryConfig
}

func WithRetry(s Sink, cfg resilience.RetryConfig) *Retrying {
	return &Retrying{Sink: s, cfg: cfg}
}

func (r *Retrying) Write(ctx context.Context, a Assignment) error {
	return resilience.Retry(ctx, "sink:"+r.Name(), r.cfg, func(ctx context.Context) error {
		return r.Sink.Write(ctx, a)
	})
}

func (r *Retrying) Ping(ctx context.Context) error { return ping(ctx, r.Sink) }

// Multi writes an assignment to every sink in order. A failing sink does not
// stop the others; all failures are reported together.
type Multi struct {
	sinks    []Sink
	observer WriteObserver
	logger   *slog.Logger
}

func NewMulti(observer WriteObserver, sinks ...Sink) *Multi {
	return &Multi{
		sinks:    sinks,
		observer: observer,
		logger:   slog.Default().With("component", "sink"),
	}
}

func (m *Multi) Len() int { return len(m.sinks) }

func (m *Multi) Write(ctx context.Context, a Assignment) error {
	var errs []error
	for _, s := range m.sinks {
		_, span := tracing.StartChildSpan(ctx, "sink")
		span.SetAttr("sink", s.Name())
		start := time.Now()
		err := s.Write(ctx, a)
		elapsed := time.Since(start)
		span.End()

		if m.observer != nil {
			m.observer.ObserveSinkWrite(s.Name(), elapsed, err)
		}
		if err != nil {
			m.logger.Error("sink write failed", "sink", s.Name(), "run_id", a.RunID, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		m.logger.Info("assignments written",
			"sink", s.Name(),
			"run_id", a.RunID,
			"items", len(a.Items),
			"duration_ms", elapsed.Milliseconds(),
		)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", apperrors.ErrSinkFailed, errors.Join(errs...))
	}
	return nil
}

// Probes returns a reachability check for every sink that supports one,
// keyed by sink name.
func (m *Multi) Probes() map[string]func(context.Context) error {
	probes := make(map[string]func(context.Context) error)
	for _, s := range m.sinks {
		if pingable(s) {
			probes[s.Name()] = s.(Pinger).Ping
		}
	}
	return probes
}

func pingable(s Sink) bool {
	if r, ok := s.(*Retrying); ok {
		return pingable(r.Sink)
	}
	_, ok := s.(Pinger)
	return ok
}

func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
