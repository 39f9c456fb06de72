// Package metrics defines the Prometheus collectors of a clustering run and
// exposes an HTTP handler for scraping long runs.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the clustering tool.
type Metrics struct {
	EpochsTotal       prometheus.Counter
	EpochDuration     prometheus.Histogram
	CurrentError      prometheus.Gauge
	LabelsChanged     prometheus.Gauge
	ClusterSize       *prometheus.GaugeVec
	DatasetItems      prometheus.Gauge
	RunsTotal         *prometheus.CounterVec
	SinkWritesTotal   *prometheus.CounterVec
	SinkWriteDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg. A nil reg uses a
// fresh private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		EpochsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "kkmeans_epochs_total",
				Help: "Total number of completed clustering epochs.",
			},
		),
		EpochDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "kkmeans_epoch_duration_seconds",
				Help:    "Wall time of one epoch (distance estimation and label improvement).",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
			},
		),
		CurrentError: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "kkmeans_current_error",
				Help: "Sum of each item's distance to its chosen cluster after the last epoch.",
			},
		),
		LabelsChanged: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "kkmeans_labels_changed",
				Help: "Number of items whose label changed in the last epoch.",
			},
		),
		ClusterSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kkmeans_cluster_size",
				Help: "Number of items assigned to each cluster after the last epoch.",
			},
			[]string{"cluster"},
		),
		DatasetItems: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "kkmeans_dataset_items",
				Help: "Number of items in the dataset being clustered.",
			},
		),
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kkmeans_runs_total",
				Help: "Clustering runs by outcome (converged, exhausted, failed).",
			},
			[]string{"outcome"},
		),
		SinkWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kkmeans_sink_writes_total",
				Help: "Result sink writes by sink and status.",
			},
			[]string{"sink", "status"},
		),
		SinkWriteDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kkmeans_sink_write_duration_seconds",
				Help:    "Result sink write latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"sink"},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		m.EpochsTotal,
		m.EpochDuration,
		m.CurrentError,
		m.LabelsChanged,
		m.ClusterSize,
		m.DatasetItems,
		m.RunsTotal,
		m.SinkWritesTotal,
		m.SinkWriteDuration,
	)

	return m
}

// ObserveEpoch records one completed epoch.
func (m *Metrics) ObserveEpoch(currentError float64, changed int, sizes []int, d time.Duration) {
	m.EpochsTotal.Inc()
	m.EpochDuration.Observe(d.Seconds())
	m.CurrentError.Set(currentError)
	m.LabelsChanged.Set(float64(changed))
	for k, n := range sizes {
		m.ClusterSize.WithLabelValues(strconv.Itoa(k)).Set(float64(n))
	}
}

// ObserveSinkWrite records the outcome of one sink write.
func (m *Metrics) ObserveSinkWrite(sink string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.SinkWritesTotal.WithLabelValues(sink, status).Inc()
	m.SinkWriteDuration.WithLabelValues(sink).Observe(d.Seconds())
}

// Handler returns the Prometheus scrape HTTP handler for these metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
