package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveEpoch(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveEpoch(4.5, 3, []int{2, 0, 5}, 20*time.Millisecond)
	m.ObserveEpoch(1.25, 0, []int{3, 1, 3}, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EpochsTotal))
	assert.Equal(t, 1.25, testutil.ToFloat64(m.CurrentError))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.LabelsChanged))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ClusterSize.WithLabelValues("1")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ClusterSize.WithLabelValues("2")))
}

func TestObserveSinkWrite(t *testing.T) {
	m := New(nil)

	m.ObserveSinkWrite("redis", time.Millisecond, nil)
	m.ObserveSinkWrite("redis", time.Millisecond, errors.New("down"))
	m.ObserveSinkWrite("file", time.Millisecond, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SinkWritesTotal.WithLabelValues("redis", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SinkWritesTotal.WithLabelValues("redis", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SinkWritesTotal.WithLabelValues("file", "ok")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New(nil)
	m.RunsTotal.WithLabelValues("converged").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `kkmeans_runs_total{outcome="converged"} 1`)
}
