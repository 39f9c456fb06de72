// Package health reports the progress of a clustering run and the
// reachability of its result sinks over HTTP, next to the metrics endpoint.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

// Phase is the stage a run is in.
type Phase string

const (
	PhaseStarting   Phase = "starting"
	PhaseReading    Phase = "reading"
	PhaseClustering Phase = "clustering"
	PhaseWriting    Phase = "writing"
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
)

// Probe checks one dependency; a nil error means reachable.
type Probe func(ctx context.Context) error

type ProbeResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency"`
}

type Report struct {
	Status       Status                 `json:"status"`
	Phase        Phase                  `json:"phase"`
	RunID        string                 `json:"run_id,omitempty"`
	Epochs       int                    `json:"epochs"`
	CurrentError float64                `json:"current_error"`
	Changed      int                    `json:"changed"`
	Probes       map[string]ProbeResult `json:"probes,omitempty"`
	Timestamp    string                 `json:"timestamp"`
}

// Tracker holds the live state of one run. A nil *Tracker ignores updates,
// so callers need not check whether reporting is enabled.
type Tracker struct {
	mu           sync.RWMutex
	runID        string
	phase        Phase
	epochs       int
	currentError float64
	changed      int
	probes       map[string]Probe
	logger       *slog.Logger
}

func NewTracker() *Tracker {
	return &Tracker{
		phase:  PhaseStarting,
		probes: make(map[string]Probe),
		logger: slog.Default().With("component", "health"),
	}
}

func (t *Tracker) Register(name string, p Probe) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.probes[name] = p
}

func (t *Tracker) Start(runID string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.runID = runID
	t.phase = PhaseStarting
	t.epochs, t.currentError, t.changed = 0, 0, 0
}

func (t *Tracker) SetPhase(p Phase) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phase = p
}

// Epoch records the outcome of a finished epoch; completed counts the epochs
// run so far.
func (t *Tracker) Epoch(completed int, currentError float64, changed int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.epochs = completed
	t.currentError = currentError
	t.changed = changed
}

// Report runs every probe concurrently and combines the results with the run
// state. A failed run is down; an unreachable dependency degrades the run.
func (t *Tracker) Report(ctx context.Context) Report {
	t.mu.RLock()
	report := Report{
		Status:       StatusUp,
		Phase:        t.phase,
		RunID:        t.runID,
		Epochs:       t.epochs,
		CurrentError: t.currentError,
		Changed:      t.changed,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}
	probes := make(map[string]Probe, len(t.probes))
	for name, p := range t.probes {
		probes[name] = p
	}
	t.mu.RUnlock()

	if len(probes) > 0 {
		report.Probes = make(map[string]ProbeResult, len(probes))
		var (
			wg sync.WaitGroup
			mu sync.Mutex
		)
		for name, p := range probes {
			wg.Go(func() {
				start := time.Now()
				res := ProbeResult{Status: StatusUp}
				if err := p(ctx); err != nil {
					res.Status = StatusDown
					res.Message = err.Error()
					t.logger.Warn("probe failed", "probe", name, "error", err)
				}
				res.Latency = time.Since(start).Round(time.Millisecond).String()
				mu.Lock()
				report.Probes[name] = res
				mu.Unlock()
			})
		}
		wg.Wait()
		for _, res := range report.Probes {
			if res.Status != StatusUp {
				report.Status = StatusDegraded
			}
		}
	}
	if report.Phase == PhaseFailed {
		report.Status = StatusDown
	}
	return report
}

// LiveHandler answers 200 while the process is serving.
func (t *Tracker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	}
}

// ReadyHandler answers with the full Report, 200 only when the status is up.
func (t *Tracker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		report := t.Report(ctx)
		code := http.StatusOK
		if report.Status != StatusUp {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, report)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding health response", "error", err)
	}
}
