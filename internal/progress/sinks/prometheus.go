package sinks

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/graviris/wildweb-scraper/internal/progress"
)

// PrometheusSink exports scrape progress metrics via Prometheus. It owns all
// collectors for cycles started/completed/running and per-state center
// harvest counters.
type PrometheusSink struct {
	cyclesStarted   prometheus.Counter
	cyclesCompleted *prometheus.CounterVec
	cyclesRunning   prometheus.Gauge
	cycleRuntime    *prometheus.HistogramVec

	centerHarvests  *prometheus.CounterVec
	centerRows      *prometheus.CounterVec
	harvestDuration *prometheus.HistogramVec
	incidentsSaved  prometheus.Counter

	tracker *cycleTracker
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		cyclesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scraper_cycles_started_total",
			Help: "Total scrape cycles that have started.",
		}),
		cyclesCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scraper_cycles_completed_total",
			Help: "Total scrape cycles completed partitioned by result.",
		}, []string{"result"}),
		cyclesRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scraper_cycles_running",
			Help: "Current number of running scrape cycles.",
		}),
		cycleRuntime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scraper_cycle_runtime_seconds",
			Help:    "Wall time per completed scrape cycle.",
			Buckets: []float64{30, 60, 120, 300, 600, 1200, 1800, 3600},
		}, []string{"result"}),
		centerHarvests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scraper_center_harvests_total",
			Help: "Center harvest completions partitioned by state and result.",
		}, []string{"state", "result"}),
		centerRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scraper_center_rows_total",
			Help: "Grid rows harvested per state.",
		}, []string{"state"}),
		harvestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scraper_center_harvest_duration_seconds",
			Help:    "Center harvest duration partitioned by state and result.",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		}, []string{"state", "result"}),
		incidentsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scraper_incidents_saved_total",
			Help: "Incident rows written across all cycles.",
		}),
		tracker: newCycleTracker(),
	}
	for _, collector := range []prometheus.Collector{
		s.cyclesStarted,
		s.cyclesCompleted,
		s.cyclesRunning,
		s.cycleRuntime,
		s.centerHarvests,
		s.centerRows,
		s.harvestDuration,
		s.incidentsSaved,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the Prometheus collectors using the provided batch. It is
// safe for concurrent use by multiple goroutines.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	switch evt.Stage {
	case progress.StageCycleStart, progress.StageCycleDone, progress.StageCycleError:
		s.handleCycleEvent(evt)
	case progress.StageCenterDone, progress.StageCenterError:
		s.handleCenterEvent(evt)
	}
}

func (s *PrometheusSink) handleCycleEvent(evt progress.Event) {
	switch evt.Stage {
	case progress.StageCycleStart:
		s.cyclesStarted.Inc()
		if s.tracker.start(evt.CycleID) {
			s.cyclesRunning.Inc()
		}
	case progress.StageCycleDone:
		s.cyclesCompleted.WithLabelValues("success").Inc()
		s.observeRuntime(evt, "success")
	case progress.StageCycleError:
		s.cyclesCompleted.WithLabelValues("error").Inc()
		s.observeRuntime(evt, "error")
	}
	if evt.Stage != progress.StageCycleStart && s.tracker.complete(evt.CycleID) {
		s.cyclesRunning.Dec()
	}
	if evt.Counters.IncidentsSaved > 0 && evt.Stage != progress.StageCycleStart {
		s.incidentsSaved.Add(float64(evt.Counters.IncidentsSaved))
	}
}

func (s *PrometheusSink) observeRuntime(evt progress.Event, label string) {
	if evt.Dur > 0 {
		s.cycleRuntime.WithLabelValues(label).Observe(evt.Dur.Seconds())
	}
}

func (s *PrometheusSink) handleCenterEvent(evt progress.Event) {
	state := evt.State
	if state == "" {
		state = "unknown"
	}
	result := "success"
	if evt.Stage == progress.StageCenterError {
		result = "error"
	}
	s.centerHarvests.WithLabelValues(state, result).Inc()
	if evt.Rows > 0 {
		s.centerRows.WithLabelValues(state).Add(float64(evt.Rows))
	}
	if evt.Dur > 0 {
		s.harvestDuration.WithLabelValues(state, result).Observe(evt.Dur.Seconds())
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}

type cycleTracker struct {
	mu      sync.Mutex
	running map[[16]byte]struct{}
}

func newCycleTracker() *cycleTracker {
	return &cycleTracker{running: make(map[[16]byte]struct{})}
}

func (t *cycleTracker) start(id [16]byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; ok {
		return false
	}
	t.running[id] = struct{}{}
	return true
}

func (t *cycleTracker) complete(id [16]byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; !ok {
		return false
	}
	delete(t.running, id)
	return true
}
