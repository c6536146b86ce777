// Package metrics exposes Prometheus counters for the recording engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine's Prometheus counters and gauges.
type Metrics struct {
	registry        *prometheus.Registry
	tasksStarted    prometheus.Counter
	tasksCompleted  prometheus.Counter
	tasksDiscarded  prometheus.Counter
	tasksFailed     *prometheus.CounterVec
	activeTasks     prometheus.Gauge
	pollCyclesTotal prometheus.Counter
}

// New creates and registers the engine metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	tasksStarted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rec_tasks_started_total",
		Help: "Total number of recording tasks dispatched",
	})
	tasksCompleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rec_tasks_completed_total",
		Help: "Total number of tasks that uploaded and persisted a recording",
	})
	tasksDiscarded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rec_tasks_discarded_total",
		Help: "Total number of recordings discarded for falling below the minimum duration",
	})
	tasksFailed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rec_tasks_failed_total",
		Help: "Total number of tasks aborted, by pipeline stage",
	}, []string{"stage"})
	activeTasks := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rec_active_tasks",
		Help: "Number of recording tasks currently in flight",
	})
	pollCyclesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rec_poll_cycles_total",
		Help: "Total number of completed poll cycles",
	})

	registry.MustRegister(
		tasksStarted,
		tasksCompleted,
		tasksDiscarded,
		tasksFailed,
		activeTasks,
		pollCyclesTotal,
	)

	return &Metrics{
		registry:        registry,
		tasksStarted:    tasksStarted,
		tasksCompleted:  tasksCompleted,
		tasksDiscarded:  tasksDiscarded,
		tasksFailed:     tasksFailed,
		activeTasks:     activeTasks,
		pollCyclesTotal: pollCyclesTotal,
	}
}

// IncTasksStarted increments the dispatched task counter.
func (m *Metrics) IncTasksStarted() { m.tasksStarted.Inc() }

// IncTasksCompleted increments the completed task counter.
func (m *Metrics) IncTasksCompleted() { m.tasksCompleted.Inc() }

// IncTasksDiscarded increments the too-short recording counter.
func (m *Metrics) IncTasksDiscarded() { m.tasksDiscarded.Inc() }

// IncTasksFailed increments the failure counter for the given stage.
func (m *Metrics) IncTasksFailed(stage string) { m.tasksFailed.WithLabelValues(stage).Inc() }

// SetActiveTasks sets the in-flight tasks gauge.
func (m *Metrics) SetActiveTasks(n int) { m.activeTasks.Set(float64(n)) }

// IncPollCycles increments the poll cycle counter.
func (m *Metrics) IncPollCycles() { m.pollCyclesTotal.Inc() }

// Handler returns an http.Handler serving the registry. updateGauges, if not
// nil, runs before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
