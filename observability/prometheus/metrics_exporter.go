package prometheus

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Swind/go-coop-task/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	// LifetimeBuckets are the task lifetime histogram buckets in seconds.
	LifetimeBuckets []float64

	// TickBuckets are the Tick duration histogram buckets in seconds.
	TickBuckets []float64
}

// DefaultTickBuckets spans 10µs to ~80ms, the useful range for a frame-rate Tick.
var DefaultTickBuckets = prom.ExponentialBuckets(0.00001, 2, 14)

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	tasksStartedTotal   *prom.CounterVec
	tasksFinishedTotal  *prom.CounterVec
	taskLifetimeSeconds *prom.HistogramVec
	taskTicks           *prom.HistogramVec
	handoffsTotal       *prom.CounterVec
	tickDurationSeconds prom.Histogram
	tickSteppedTasks    prom.Gauge
	activeTasks         *prom.GaugeVec
	taskPanicTotal      *prom.CounterVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "cooptask"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	lifetimeBuckets := opts.LifetimeBuckets
	if len(lifetimeBuckets) == 0 {
		lifetimeBuckets = prom.DefBuckets
	}
	tickBuckets := opts.TickBuckets
	if len(tickBuckets) == 0 {
		tickBuckets = DefaultTickBuckets
	}

	startedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_started_total",
		Help:      "Total number of tasks scheduled, by initial backend.",
	}, []string{"backend"})
	finishedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_finished_total",
		Help:      "Total number of finalized tasks, by terminal state.",
	}, []string{"state"})
	lifetimeVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "task_lifetime_seconds",
		Help:      "Time from scheduling to finalization in seconds.",
		Buckets:   lifetimeBuckets,
	}, []string{"state"})
	ticksVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "task_ticks",
		Help:      "Steps taken by a task before finalization.",
		Buckets:   prom.ExponentialBuckets(1, 2, 12),
	}, []string{"state"})
	handoffVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "handoffs_total",
		Help:      "Total number of backend hand-offs.",
	}, []string{"from", "to"})
	tickDuration := prom.NewHistogram(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "tick_duration_seconds",
		Help:      "Duration of one cooperative pass in seconds.",
		Buckets:   tickBuckets,
	})
	tickStepped := prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "tick_stepped_tasks",
		Help:      "Tasks stepped by the most recent cooperative pass.",
	})
	activeVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "active_tasks",
		Help:      "Tasks currently owned by each backend.",
	}, []string{"backend"})
	panicVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_panic_total",
		Help:      "Total number of recovered panics, by backend.",
	}, []string{"backend"})

	var err error
	if startedVec, err = registerCollector(reg, startedVec); err != nil {
		return nil, err
	}
	if finishedVec, err = registerCollector(reg, finishedVec); err != nil {
		return nil, err
	}
	if lifetimeVec, err = registerCollector(reg, lifetimeVec); err != nil {
		return nil, err
	}
	if ticksVec, err = registerCollector(reg, ticksVec); err != nil {
		return nil, err
	}
	if handoffVec, err = registerCollector(reg, handoffVec); err != nil {
		return nil, err
	}
	if tickDuration, err = registerCollector(reg, tickDuration); err != nil {
		return nil, err
	}
	if tickStepped, err = registerCollector(reg, tickStepped); err != nil {
		return nil, err
	}
	if activeVec, err = registerCollector(reg, activeVec); err != nil {
		return nil, err
	}
	if panicVec, err = registerCollector(reg, panicVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		tasksStartedTotal:   startedVec,
		tasksFinishedTotal:  finishedVec,
		taskLifetimeSeconds: lifetimeVec,
		taskTicks:           ticksVec,
		handoffsTotal:       handoffVec,
		tickDurationSeconds: tickDuration,
		tickSteppedTasks:    tickStepped,
		activeTasks:         activeVec,
		taskPanicTotal:      panicVec,
	}, nil
}

// RecordTaskStarted counts a newly scheduled task.
func (m *MetricsExporter) RecordTaskStarted(backend core.Backend) {
	if m == nil {
		return
	}
	m.tasksStartedTotal.WithLabelValues(backendLabel(backend)).Inc()
}

// RecordTaskFinished records a finalized task's outcome, lifetime and ticks.
func (m *MetricsExporter) RecordTaskFinished(state core.TaskState, lifetime time.Duration, ticks int64) {
	if m == nil {
		return
	}
	label := stateLabel(state)
	m.tasksFinishedTotal.WithLabelValues(label).Inc()
	m.taskLifetimeSeconds.WithLabelValues(label).Observe(lifetime.Seconds())
	m.taskTicks.WithLabelValues(label).Observe(float64(ticks))
}

// RecordHandoff counts a backend hand-off.
func (m *MetricsExporter) RecordHandoff(from, to core.Backend) {
	if m == nil {
		return
	}
	m.handoffsTotal.WithLabelValues(backendLabel(from), backendLabel(to)).Inc()
}

// RecordTickDuration records one cooperative pass.
func (m *MetricsExporter) RecordTickDuration(duration time.Duration, stepped int) {
	if m == nil {
		return
	}
	m.tickDurationSeconds.Observe(duration.Seconds())
	m.tickSteppedTasks.Set(float64(stepped))
}

// RecordActiveTasks records how many tasks a backend currently owns.
func (m *MetricsExporter) RecordActiveTasks(backend core.Backend, count int) {
	if m == nil {
		return
	}
	m.activeTasks.WithLabelValues(backendLabel(backend)).Set(float64(count))
}

// RecordTaskPanic records task panic events.
func (m *MetricsExporter) RecordTaskPanic(backend core.Backend, panicInfo any) {
	if m == nil {
		return
	}
	m.taskPanicTotal.WithLabelValues(backendLabel(backend)).Inc()
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func backendLabel(b core.Backend) string {
	switch b {
	case core.Cooperative:
		return "cooperative"
	case core.Background:
		return "background"
	default:
		return "unknown"
	}
}

func stateLabel(s core.TaskState) string {
	switch s {
	case core.TaskStateCompleted:
		return "completed"
	case core.TaskStateAborted:
		return "aborted"
	default:
		return strings.ToLower(s.String())
	}
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
