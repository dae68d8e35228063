package core

import (
	"fmt"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling step and listener panics
// =============================================================================

// PanicHandler is called when a step of a task, or one of its Complete or
// Aborted listeners, panics.
//
// Implementations should be thread-safe: step panics on background workers
// are reported from the worker goroutine.
type PanicHandler interface {
	// HandlePanic is called after the panic has been recovered.
	//
	// Parameters:
	// - taskID: The task whose step or listener panicked
	// - backend: The backend that was driving the task
	// - panicInfo: The recovered value
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(taskID TaskID, backend Backend, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler prints panic information to stdout.
type DefaultPanicHandler struct{}

// HandlePanic prints panic information to stdout.
func (h *DefaultPanicHandler) HandlePanic(taskID TaskID, backend Backend, panicInfo any, stackTrace []byte) {
	fmt.Printf("[Task %s @ %s] Panic: %v\nStack trace:\n%s", taskID, backend, panicInfo, stackTrace)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics collects scheduler metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods should be non-blocking and fast; RecordTickDuration runs on every
// Tick of the cooperative goroutine.
type Metrics interface {
	// RecordTaskStarted records that Run created a task on backend.
	RecordTaskStarted(backend Backend)

	// RecordTaskFinished records a task reaching a terminal state.
	RecordTaskFinished(state TaskState, lifetime time.Duration, ticks int64)

	// RecordHandoff records a task moving between backends.
	RecordHandoff(from, to Backend)

	// RecordTickDuration records one cooperative pass and how many tasks it stepped.
	RecordTickDuration(duration time.Duration, stepped int)

	// RecordActiveTasks records how many tasks a backend currently holds.
	RecordActiveTasks(backend Backend, count int)

	// RecordTaskPanic records a recovered step or listener panic.
	RecordTaskPanic(backend Backend, panicInfo any)
}

// NilMetrics provides a no-op metrics implementation.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

func (m *NilMetrics) RecordTaskStarted(backend Backend)                                       {}
func (m *NilMetrics) RecordTaskFinished(state TaskState, lifetime time.Duration, ticks int64) {}
func (m *NilMetrics) RecordHandoff(from, to Backend)                                          {}
func (m *NilMetrics) RecordTickDuration(duration time.Duration, stepped int)                  {}
func (m *NilMetrics) RecordActiveTasks(backend Backend, count int)                            {}
func (m *NilMetrics) RecordTaskPanic(backend Backend, panicInfo any)                          {}

// =============================================================================
// SchedulerConfig: Configuration for Scheduler
// =============================================================================

// SchedulerConfig holds configuration options for Scheduler.
// All fields are optional; zero values fall back to defaults.
type SchedulerConfig struct {
	// Logger receives scheduler diagnostics. Defaults to NoOpLogger.
	Logger Logger

	// PanicHandler is called when a step or listener panics. Defaults to DefaultPanicHandler.
	PanicHandler PanicHandler

	// Metrics records scheduler metrics. Defaults to NilMetrics.
	Metrics Metrics

	// HistoryCapacity bounds the finished-task history. Defaults to 100.
	HistoryCapacity int

	// InitialCapacity presizes the registry and the cooperative active list. Defaults to 32.
	InitialCapacity int
}

// DefaultSchedulerConfig returns a config with default handlers.
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		Logger:          NewNoOpLogger(),
		PanicHandler:    &DefaultPanicHandler{},
		Metrics:         &NilMetrics{},
		HistoryCapacity: defaultTaskHistoryCapacity,
		InitialCapacity: defaultSequenceCap,
	}
}
