package core

import (
	"sync"
	"testing"
	"time"
)

// =============================================================================
// Test PanicHandler
// =============================================================================

// TestPanicHandler is a mock panic handler for testing
type TestPanicHandler struct {
	mu    sync.Mutex
	calls []PanicCall
}

type PanicCall struct {
	TaskID    TaskID
	Backend   Backend
	PanicInfo any
}

func NewTestPanicHandler() *TestPanicHandler {
	return &TestPanicHandler{}
}

func (h *TestPanicHandler) HandlePanic(taskID TaskID, backend Backend, panicInfo any, stackTrace []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.calls = append(h.calls, PanicCall{
		TaskID:    taskID,
		Backend:   backend,
		PanicInfo: panicInfo,
	})
}

func (h *TestPanicHandler) GetCalls() []PanicCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]PanicCall(nil), h.calls...)
}

func (h *TestPanicHandler) CallCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls)
}

func TestDefaultPanicHandler(t *testing.T) {
	// Given: A DefaultPanicHandler
	handler := &DefaultPanicHandler{}

	// When: HandlePanic is called
	handler.HandlePanic(42, Background, "test panic", []byte("stack trace"))

	// Then: No panic should occur (handler should not crash)
}

// =============================================================================
// Test Metrics
// =============================================================================

// TestMetrics is a mock metrics collector for testing
type TestMetrics struct {
	mu       sync.Mutex
	started  map[Backend]int
	finished map[TaskState]int
	handoffs map[[2]Backend]int
	ticks    int
	panics   []any
}

func NewTestMetrics() *TestMetrics {
	return &TestMetrics{
		started:  make(map[Backend]int),
		finished: make(map[TaskState]int),
		handoffs: make(map[[2]Backend]int),
	}
}

func (m *TestMetrics) RecordTaskStarted(backend Backend) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started[backend]++
}

func (m *TestMetrics) RecordTaskFinished(state TaskState, lifetime time.Duration, ticks int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished[state]++
}

func (m *TestMetrics) RecordHandoff(from, to Backend) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handoffs[[2]Backend{from, to}]++
}

func (m *TestMetrics) RecordTickDuration(duration time.Duration, stepped int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ticks++
}

func (m *TestMetrics) RecordActiveTasks(backend Backend, count int) {}

func (m *TestMetrics) RecordTaskPanic(backend Backend, panicInfo any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panics = append(m.panics, panicInfo)
}

func (m *TestMetrics) Started(b Backend) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started[b]
}

func (m *TestMetrics) Finished(s TaskState) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finished[s]
}

func (m *TestMetrics) Handoffs(from, to Backend) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handoffs[[2]Backend{from, to}]
}

func (m *TestMetrics) Ticks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ticks
}

func (m *TestMetrics) Panics() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.panics)
}

func TestNilMetrics(t *testing.T) {
	// Given: A NilMetrics instance
	metrics := &NilMetrics{}

	// When: All methods are called
	// Then: No panic should occur
	metrics.RecordTaskStarted(Cooperative)
	metrics.RecordTaskFinished(TaskStateCompleted, time.Second, 3)
	metrics.RecordHandoff(Cooperative, Background)
	metrics.RecordTickDuration(time.Millisecond, 4)
	metrics.RecordActiveTasks(Background, 2)
	metrics.RecordTaskPanic(Cooperative, "boom")
}

// =============================================================================
// SchedulerConfig
// =============================================================================

// TestDefaultSchedulerConfig verifies default handlers are populated
// Given: The default scheduler configuration
// When: Fields are inspected
// Then: Logger, PanicHandler and Metrics are non-nil
func TestDefaultSchedulerConfig(t *testing.T) {
	config := DefaultSchedulerConfig()

	if config.Logger == nil {
		t.Error("Logger should not be nil")
	}
	if config.PanicHandler == nil {
		t.Error("PanicHandler should not be nil")
	}
	if config.Metrics == nil {
		t.Error("Metrics should not be nil")
	}
}

// TestSchedulerConfig_PartialConfig verifies nil fields fall back to defaults
// Given: A config that only sets Metrics
// When: A scheduler is created
// Then: The scheduler fills logger and panic handler and uses the given metrics
func TestSchedulerConfig_PartialConfig(t *testing.T) {
	// Arrange
	metrics := NewTestMetrics()

	// Act
	s := NewScheduler(&SchedulerConfig{Metrics: metrics})
	s.Run(func() {}, Cooperative)
	s.Tick()

	// Assert
	if s.Logger() == nil {
		t.Fatal("Logger() should never be nil")
	}
	if got := metrics.Started(Cooperative); got != 1 {
		t.Fatalf("started = %d, want 1", got)
	}
	if got := metrics.Finished(TaskStateCompleted); got != 1 {
		t.Fatalf("completed = %d, want 1", got)
	}
}
