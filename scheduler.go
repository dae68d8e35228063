package cooptask

import (
	"sync"
	"time"

	"github.com/Swind/go-coop-task/core"
)

// =============================================================================
// Global Scheduler Helper (Singleton)
// =============================================================================

var (
	globalDriver *core.TickDriver
	globalMu     sync.Mutex
)

// InitGlobalScheduler creates the global scheduler and starts a tick driver
// for it at interval. A non-positive interval uses core.DefaultTickInterval.
// Calls after the first are no-ops until ShutdownGlobalScheduler.
func InitGlobalScheduler(interval time.Duration) {
	InitGlobalSchedulerWithConfig(interval, nil)
}

// InitGlobalSchedulerWithConfig is InitGlobalScheduler with a custom config.
func InitGlobalSchedulerWithConfig(interval time.Duration, config *core.SchedulerConfig) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalDriver != nil {
		return // Already initialized
	}

	globalDriver = core.NewTickDriver(core.NewScheduler(config), interval)
	globalDriver.Start()
}

// GetGlobalScheduler returns the global scheduler instance.
// It panics if InitGlobalScheduler has not been called.
func GetGlobalScheduler() *Scheduler {
	return GetGlobalTickDriver().Scheduler()
}

// GetGlobalTickDriver returns the driver of the global scheduler.
// It panics if InitGlobalScheduler has not been called.
func GetGlobalTickDriver() *TickDriver {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalDriver == nil {
		panic("GlobalScheduler not initialized. Call InitGlobalScheduler() first.")
	}
	return globalDriver
}

// ShutdownGlobalScheduler stops the global tick driver. Tasks still
// registered are left unfinished.
func ShutdownGlobalScheduler() {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalDriver != nil {
		globalDriver.Stop()
		globalDriver = nil
	}
}

// =============================================================================
// Run on the global scheduler
// =============================================================================

// Run schedules fn on the global scheduler.
func Run(fn func(), backend Backend) *Task {
	return GetGlobalScheduler().Run(fn, backend)
}

// RunWithHandle schedules fn, which receives its own handle, on the global scheduler.
func RunWithHandle(fn func(*Task), backend Backend) *Task {
	return GetGlobalScheduler().RunWithHandle(fn, backend)
}

// RunSteps schedules a step-sequence on the global scheduler.
func RunSteps(steps Steps, backend Backend) (*Task, error) {
	return GetGlobalScheduler().RunSteps(steps, backend)
}

// RunFunc schedules fn on the global scheduler and keeps its result.
func RunFunc[T any](fn func() T, backend Backend) *ResultTask[T] {
	return core.RunFunc(GetGlobalScheduler(), fn, backend)
}

// RunFuncWithHandle is RunFunc for work that needs its own handle.
func RunFuncWithHandle[T any](fn func(*ResultTask[T]) T, backend Backend) *ResultTask[T] {
	return core.RunFuncWithHandle(GetGlobalScheduler(), fn, backend)
}
