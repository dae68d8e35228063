package cooptask

import (
	"time"

	"github.com/Swind/go-coop-task/core"
)

// Re-export commonly used types from core package for convenience.
// This allows users to import only the cooptask package for most use cases.

// Task is the handle of a scheduled unit of work
type Task = core.Task

// ResultTask is a Task carrying the value returned by its work function
type ResultTask[T any] = core.ResultTask[T]

// Instruction is what a step-sequence yields to the scheduler
type Instruction = core.Instruction

// Steps is a step-sequence
type Steps = core.Steps

// Backend selects cooperative or background execution
type Backend = core.Backend

// TaskState is the lifecycle state of a task
type TaskState = core.TaskState

// Scheduler owns the registry and both backends
type Scheduler = core.Scheduler

// TickDriver calls Scheduler.Tick from a dedicated goroutine
type TickDriver = core.TickDriver

// Listener and ListenerSet are the completion/abort notification types
type (
	Listener[T any]    = core.Listener[T]
	ListenerSet[T any] = core.ListenerSet[T]
)

// Backend constants
const (
	Cooperative = core.Cooperative
	Background  = core.Background
)

// State constants
const (
	TaskStateRunning        = core.TaskStateRunning
	TaskStateAbortRequested = core.TaskStateAbortRequested
	TaskStateAborted        = core.TaskStateAborted
	TaskStateCompleted      = core.TaskStateCompleted
)

// Instructions
var (
	ToCooperative = core.ToCooperative
	ToBackground  = core.ToBackground
	AbortNow      = core.AbortNow
	Wait          = core.Wait
	Yield         = core.Yield
)

// NewScheduler creates a standalone scheduler. See core.NewScheduler.
func NewScheduler(config *core.SchedulerConfig) *Scheduler {
	return core.NewScheduler(config)
}

// NewTickDriver creates a driver for s. See core.NewTickDriver.
func NewTickDriver(s *Scheduler, interval time.Duration) *TickDriver {
	return core.NewTickDriver(s, interval)
}

// NewListener wraps fn so it can be added to and removed from a ListenerSet.
func NewListener[T any](fn func(T)) *Listener[T] {
	return core.NewListener(fn)
}
