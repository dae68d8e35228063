package core

import (
	"reflect"
	"runtime/debug"
	"sync/atomic"
	"time"
)

// Scheduler owns a task registry, a cooperative backend and a background
// worker pool. Independent schedulers share nothing but the task ID counter.
//
// Something must call Tick repeatedly (see TickDriver); cooperative tasks
// only make progress, and tasks only finalize, inside Tick.
type Scheduler struct {
	registry    *TaskRegistry
	cooperative *CooperativeScheduler
	background  *BackgroundWorkerPool

	logger       Logger
	panicHandler PanicHandler
	metrics      Metrics
	history      *taskHistory

	completedTotal atomic.Uint64
	abortedTotal   atomic.Uint64
	panickedTotal  atomic.Uint64
}

// NewScheduler creates a Scheduler. A nil config uses DefaultSchedulerConfig.
func NewScheduler(config *SchedulerConfig) *Scheduler {
	if config == nil {
		config = DefaultSchedulerConfig()
	}

	s := &Scheduler{
		logger:       config.Logger,
		panicHandler: config.PanicHandler,
		metrics:      config.Metrics,
		history:      newTaskHistory(config.HistoryCapacity),
	}

	// Use defaults if not provided
	if s.logger == nil {
		s.logger = NewNoOpLogger()
	}
	if s.panicHandler == nil {
		s.panicHandler = &DefaultPanicHandler{}
	}
	if s.metrics == nil {
		s.metrics = &NilMetrics{}
	}

	s.registry = NewTaskRegistry(config.InitialCapacity)
	s.cooperative = newCooperativeScheduler(s, config.InitialCapacity)
	s.background = newBackgroundWorkerPool(s)
	return s
}

// Tick runs one cooperative pass. See CooperativeScheduler.Tick.
func (s *Scheduler) Tick() { s.cooperative.Tick() }

// Registry returns the task registry.
func (s *Scheduler) Registry() *TaskRegistry { return s.registry }

// Cooperative returns the cooperative backend.
func (s *Scheduler) Cooperative() *CooperativeScheduler { return s.cooperative }

// Background returns the background worker pool.
func (s *Scheduler) Background() *BackgroundWorkerPool { return s.background }

// Logger returns the configured logger.
func (s *Scheduler) Logger() Logger { return s.logger }

// Snapshot returns every task not yet finalized.
func (s *Scheduler) Snapshot() []*Task { return s.registry.Snapshot() }

// Stats returns current observability data for this scheduler.
func (s *Scheduler) Stats() SchedulerStats {
	return SchedulerStats{
		Registered:  s.registry.Len(),
		Cooperative: s.cooperative.Len(),
		Background:  s.background.Active(),
		Passes:      s.cooperative.Passes(),
		Completed:   s.completedTotal.Load(),
		Aborted:     s.abortedTotal.Load(),
		Panicked:    s.panickedTotal.Load(),
	}
}

// RecentTasks returns up to limit finished tasks, newest first.
func (s *Scheduler) RecentTasks(limit int) []TaskRecord {
	return s.history.Recent(limit)
}

// LastTask returns the most recently finished task.
func (s *Scheduler) LastTask() (TaskRecord, bool) {
	return s.history.Last()
}

// AbortAll requests abort of every registered task and returns how many
// requests took effect.
func (s *Scheduler) AbortAll() int {
	n := 0
	for _, t := range s.registry.Snapshot() {
		if t.State() == TaskStateRunning {
			t.Abort()
			n++
		}
	}
	s.logger.Info("abort requested for all tasks", F("count", n))
	return n
}

// =============================================================================
// Run
// =============================================================================

// Run schedules fn as a single-step task on backend.
func (s *Scheduler) Run(fn func(), backend Backend) *Task {
	mustRunnable(fn, backend)
	t := newTask(resolveTaskName(fn), backend)
	s.start(t, func(yield func(Instruction) bool) { fn() }, backend)
	return t
}

// RunWithHandle schedules fn, which receives its own handle, on backend.
func (s *Scheduler) RunWithHandle(fn func(*Task), backend Backend) *Task {
	mustRunnable(fn, backend)
	t := newTask(resolveTaskName(fn), backend)
	s.start(t, func(yield func(Instruction) bool) { fn(t) }, backend)
	return t
}

// RunSteps schedules a step-sequence on backend. A nil sequence or an
// unknown backend fails with *ArgumentError and creates no task.
func (s *Scheduler) RunSteps(steps Steps, backend Backend) (*Task, error) {
	if steps == nil {
		return nil, &ArgumentError{Arg: "steps", Reason: "step-sequence must not be nil"}
	}
	if !backend.valid() {
		return nil, &ArgumentError{Arg: "backend", Reason: "unknown backend " + backend.String()}
	}
	t := newTask(resolveTaskName(steps), backend)
	s.start(t, steps, backend)
	return t, nil
}

// RunFunc schedules fn on backend and stores its return value as the result.
func RunFunc[T any](s *Scheduler, fn func() T, backend Backend) *ResultTask[T] {
	mustRunnable(fn, backend)
	rt := newResultTask[T](resolveTaskName(fn), backend)
	s.start(rt.Task, func(yield func(Instruction) bool) { rt.setResult(fn()) }, backend)
	return rt
}

// RunFuncWithHandle is RunFunc for work that needs its own handle.
func RunFuncWithHandle[T any](s *Scheduler, fn func(*ResultTask[T]) T, backend Backend) *ResultTask[T] {
	mustRunnable(fn, backend)
	rt := newResultTask[T](resolveTaskName(fn), backend)
	s.start(rt.Task, func(yield func(Instruction) bool) { rt.setResult(fn(rt)) }, backend)
	return rt
}

func mustRunnable(fn any, backend Backend) {
	if v := reflect.ValueOf(fn); !v.IsValid() || v.IsNil() {
		panic(&ArgumentError{Arg: "work", Reason: "function must not be nil"})
	}
	if !backend.valid() {
		panic(&ArgumentError{Arg: "backend", Reason: "unknown backend " + backend.String()})
	}
}

// start registers t and hands it to backend. For Cooperative the first step
// runs on the next Tick; for Background a worker starts now.
func (s *Scheduler) start(t *Task, steps Steps, backend Backend) {
	c := newCursor(t, steps)
	s.registry.Add(t)
	s.metrics.RecordTaskStarted(backend)
	s.logger.Debug("task registered",
		F("task_id", t.ID()), F("name", t.Name()), F("backend", backend))

	if backend == Background {
		s.background.dispatch(c)
		return
	}
	s.cooperative.enqueue(c)
}

// =============================================================================
// Stepping and finalization
// =============================================================================

// advance steps c once, recovering a panic from the user's step code. raw
// skips the cooperative wait resumption.
func (s *Scheduler) advance(c *cursor, backend Backend, raw bool) (in Instruction, ok bool, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			c.done = true
			c.task.panicked.Store(true)
			c.task.Abort()
			panicked = true
			s.reportPanic(c.task, backend, r, debug.Stack(), "step panicked")
		}
	}()

	if raw {
		in, ok = c.pull()
	} else {
		in, ok = c.step()
	}
	return in, ok, false
}

// finalizeExhausted completes a task whose sequence ran out, unless an abort
// was requested first. Cooperative thread only.
func (s *Scheduler) finalizeExhausted(c *cursor) {
	t := c.task
	s.registry.Remove(t)
	if !t.markCompleted() {
		s.finishAborted(c)
		return
	}
	c.close()
	s.completedTotal.Add(1)
	s.record(t)
	s.notify(t, t.fireComplete)
	// Dispatched separately so a panicking base listener cannot skip it.
	if t.completeHook != nil {
		s.notify(t, t.completeHook)
	}
}

// finalizeAborted aborts a task. Cooperative thread only.
func (s *Scheduler) finalizeAborted(c *cursor) {
	s.registry.Remove(c.task)
	s.finishAborted(c)
}

func (s *Scheduler) finishAborted(c *cursor) {
	t := c.task
	if !t.markAborted() {
		return
	}
	// Lets a sequence parked in yield run its cleanup.
	s.notify(t, c.close)
	s.abortedTotal.Add(1)
	s.record(t)
	s.notify(t, t.fireAborted)
}

func (s *Scheduler) record(t *Task) {
	finishedAt := time.Now()
	lifetime := finishedAt.Sub(t.StartedAt())
	state := t.State()

	s.history.Add(TaskRecord{
		TaskID:     t.ID(),
		Name:       t.Name(),
		State:      state,
		Backend:    t.CurrentBackend(),
		StartedAt:  t.StartedAt(),
		FinishedAt: finishedAt,
		LifeTime:   lifetime,
		Ticks:      t.Ticks(),
		Panicked:   t.Panicked(),
	})
	s.metrics.RecordTaskFinished(state, lifetime, t.Ticks())
	s.logger.Debug("task finished",
		F("task_id", t.ID()), F("state", state), F("ticks", t.Ticks()), F("lifetime", lifetime))
}

// notify runs fn on the cooperative thread, containing a listener panic so
// one bad callback cannot stall the pass.
func (s *Scheduler) notify(t *Task, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.reportPanic(t, Cooperative, r, debug.Stack(), "listener panicked")
		}
	}()
	fn()
}

func (s *Scheduler) reportPanic(t *Task, backend Backend, r any, stack []byte, msg string) {
	s.panickedTotal.Add(1)
	s.metrics.RecordTaskPanic(backend, r)
	s.logger.Error(msg, F("task_id", t.ID()), F("backend", backend), F("panic", r))
	s.panicHandler.HandlePanic(t.ID(), backend, r, stack)
}
