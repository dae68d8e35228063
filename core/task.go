package core

import (
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// =============================================================================
// TaskID
// =============================================================================

// TaskID identifies a task. Zero means "unset" and is never handed out.
type TaskID uint32

var taskIDCounter atomic.Uint32

// GenerateTaskID returns the next process-unique task ID.
func GenerateTaskID() TaskID {
	return nextTaskID(&taskIDCounter)
}

// nextTaskID increments counter, skipping zero when the counter wraps.
func nextTaskID(counter *atomic.Uint32) TaskID {
	for {
		if id := counter.Add(1); id != 0 {
			return TaskID(id)
		}
	}
}

// IsZero reports whether id is the unset value.
func (id TaskID) IsZero() bool { return id == 0 }

func (id TaskID) String() string { return strconv.FormatUint(uint64(id), 10) }

// =============================================================================
// TaskState / Backend
// =============================================================================

// TaskState is the lifecycle state of a task.
//
//	Running -> AbortRequested -> Aborted
//	Running -> Completed
type TaskState int32

const (
	TaskStateRunning TaskState = iota
	TaskStateAbortRequested
	TaskStateAborted
	TaskStateCompleted
)

func (s TaskState) String() string {
	switch s {
	case TaskStateRunning:
		return "Running"
	case TaskStateAbortRequested:
		return "AbortRequested"
	case TaskStateAborted:
		return "Aborted"
	case TaskStateCompleted:
		return "Completed"
	default:
		return fmt.Sprintf("TaskState(%d)", int32(s))
	}
}

// IsTerminal reports whether s is Aborted or Completed.
func (s TaskState) IsTerminal() bool {
	return s == TaskStateAborted || s == TaskStateCompleted
}

// Backend selects which execution engine drives a task.
type Backend int32

const (
	// Cooperative runs one step per Tick on the cooperative goroutine.
	Cooperative Backend = iota

	// Background runs the task on a dedicated worker goroutine.
	Background
)

func (b Backend) String() string {
	switch b {
	case Cooperative:
		return "Cooperative"
	case Background:
		return "Background"
	default:
		return fmt.Sprintf("Backend(%d)", int32(b))
	}
}

func (b Backend) valid() bool {
	return b == Cooperative || b == Background
}

// =============================================================================
// Task
// =============================================================================

// Task is the handle returned by Run. All getters are safe to call from any
// goroutine; state and backend fields are atomics because a task is stepped
// by the cooperative goroutine and by workers in turn.
//
// Complete and Aborted listeners always run on the goroutine calling Tick.
type Task struct {
	id        TaskID
	name      string
	startedAt time.Time

	state          atomic.Int32
	currentBackend atomic.Int32
	nextBackend    atomic.Int32
	ticks          atomic.Int64
	lastYielded    atomic.Pointer[Instruction]
	panicked       atomic.Bool

	abortOnce sync.Once
	abortCh   chan struct{}

	complete ListenerSet[*Task]
	aborted  ListenerSet[*Task]

	// completeHook fires typed completion listeners of a ResultTask.
	completeHook func()
}

func newTask(name string, backend Backend) *Task {
	t := &Task{
		id:        GenerateTaskID(),
		name:      name,
		startedAt: time.Now(),
		abortCh:   make(chan struct{}),
	}
	t.currentBackend.Store(int32(backend))
	t.nextBackend.Store(int32(backend))
	return t
}

// ID returns the task ID.
func (t *Task) ID() TaskID { return t.id }

// Name returns the name resolved from the work function.
func (t *Task) Name() string { return t.name }

// State returns the current lifecycle state.
func (t *Task) State() TaskState { return TaskState(t.state.Load()) }

// IsCompleted reports whether the task finished normally.
func (t *Task) IsCompleted() bool { return t.State() == TaskStateCompleted }

// IsAborted reports whether the task was finalized as aborted.
func (t *Task) IsAborted() bool { return t.State() == TaskStateAborted }

// CurrentBackend returns the backend that last drove the task.
func (t *Task) CurrentBackend() Backend { return Backend(t.currentBackend.Load()) }

// NextBackend returns the backend the task was last handed to.
func (t *Task) NextBackend() Backend { return Backend(t.nextBackend.Load()) }

// Ticks returns the number of step advances so far.
func (t *Task) Ticks() int64 { return t.ticks.Load() }

// StartedAt returns the creation time.
func (t *Task) StartedAt() time.Time { return t.startedAt }

// LifeTime returns the time since creation.
func (t *Task) LifeTime() time.Duration { return time.Since(t.startedAt) }

// LastYielded returns the most recent instruction the task yielded.
// It is diagnostic only.
func (t *Task) LastYielded() Instruction {
	if in := t.lastYielded.Load(); in != nil {
		return *in
	}
	return Instruction{}
}

// Panicked reports whether a step of the task panicked.
func (t *Task) Panicked() bool { return t.panicked.Load() }

// Abort requests cancellation. It only has an effect while the task is
// Running; the owning backend finalizes it as Aborted later. Abort never
// blocks; subscribe to Aborted to learn when teardown is done.
func (t *Task) Abort() {
	if t.state.CompareAndSwap(int32(TaskStateRunning), int32(TaskStateAbortRequested)) {
		t.abortOnce.Do(func() { close(t.abortCh) })
	}
}

// abortRequested is closed once Abort succeeds.
func (t *Task) abortRequested() <-chan struct{} { return t.abortCh }

// Complete returns the one-shot completion listener set.
func (t *Task) Complete() *ListenerSet[*Task] { return &t.complete }

// Aborted returns the one-shot abort listener set.
func (t *Task) Aborted() *ListenerSet[*Task] { return &t.aborted }

// OnComplete registers fn for completion and returns the listener so it can
// be removed later.
func (t *Task) OnComplete(fn func(*Task)) *Listener[*Task] {
	l := NewListener(fn)
	t.complete.Add(l)
	return l
}

// OnAbort registers fn for abort and returns the listener.
func (t *Task) OnAbort(fn func(*Task)) *Listener[*Task] {
	l := NewListener(fn)
	t.aborted.Add(l)
	return l
}

// Info returns a point-in-time row for introspection tools.
func (t *Task) Info() TaskInfo {
	return TaskInfo{
		ID:             t.id,
		Name:           t.name,
		State:          t.State(),
		CurrentBackend: t.CurrentBackend(),
		NextBackend:    t.NextBackend(),
		LifeTime:       t.LifeTime(),
		LastYielded:    t.LastYielded().String(),
		Ticks:          t.Ticks(),
	}
}

func (t *Task) String() string {
	return fmt.Sprintf("Task#%s(%s)", t.id, t.State())
}

func (t *Task) tick() { t.ticks.Add(1) }

func (t *Task) setLastYielded(in Instruction) { t.lastYielded.Store(&in) }

func (t *Task) setCurrentBackend(b Backend) { t.currentBackend.Store(int32(b)) }

func (t *Task) setNextBackend(b Backend) { t.nextBackend.Store(int32(b)) }

// markCompleted moves Running to Completed. It fails if an abort was
// requested in the meantime.
func (t *Task) markCompleted() bool {
	return t.state.CompareAndSwap(int32(TaskStateRunning), int32(TaskStateCompleted))
}

// markAborted moves AbortRequested to Aborted, requesting the abort first if
// the task is still Running.
func (t *Task) markAborted() bool {
	t.Abort()
	return t.state.CompareAndSwap(int32(TaskStateAbortRequested), int32(TaskStateAborted))
}

func (t *Task) fireComplete() {
	defer t.complete.RemoveAll()
	t.complete.Invoke(t)
}

func (t *Task) fireAborted() {
	defer t.aborted.RemoveAll()
	t.aborted.Invoke(t)
}

// =============================================================================
// ResultTask
// =============================================================================

// ResultTask is a Task that carries the value returned by its work function.
type ResultTask[T any] struct {
	*Task

	mu       sync.Mutex
	result   T
	complete ListenerSet[*ResultTask[T]]
}

func newResultTask[T any](name string, backend Backend) *ResultTask[T] {
	rt := &ResultTask[T]{Task: newTask(name, backend)}
	rt.Task.completeHook = rt.fireTypedComplete
	return rt
}

// Result returns the value produced by the work function. It is the zero
// value until the task has completed.
func (r *ResultTask[T]) Result() T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

func (r *ResultTask[T]) setResult(v T) {
	r.mu.Lock()
	r.result = v
	r.mu.Unlock()
}

// Complete returns the typed completion listener set. Listeners on the
// embedded Task's set fire first.
func (r *ResultTask[T]) Complete() *ListenerSet[*ResultTask[T]] { return &r.complete }

// OnComplete registers a typed completion listener.
func (r *ResultTask[T]) OnComplete(fn func(*ResultTask[T])) *Listener[*ResultTask[T]] {
	l := NewListener(fn)
	r.complete.Add(l)
	return l
}

func (r *ResultTask[T]) fireTypedComplete() {
	defer r.complete.RemoveAll()
	r.complete.Invoke(r)
}

// =============================================================================
// TaskInfo
// =============================================================================

// TaskInfo is one row of a registry dump.
type TaskInfo struct {
	ID             TaskID
	Name           string
	State          TaskState
	CurrentBackend Backend
	NextBackend    Backend
	LifeTime       time.Duration
	LastYielded    string
	Ticks          int64
}
