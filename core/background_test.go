package core

import (
	"context"
	"sync"
	"testing"
	"time"
)

// TestBackground_RoundTrip verifies a cooperative to background hand-off
// Given: A cooperative task recording its backend before and after yielding ToBackground
// When: The scheduler is ticked until completion
// Then: The backends recorded are Cooperative then Background and Ticks is at least 2
func TestBackground_RoundTrip(t *testing.T) {
	// Arrange
	s, _, metrics := newTestScheduler()
	var mu sync.Mutex
	var backends []Backend
	var task *Task
	record := func() {
		mu.Lock()
		backends = append(backends, task.CurrentBackend())
		mu.Unlock()
	}
	task, _ = s.RunSteps(func(yield func(Instruction) bool) {
		record()
		if !yield(ToBackground) {
			return
		}
		record()
	}, Cooperative)

	// Act
	tickUntil(t, s, time.Second, task.IsCompleted)

	// Assert
	mu.Lock()
	defer mu.Unlock()
	if len(backends) != 2 || backends[0] != Cooperative || backends[1] != Background {
		t.Fatalf("backends = %v, want [Cooperative Background]", backends)
	}
	if got := task.Ticks(); got < 2 {
		t.Fatalf("Ticks() = %d, want >= 2", got)
	}
	if got := metrics.Handoffs(Cooperative, Background); got != 1 {
		t.Fatalf("coop->bg handoffs = %d, want 1", got)
	}
}

// TestBackground_ToCooperative verifies the reverse hand-off
func TestBackground_ToCooperative(t *testing.T) {
	s, _, _ := newTestScheduler()
	var task *Task
	var mu sync.Mutex
	var resumedOn Backend
	task, _ = s.RunSteps(func(yield func(Instruction) bool) {
		if !yield(ToCooperative) {
			return
		}
		mu.Lock()
		resumedOn = task.CurrentBackend()
		mu.Unlock()
	}, Background)

	tickUntil(t, s, time.Second, task.IsCompleted)

	mu.Lock()
	defer mu.Unlock()
	if resumedOn != Cooperative {
		t.Fatalf("resumed on %v, want Cooperative", resumedOn)
	}
}

// TestBackground_ResultValue verifies a function result reaches the handle
// Given: A background RunFunc returning 42
// When: The scheduler is ticked until completion
// Then: Result is 42 and the typed listener sees it
func TestBackground_ResultValue(t *testing.T) {
	// Arrange
	s, _, _ := newTestScheduler()
	rt := RunFunc(s, func() int { return 42 }, Background)
	seen := 0
	rt.OnComplete(func(r *ResultTask[int]) { seen = r.Result() })

	// Act
	tickUntil(t, s, time.Second, rt.IsCompleted)

	// Assert
	if got := rt.Result(); got != 42 {
		t.Fatalf("Result() = %d, want 42", got)
	}
	if seen != 42 {
		t.Fatalf("listener saw %d, want 42", seen)
	}
}

// TestBackground_WaitHonorsDeadline verifies a background wait is not cut short
// Given: A background task yielding Wait(50ms)
// When: The scheduler is ticked until completion
// Then: Completion happens no earlier than 50ms after scheduling and no Tick blocks
func TestBackground_WaitHonorsDeadline(t *testing.T) {
	// Arrange
	s, _, _ := newTestScheduler()
	start := time.Now()
	task, _ := s.RunSteps(func(yield func(Instruction) bool) {
		yield(Wait(50 * time.Millisecond))
	}, Background)
	var completedAt time.Time
	task.OnComplete(func(*Task) { completedAt = time.Now() })

	// Act
	var slowest time.Duration
	tickUntil(t, s, time.Second, func() bool {
		t0 := time.Now()
		s.Tick()
		slowest = max(slowest, time.Since(t0))
		return task.IsCompleted()
	})

	// Assert
	if got := completedAt.Sub(start); got < 50*time.Millisecond {
		t.Fatalf("completed after %v, want >= 50ms", got)
	}
	if slowest > 20*time.Millisecond {
		t.Fatalf("slowest Tick = %v, background waits must not block Tick", slowest)
	}
}

// TestBackground_AbortWakesWait verifies abort interrupts a long wait
// Given: A background task parked on a 10s wait
// When: It is aborted
// Then: It is finalized as Aborted well before the wait would end and the worker exits
func TestBackground_AbortWakesWait(t *testing.T) {
	// Arrange
	s, _, metrics := newTestScheduler()
	cleaned := make(chan struct{})
	task, _ := s.RunSteps(func(yield func(Instruction) bool) {
		defer close(cleaned)
		yield(Wait(10 * time.Second))
	}, Background)
	eventually(t, time.Second, func() bool { return task.LastYielded().Kind == KindWait })

	// Act
	start := time.Now()
	task.Abort()
	tickUntil(t, s, time.Second, task.IsAborted)

	// Assert
	if got := time.Since(start); got > time.Second {
		t.Fatalf("abort took %v", got)
	}
	select {
	case <-cleaned:
	case <-time.After(time.Second):
		t.Fatal("sequence cleanup did not run")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Background().Wait(ctx); err != nil {
		t.Fatalf("Background().Wait() error = %v", err)
	}
	if got := metrics.Finished(TaskStateAborted); got != 1 {
		t.Fatalf("aborted metric = %d, want 1", got)
	}
}

// TestBackground_AbortImmediatelyAfterRun verifies abort wins over a racing completion
func TestBackground_AbortImmediatelyAfterRun(t *testing.T) {
	s, _, _ := newTestScheduler()
	task := s.Run(func() {}, Background)
	aborted, completed := 0, 0
	task.OnAbort(func(*Task) { aborted++ })
	task.OnComplete(func(*Task) { completed++ })

	task.Abort()
	tickUntil(t, s, time.Second, func() bool { return task.State().IsTerminal() })
	s.Tick()

	if !task.IsAborted() {
		t.Fatalf("state = %v, want Aborted", task.State())
	}
	if aborted != 1 || completed != 0 {
		t.Fatalf("aborted = %d, completed = %d, want 1 and 0", aborted, completed)
	}
}

// TestBackground_StepPanicAborts verifies worker panics are handed back
func TestBackground_StepPanicAborts(t *testing.T) {
	s, panics, _ := newTestScheduler()
	task := s.Run(func() { panic("worker boom") }, Background)

	tickUntil(t, s, time.Second, task.IsAborted)

	if !task.Panicked() {
		t.Fatal("Panicked() = false, want true")
	}
	calls := panics.GetCalls()
	if len(calls) != 1 || calls[0].Backend != Background {
		t.Fatalf("panic calls = %+v, want one on Background", calls)
	}
}

// TestBackground_ActiveCount verifies worker accounting
func TestBackground_ActiveCount(t *testing.T) {
	s, _, _ := newTestScheduler()
	release := make(chan struct{})
	for range 3 {
		s.Run(func() { <-release }, Background)
	}

	eventually(t, time.Second, func() bool { return s.Background().Active() == 3 })
	close(release)
	eventually(t, time.Second, func() bool { return s.Background().Active() == 0 })
	tickUntil(t, s, time.Second, func() bool { return s.Registry().Len() == 0 })

	if got := s.Stats().Completed; got != 3 {
		t.Fatalf("Stats().Completed = %d, want 3", got)
	}
}

// TestBackground_WaitContextExpires verifies Wait honors its context
func TestBackground_WaitContextExpires(t *testing.T) {
	s, _, _ := newTestScheduler()
	release := make(chan struct{})
	defer close(release)
	s.Run(func() { <-release }, Background)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := s.Background().Wait(ctx); err != context.DeadlineExceeded {
		t.Fatalf("Wait() error = %v, want DeadlineExceeded", err)
	}
}

// TestBackground_WaitWhileDispatching verifies Wait tolerates concurrent dispatch
// Given: A goroutine calling Background().Wait in a loop
// When: Background tasks are started and ticked many times meanwhile
// Then: Nothing panics and Wait returns once every worker has finished
func TestBackground_WaitWhileDispatching(t *testing.T) {
	// Arrange
	s, _, _ := newTestScheduler()
	stop := make(chan struct{})
	waiterDone := make(chan struct{})
	go func() {
		defer close(waiterDone)
		for {
			select {
			case <-stop:
				return
			default:
			}
			ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
			_ = s.Background().Wait(ctx)
			cancel()
		}
	}()

	// Act
	for range 2000 {
		s.Run(func() {}, Background)
		s.Tick()
	}
	close(stop)
	<-waiterDone

	// Assert
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Background().Wait(ctx); err != nil {
		t.Fatalf("Background().Wait() error = %v", err)
	}
	if got := s.Background().Active(); got != 0 {
		t.Fatalf("Active() = %d, want 0", got)
	}
	tickUntil(t, s, 2*time.Second, func() bool { return s.Registry().Len() == 0 })
}

// TestBackground_WaitWithoutWorkers verifies Wait returns at once on an idle pool
func TestBackground_WaitWithoutWorkers(t *testing.T) {
	s, _, _ := newTestScheduler()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Background().Wait(ctx); err != nil {
		t.Fatalf("Wait() on idle pool error = %v, want nil", err)
	}
}
