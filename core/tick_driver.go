package core

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultTickInterval is roughly one frame at 60Hz.
const DefaultTickInterval = 16 * time.Millisecond

// TickDriver binds a dedicated goroutine to a Scheduler and calls Tick at a
// fixed interval. That goroutine is the cooperative thread: cooperative steps
// and every Complete/Aborted listener run on it.
//
// Post lets other goroutines run a closure on the cooperative thread between
// passes, e.g. to touch state owned by cooperative tasks without locks.
type TickDriver struct {
	scheduler *Scheduler
	interval  time.Duration

	// Closures posted to the cooperative thread
	workQueue chan func()

	// Lifecycle control
	ctx    context.Context
	cancel context.CancelFunc

	stopped   chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool
	closed    atomic.Bool
}

// NewTickDriver creates a driver for s. A non-positive interval uses
// DefaultTickInterval. Call Start to begin ticking.
func NewTickDriver(s *Scheduler, interval time.Duration) *TickDriver {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &TickDriver{
		scheduler: s,
		interval:  interval,
		workQueue: make(chan func(), 100), // Buffer to avoid blocking senders
		ctx:       ctx,
		cancel:    cancel,
		stopped:   make(chan struct{}),
	}
}

// Scheduler returns the driven scheduler.
func (d *TickDriver) Scheduler() *Scheduler { return d.scheduler }

// Interval returns the tick interval.
func (d *TickDriver) Interval() time.Duration { return d.interval }

// Start spawns the cooperative goroutine. Repeated calls are no-ops.
func (d *TickDriver) Start() {
	d.startOnce.Do(func() {
		if d.closed.Load() {
			return
		}
		d.started.Store(true)
		d.scheduler.logger.Info("tick driver started", F("interval", d.interval))
		go d.runLoop()
	})
}

// IsClosed returns true once Stop has been called.
func (d *TickDriver) IsClosed() bool {
	return d.closed.Load()
}

// Stop terminates the loop and waits for the current pass to finish.
// Tasks still registered stay where they are; call Scheduler.AbortAll and
// tick a final time first if they must be torn down.
//
// Stop must not be called from the cooperative goroutine (a cooperative
// step, a Complete/Aborted listener or a posted closure): it would wait for
// its own goroutine to exit. Use `go d.Stop()` there.
func (d *TickDriver) Stop() {
	d.stopOnce.Do(func() {
		d.closed.Store(true)
		d.cancel()
		if d.started.Load() {
			<-d.stopped
		}
		d.scheduler.logger.Info("tick driver stopped", F("passes", d.scheduler.cooperative.Passes()))
	})
}

// Post runs fn on the cooperative thread before the next pass.
func (d *TickDriver) Post(fn func()) error {
	if fn == nil {
		return &ArgumentError{Arg: "fn", Reason: "function must not be nil"}
	}
	if d.closed.Load() {
		return fmt.Errorf("post: %w", ErrDriverStopped)
	}

	select {
	case <-d.ctx.Done():
		return fmt.Errorf("post: %w", ErrDriverStopped)
	case d.workQueue <- fn:
		return nil
	}
}

// WaitIdle blocks until the scheduler has no registered tasks.
//
// Returns error if:
// - Context is cancelled or deadline exceeded
// - The driver is stopped before the scheduler drains
func (d *TickDriver) WaitIdle(ctx context.Context) error {
	if d.IsClosed() {
		return fmt.Errorf("wait idle: %w", ErrDriverStopped)
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		if d.scheduler.registry.Len() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.ctx.Done():
			return fmt.Errorf("wait idle: %w", ErrDriverStopped)
		case <-ticker.C:
		}
	}
}

// runLoop is the cooperative thread.
func (d *TickDriver) runLoop() {
	defer close(d.stopped)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case fn := <-d.workQueue:
			d.runPosted(fn)

		case <-ticker.C:
			d.scheduler.Tick()

		case <-d.ctx.Done():
			return
		}
	}
}

func (d *TickDriver) runPosted(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.scheduler.logger.Error("posted closure panicked", F("panic", r))
			d.scheduler.panicHandler.HandlePanic(0, Cooperative, r, debug.Stack())
		}
	}()
	fn()
}
