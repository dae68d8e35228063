package core

import (
	"context"
	"sync"
	"time"
)

// BackgroundWorkerPool runs each background-mode task on its own goroutine
// until the task asks for the cooperative backend, finishes, or is aborted.
//
// Workers never finalize a task. Completion and abort are handed back to the
// cooperative backend so listeners only ever run on the cooperative thread.
type BackgroundWorkerPool struct {
	owner *Scheduler

	mu     sync.Mutex
	active int
	// idle is closed when active drops to zero; nil while no worker ran yet.
	idle chan struct{}
}

func newBackgroundWorkerPool(owner *Scheduler) *BackgroundWorkerPool {
	return &BackgroundWorkerPool{owner: owner}
}

// Active returns the number of running workers.
func (p *BackgroundWorkerPool) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Wait blocks until no worker is running or ctx is done. Workers started
// while Wait is blocked extend the wait.
func (p *BackgroundWorkerPool) Wait(ctx context.Context) error {
	for {
		p.mu.Lock()
		if p.active == 0 {
			p.mu.Unlock()
			return nil
		}
		idle := p.idle
		p.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// dispatch starts a worker for c immediately.
func (p *BackgroundWorkerPool) dispatch(c *cursor) {
	c.task.setNextBackend(Background)
	p.mu.Lock()
	if p.active == 0 {
		p.idle = make(chan struct{})
	}
	p.active++
	n := p.active
	p.mu.Unlock()

	p.owner.metrics.RecordActiveTasks(Background, n)
	go p.work(c)
}

func (p *BackgroundWorkerPool) release() {
	p.mu.Lock()
	p.active--
	n := p.active
	if n == 0 {
		close(p.idle)
	}
	p.mu.Unlock()

	p.owner.metrics.RecordActiveTasks(Background, n)
}

func (p *BackgroundWorkerPool) work(c *cursor) {
	defer p.release()

	s := p.owner
	t := c.task
	t.setCurrentBackend(Background)
	c.clearWait()

	for {
		if t.State() != TaskStateRunning {
			p.handBackAborted(c)
			return
		}

		in, ok, panicked := s.advance(c, Background, true)
		if panicked {
			p.handBackAborted(c)
			return
		}
		t.tick()

		if t.State() == TaskStateAbortRequested {
			p.handBackAborted(c)
			return
		}
		if !ok {
			// Finished; the cooperative backend performs the Completed transition.
			s.cooperative.enqueue(c)
			return
		}
		t.setLastYielded(in)

		switch in.Kind {
		case KindWait:
			p.sleep(t, in.Remaining())
		case KindToCooperative:
			s.metrics.RecordHandoff(Background, Cooperative)
			s.logger.Debug("task handed off",
				F("task_id", t.ID()), F("from", Background), F("to", Cooperative))
			s.cooperative.enqueue(c)
			return
		case KindAbort:
			t.Abort()
		}
	}
}

// handBackAborted returns an abort-requested task to the cooperative backend,
// which finalizes it as Aborted and fires its listeners.
func (p *BackgroundWorkerPool) handBackAborted(c *cursor) {
	c.task.Abort()
	c.task.setLastYielded(AbortNow)
	p.owner.metrics.RecordHandoff(Background, Cooperative)
	p.owner.cooperative.enqueue(c)
}

// sleep blocks the worker for d, waking early if the task is aborted.
func (p *BackgroundWorkerPool) sleep(t *Task, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-t.abortRequested():
	}
}
