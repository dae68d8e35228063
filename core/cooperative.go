package core

import (
	"sync/atomic"
	"time"
)

// CooperativeScheduler advances every cooperative-mode task by one step per
// Tick. Tick must be driven from a single goroutine (the cooperative thread);
// all Complete and Aborted listeners run there.
type CooperativeScheduler struct {
	owner  *Scheduler
	active *SynchronizedSequence[*cursor]

	ticking atomic.Bool
	passes  atomic.Uint64
}

func newCooperativeScheduler(owner *Scheduler, capacity int) *CooperativeScheduler {
	return &CooperativeScheduler{
		owner:  owner,
		active: NewSynchronizedSequence[*cursor](capacity),
	}
}

// Len returns the number of tasks waiting for their next cooperative step.
func (cs *CooperativeScheduler) Len() int {
	return cs.active.Live()
}

// Passes returns the number of completed Tick passes.
func (cs *CooperativeScheduler) Passes() uint64 {
	return cs.passes.Load()
}

// enqueue hands c to the cooperative backend. Safe from any goroutine; the
// task is first stepped by the next Tick.
func (cs *CooperativeScheduler) enqueue(c *cursor) {
	c.task.setNextBackend(Cooperative)
	cs.active.Append(c)
}

// Tick runs one pass. Tasks enqueued while the pass is running wait for the
// next one. A nested Tick from inside a step or listener returns immediately.
func (cs *CooperativeScheduler) Tick() {
	if !cs.ticking.CompareAndSwap(false, true) {
		return
	}
	defer cs.ticking.Store(false)

	s := cs.owner
	startedAt := time.Now()
	stepped := 0
	finalized := 0

	count := cs.active.Len()
	for i := 0; i < count; i++ {
		c := cs.active.Get(i)
		if c == nil {
			continue
		}
		t := c.task
		t.setCurrentBackend(Cooperative)

		if st := t.State(); st == TaskStateAbortRequested || st == TaskStateAborted {
			cs.active.Set(i, nil)
			s.finalizeAborted(c)
			finalized++
			continue
		}

		in, ok, panicked := s.advance(c, Cooperative, false)
		if panicked {
			cs.active.Set(i, nil)
			s.finalizeAborted(c)
			finalized++
			continue
		}
		if !ok {
			cs.active.Set(i, nil)
			s.finalizeExhausted(c)
			finalized++
			continue
		}

		stepped++
		t.tick()
		t.setLastYielded(in)

		switch in.Kind {
		case KindToBackground:
			cs.active.Set(i, nil)
			s.metrics.RecordHandoff(Cooperative, Background)
			s.logger.Debug("task handed off",
				F("task_id", t.ID()), F("from", Cooperative), F("to", Background))
			s.background.dispatch(c)
		case KindAbort:
			cs.active.Set(i, nil)
			s.finalizeAborted(c)
			finalized++
		}
	}

	remaining := cs.active.Compact()
	if finalized > 0 {
		s.registry.Compact()
	}
	cs.passes.Add(1)

	s.metrics.RecordTickDuration(time.Since(startedAt), stepped)
	s.metrics.RecordActiveTasks(Cooperative, remaining)
}
