package core

import "iter"

// cursor is a task's continuation: the pulled step-sequence plus the wait
// instruction still counting down from the previous cooperative step.
//
// A cursor belongs to exactly one backend at a time. Hand-off goes through a
// SynchronizedSequence append or a goroutine start, both of which order the
// previous owner's writes before the next owner's reads.
type cursor struct {
	task *Task
	next func() (Instruction, bool)
	stop func()

	pending Instruction
	waiting bool
	done    bool
}

func newCursor(t *Task, steps Steps) *cursor {
	next, stop := iter.Pull(steps)
	return &cursor{task: t, next: next, stop: stop}
}

// step advances once on the cooperative backend. A wait yielded earlier is
// resumed first: while it has time left, step reports it again without
// pulling a new value.
func (c *cursor) step() (Instruction, bool) {
	if c.waiting {
		if !c.pending.Exhausted() {
			return c.pending, true
		}
		c.clearWait()
	}

	in, ok := c.pull()
	if ok && in.Kind == KindWait && !in.Exhausted() {
		c.pending = in
		c.waiting = true
	}
	return in, ok
}

// pull advances the underlying sequence once.
func (c *cursor) pull() (Instruction, bool) {
	if c.done {
		return Instruction{}, false
	}
	in, ok := c.next()
	if !ok {
		c.done = true
	}
	return in, ok
}

func (c *cursor) clearWait() {
	c.pending = Instruction{}
	c.waiting = false
}

// close stops the sequence. A sequence parked in yield sees yield return
// false and runs its cleanup on the calling goroutine.
func (c *cursor) close() {
	c.done = true
	c.clearWait()
	c.stop()
}
