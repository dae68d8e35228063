package core

import "sync"

const (
	defaultSequenceCap  = 32
	compactMinCap       = 64 // Don't shrink below this capacity
	compactShrinkFactor = 4  // Shrink when len < cap/4
)

// SynchronizedSequence is an ordered list guarded by a single mutex.
//
// Every method takes the lock for exactly one operation; nothing holds it
// across calls. The zero value of T is the tombstone: Remove and
// Set(i, zero) leave a hole that Compact later closes, so per-element removal
// never shifts the tail.
type SynchronizedSequence[T comparable] struct {
	mu    sync.Mutex
	items []T
	live  int
}

// NewSynchronizedSequence creates an empty sequence with the given capacity.
func NewSynchronizedSequence[T comparable](capacity int) *SynchronizedSequence[T] {
	if capacity < 1 {
		capacity = defaultSequenceCap
	}
	return &SynchronizedSequence[T]{items: make([]T, 0, capacity)}
}

// Append adds v to the end. Appending a tombstone is ignored.
func (q *SynchronizedSequence[T]) Append(v T) {
	var zero T
	if v == zero {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, v)
	q.live++
}

// Get returns the entry at i, or the tombstone when i is out of range.
func (q *SynchronizedSequence[T]) Get(i int) T {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if i < 0 || i >= len(q.items) {
		return zero
	}
	return q.items[i]
}

// Set replaces the entry at i. Out-of-range indexes are ignored.
func (q *SynchronizedSequence[T]) Set(i int, v T) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if i < 0 || i >= len(q.items) {
		return
	}
	var zero T
	if q.items[i] != zero {
		q.live--
	}
	if v != zero {
		q.live++
	}
	q.items[i] = v
}

// Len returns the number of slots, tombstones included.
func (q *SynchronizedSequence[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Live returns the number of non-tombstone entries.
func (q *SynchronizedSequence[T]) Live() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.live
}

// IndexOf returns the index of the first slot holding v, or -1.
func (q *SynchronizedSequence[T]) IndexOf(v T) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.indexLocked(v)
}

// Remove tombstones the first slot holding v.
func (q *SynchronizedSequence[T]) Remove(v T) bool {
	var zero T
	if v == zero {
		return false
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	idx := q.indexLocked(v)
	if idx == -1 {
		return false
	}
	q.items[idx] = zero
	q.live--
	return true
}

// Snapshot returns a copy of every slot, tombstones included.
func (q *SynchronizedSequence[T]) Snapshot() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]T, len(q.items))
	copy(out, q.items)
	return out
}

// Compact moves live entries to the earliest free slots, keeping their
// relative order, and truncates the trailing tombstones. It returns the live
// count.
func (q *SynchronizedSequence[T]) Compact() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	index := 0
	for i, v := range q.items {
		if v == zero {
			continue
		}
		if index != i {
			q.items[index] = v
			q.items[i] = zero
		}
		index++
	}
	q.items = q.items[:index]
	q.live = index
	q.maybeShrinkLocked()
	return index
}

// Clear drops every entry and releases references.
func (q *SynchronizedSequence[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = make([]T, 0, defaultSequenceCap)
	q.live = 0
}

func (q *SynchronizedSequence[T]) indexLocked(v T) int {
	for i, current := range q.items {
		if current == v {
			return i
		}
	}
	return -1
}

// maybeShrinkLocked releases the backing array after a burst of tasks has
// drained.
func (q *SynchronizedSequence[T]) maybeShrinkLocked() {
	n := len(q.items)
	c := cap(q.items)

	if c < compactMinCap || n*compactShrinkFactor >= c {
		return
	}

	newCap := max(max(c/2, defaultSequenceCap), n)
	shrunk := make([]T, n, newCap)
	copy(shrunk, q.items)
	q.items = shrunk
}
