package core

import "sync"

// Listener is a callback registered on a ListenerSet.
// The pointer is the identity: adding or removing the same *Listener twice
// refers to the same registration.
type Listener[T any] struct {
	fn func(T)
}

// NewListener wraps fn so it can be registered and later removed.
func NewListener[T any](fn func(T)) *Listener[T] {
	return &Listener[T]{fn: fn}
}

// ListenerSet is a multicast registry that tolerates Add and Remove calls
// from inside its own callbacks.
//
// Removed entries become tombstones (nil slots) and are swept at the end of
// every Invoke, so removal never shifts the slots a dispatch in progress is
// walking. Listeners added during a dispatch land past the dispatch window and
// are first invoked by the next Invoke.
type ListenerSet[T any] struct {
	mu          sync.Mutex
	slots       []*Listener[T]
	count       int
	generation  uint64
	dispatching bool
}

// Add registers l. If l is already registered and is the only listener, Add
// is a no-op; otherwise the previous slot is tombstoned and l moves to the end.
func (s *ListenerSet[T]) Add(l *Listener[T]) {
	if l == nil || l.fn == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(l)
	if idx == -1 {
		s.slots = append(s.slots, l)
		s.count++
		return
	}
	if s.count == 1 {
		return
	}
	s.slots[idx] = nil
	s.slots = append(s.slots, l)
}

// Remove tombstones the registration of l, if any.
func (s *ListenerSet[T]) Remove(l *Listener[T]) {
	if l == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if idx := s.indexLocked(l); idx != -1 {
		s.slots[idx] = nil
		s.count--
	}
}

// RemoveAll drops every registration. A dispatch in progress stops before
// visiting its next slot.
func (s *ListenerSet[T]) RemoveAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.slots)
	s.slots = s.slots[:0]
	s.count = 0
	s.generation++
}

// Len returns the number of active registrations.
func (s *ListenerSet[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Invoke calls every active listener in registration order.
//
// The lock is never held while a callback runs. A panicking callback
// propagates to the caller; the deferred sweep still runs, so tombstones left
// by a failed dispatch never survive into the next one.
//
// Invoke is not re-entrant: a nested call on the same set returns immediately.
func (s *ListenerSet[T]) Invoke(value T) {
	s.mu.Lock()
	if s.dispatching || len(s.slots) == 0 {
		s.mu.Unlock()
		return
	}
	s.dispatching = true
	gen := s.generation
	length := len(s.slots)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.sweepLocked()
		s.dispatching = false
		s.mu.Unlock()
	}()

	for i := 0; i < length; i++ {
		s.mu.Lock()
		if s.count == 0 || s.generation != gen || i >= len(s.slots) {
			s.mu.Unlock()
			return
		}
		current := s.slots[i]
		s.mu.Unlock()

		if current != nil {
			current.fn(value)
		}
	}
}

func (s *ListenerSet[T]) indexLocked(l *Listener[T]) int {
	for i, current := range s.slots {
		if current == l {
			return i
		}
	}
	return -1
}

// sweepLocked moves live slots down over tombstones, preserving order.
func (s *ListenerSet[T]) sweepLocked() {
	index := 0
	for i, current := range s.slots {
		if current == nil {
			continue
		}
		if index != i {
			s.slots[index] = current
			s.slots[i] = nil
		}
		index++
	}
	clear(s.slots[index:])
	s.slots = s.slots[:index]
}
