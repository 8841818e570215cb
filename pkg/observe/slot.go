// Package observe provides single-value observable slots for process-wide
// state such as the current session and current user.
//
// A Slot holds one value. Setting it replaces the value wholesale and
// notifies every subscriber synchronously, on the caller's goroutine, before
// Set returns. Slots are individually locked; there is no transactional
// grouping across slots, so a subscriber watching two slots can observe one
// updated before the other and must tolerate the transient partial state.
package observe

import "sync"

// Subscription unsubscribes its callback when cancelled.
type Subscription struct {
	cancel func()
}

// Cancel removes the subscriber. Safe to call more than once.
func (s *Subscription) Cancel() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Slot is an observable single-value container. The zero value is not
// usable; construct with NewSlot.
type Slot[T any] struct {
	mu    sync.Mutex
	value T
	subs  map[int]func(T)
	next  int
}

// NewSlot creates a slot holding the given initial value.
func NewSlot[T any](initial T) *Slot[T] {
	return &Slot[T]{
		value: initial,
		subs:  make(map[int]func(T)),
	}
}

// Get returns the current value.
func (s *Slot[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Set replaces the value and notifies subscribers before returning.
func (s *Slot[T]) Set(value T) {
	s.mu.Lock()
	s.value = value
	subs := make([]func(T), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(value)
	}
}

// Subscribe registers a callback invoked with the current value immediately
// and again on every subsequent Set.
func (s *Slot[T]) Subscribe(fn func(T)) *Subscription {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	value := s.value
	s.mu.Unlock()

	fn(value)

	return &Subscription{cancel: func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}}
}
