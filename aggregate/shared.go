package aggregate

import "sync"

// Shared is a value published by aggregations and read by anyone.
type Shared[T any] struct {
	mu  sync.RWMutex
	val T
}

// NewShared returns a Shared holding initial.
func NewShared[T any](initial T) *Shared[T] {
	return &Shared[T]{val: initial}
}

// Get returns the current value.
func (s *Shared[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.val
}

// Set replaces the value.
func (s *Shared[T]) Set(v T) {
	s.mu.Lock()
	s.val = v
	s.mu.Unlock()
}

// Apply mutates the value in place under the write lock.
func (s *Shared[T]) Apply(fn func(*T)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.val)
}
