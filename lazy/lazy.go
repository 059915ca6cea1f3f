// Package lazy holds values that are computed on first use.
package lazy

import (
	"sync"
	"sync/atomic"
)

// Of is a lazy value that is initialized at most once. A constructor that
// panics leaves the value uninitialized, so the next Get retries.
type Of[T any] struct {
	mu          sync.Mutex
	create      func() T
	value       T
	initialized atomic.Bool
}

// New creates a lazy value. The callback runs when the value is first read.
func New[T any](f func() T) *Of[T] {
	return &Of[T]{create: f}
}

// Get returns the value, initializing it if necessary.
func (t *Of[T]) Get() T { //nolint:ireturn
	if t.initialized.Load() {
		return t.value
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.initialized.Load() {
		return t.value
	}

	if t.create != nil {
		t.value = t.create()
		t.create = nil
	}

	t.initialized.Store(true)

	return t.value
}

// Set replaces the value. Prefer the constructor callback.
func (t *Of[T]) Set(value T) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.create = nil
	t.value = value
	t.initialized.Store(true)
}

// Initialized reports whether the value has been computed or set. Meant for
// tests and debugging.
func (t *Of[T]) Initialized() bool {
	return t.initialized.Load()
}
