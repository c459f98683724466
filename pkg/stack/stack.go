// Package stack implements a fixed-capacity LIFO stack.
package stack

import (
	"github.com/cockroachdb/errors"
	"github.com/rawbytedev/songbird/internal/common"
)

var (
	// ErrEmpty is returned by reads and pops on an empty container.
	ErrEmpty            = common.ErrEmpty
	// ErrCapacityExceeded is returned by Push on a full stack.
	ErrCapacityExceeded = common.ErrCapacityExceeded
)

// Stack holds at most Cap() values. Pushing onto a full stack fails with
// ErrCapacityExceeded and leaves it unchanged.
type Stack[T any] struct {
	entries []T
	top     int
}

// New returns an empty stack with room for capacity values.
func New[T any](capacity int) *Stack[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Stack[T]{entries: make([]T, capacity)}
}

// Len returns the number of values on the stack.
func (s *Stack[T]) Len() int { return s.top }

// Cap returns the fixed capacity.
func (s *Stack[T]) Cap() int { return len(s.entries) }

// Push places value on top.
func (s *Stack[T]) Push(value T) error {
	if s.top == len(s.entries) {
		return errors.Wrapf(ErrCapacityExceeded, "stack holds %d values", len(s.entries))
	}
	s.entries[s.top] = value
	s.top++
	return nil
}

// Peek returns the top value without removing it.
func (s *Stack[T]) Peek() (T, error) {
	if s.top == 0 {
		var zero T
		return zero, ErrEmpty
	}
	return s.entries[s.top-1], nil
}

// Pop removes and returns the top value.
func (s *Stack[T]) Pop() (T, error) {
	var zero T
	if s.top == 0 {
		return zero, ErrEmpty
	}
	s.top--
	value := s.entries[s.top]
	s.entries[s.top] = zero
	return value, nil
}

// Release drops the backing store; the stack then has zero capacity.
func (s *Stack[T]) Release() {
	s.entries = nil
	s.top = 0
}
