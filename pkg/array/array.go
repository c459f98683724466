// Package array implements a fixed-size, bounds-checked array.
package array

import (
	"iter"

	"github.com/cockroachdb/errors"
	"github.com/rawbytedev/songbird/internal/common"
)

// ErrOutOfRange is returned by Get and Set for an index outside the array.
var ErrOutOfRange = common.ErrOutOfRange

// Array has a size fixed at construction. Every slot starts as the zero
// value of T.
type Array[T any] struct {
	entries []T
}

// New returns an array of size slots.
func New[T any](size int) *Array[T] {
	if size < 0 {
		size = 0
	}
	return &Array[T]{entries: make([]T, size)}
}

// Len returns the fixed size.
func (a *Array[T]) Len() int { return len(a.entries) }

// Get returns the value at index.
func (a *Array[T]) Get(index int) (T, error) {
	if index < 0 || index >= len(a.entries) {
		var zero T
		return zero, errors.Wrapf(ErrOutOfRange, "get %d of %d", index, len(a.entries))
	}
	return a.entries[index], nil
}

// Set stores value at index and returns the previous value.
func (a *Array[T]) Set(index int, value T) (T, error) {
	if index < 0 || index >= len(a.entries) {
		var zero T
		return zero, errors.Wrapf(ErrOutOfRange, "set %d of %d", index, len(a.entries))
	}
	prev := a.entries[index]
	a.entries[index] = value
	return prev, nil
}

// All yields index/value pairs.
func (a *Array[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i, v := range a.entries {
			if !yield(i, v) {
				return
			}
		}
	}
}

// Release drops the backing store; the array then has size zero.
func (a *Array[T]) Release() { a.entries = nil }
