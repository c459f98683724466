// Package vector implements a growable, randomly indexable sequence.
//
// A Vector stores values of T in insertion order. Appends are amortized
// O(1): when the backing store is full it is replaced by one of twice the
// capacity. Capacity never shrinks on its own; call TrimToSize to release
// the slack explicitly.
//
// The zero value is an empty vector ready to use. A Vector is not safe for
// concurrent use.
package vector

import (
	"iter"

	"github.com/cockroachdb/errors"
	"github.com/rawbytedev/songbird/internal/common"
)

// NotFound is returned by IndexOf and IndexFunc when no element matches.
const NotFound = -1

var (
	// ErrOutOfRange is returned for an index outside the valid range.
	ErrOutOfRange = common.ErrOutOfRange
	// ErrAllocation is returned when growth would exceed the capacity limit.
	ErrAllocation = common.ErrAllocation
)

type options struct {
	capacity int
	max      int
}

// Option configures a Vector created with New.
type Option func(*options)

// WithCapacity sets the initial number of allocated slots.
func WithCapacity(n int) Option {
	return func(o *options) {
		o.capacity = n
	}
}

// WithMaxCapacity bounds growth. Inserts that would need more slots fail
// with ErrAllocation.
func WithMaxCapacity(n int) Option {
	return func(o *options) {
		o.max = n
	}
}

// Vector is a dynamic array. Its size and capacity are only observable
// through Len and Cap.
type Vector[T any] struct {
	// len(entries) is the capacity; entries[size:] are zeroed slack
	entries []T
	size    int
	max     int
}

// New returns a vector with DefaultCapacity slots allocated, unless
// overridden by WithCapacity.
func New[T any](opts ...Option) *Vector[T] {
	o := options{capacity: common.DefaultCapacity}
	for _, opt := range opts {
		opt(&o)
	}
	if o.capacity < 0 {
		o.capacity = 0
	}
	if o.max > 0 && o.capacity > o.max {
		o.capacity = o.max
	}
	return &Vector[T]{entries: make([]T, o.capacity), max: o.max}
}

// Len returns the number of live elements.
func (v *Vector[T]) Len() int { return v.size }

// Cap returns the number of allocated slots.
func (v *Vector[T]) Cap() int { return len(v.entries) }

// Add appends value. It is Insert(v.Len(), value).
func (v *Vector[T]) Add(value T) error {
	return v.Insert(v.size, value)
}

// Insert places value at index, shifting [index, Len()) one slot right.
// index may equal Len(). Growth happens before anything moves, so a failed
// growth leaves the vector untouched.
func (v *Vector[T]) Insert(index int, value T) error {
	if index < 0 || index > v.size {
		return errors.Wrapf(ErrOutOfRange, "insert at %d with size %d", index, v.size)
	}
	if v.size == len(v.entries) {
		if err := v.grow(v.size + 1); err != nil {
			return err
		}
	}
	copy(v.entries[index+1:v.size+1], v.entries[index:v.size])
	v.entries[index] = value
	v.size++
	return nil
}

// Get returns the element at index.
func (v *Vector[T]) Get(index int) (T, error) {
	if index < 0 || index >= v.size {
		var zero T
		return zero, errors.Wrapf(ErrOutOfRange, "get %d with size %d", index, v.size)
	}
	return v.entries[index], nil
}

// Set overwrites the element at index and returns the previous one.
func (v *Vector[T]) Set(index int, value T) (T, error) {
	if index < 0 || index >= v.size {
		var zero T
		return zero, errors.Wrapf(ErrOutOfRange, "set %d with size %d", index, v.size)
	}
	prev := v.entries[index]
	v.entries[index] = value
	return prev, nil
}

// Remove deletes the element at index and returns it. Elements after index
// shift one slot left. Capacity is unchanged.
func (v *Vector[T]) Remove(index int) (T, error) {
	if index < 0 || index >= v.size {
		var zero T
		return zero, errors.Wrapf(ErrOutOfRange, "remove %d with size %d", index, v.size)
	}
	removed := v.entries[index]
	copy(v.entries[index:v.size-1], v.entries[index+1:v.size])
	v.size--
	var zero T
	v.entries[v.size] = zero
	return removed, nil
}

// IndexFunc returns the index of the first element satisfying match, or
// NotFound.
func (v *Vector[T]) IndexFunc(match func(T) bool) int {
	for i := 0; i < v.size; i++ {
		if match(v.entries[i]) {
			return i
		}
	}
	return NotFound
}

// IndexOf returns the index of the first element equal to value, or
// NotFound. For pointer element types this compares identity.
func IndexOf[T comparable](v *Vector[T], value T) int {
	return v.IndexFunc(func(e T) bool { return e == value })
}

// Reserve makes room for at least n slots without further growth.
func (v *Vector[T]) Reserve(n int) error {
	if n <= len(v.entries) {
		return nil
	}
	limit := v.max
	if limit <= 0 || limit > common.MaxCapacity {
		limit = common.MaxCapacity
	}
	if n > limit {
		return errors.Wrapf(ErrAllocation, "reserve %d slots, limit is %d", n, limit)
	}
	v.resize(n)
	return nil
}

// TrimToSize shrinks the capacity to exactly Len().
func (v *Vector[T]) TrimToSize() {
	if v.size == len(v.entries) {
		return
	}
	v.resize(v.size)
}

// Iterate calls fn for every element in order.
func (v *Vector[T]) Iterate(fn func(T)) {
	for i := 0; i < v.size; i++ {
		fn(v.entries[i])
	}
}

// All yields index/element pairs in order.
func (v *Vector[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i := 0; i < v.size; i++ {
			if !yield(i, v.entries[i]) {
				return
			}
		}
	}
}

// Slice returns a copy of the live elements.
func (v *Vector[T]) Slice() []T {
	out := make([]T, v.size)
	copy(out, v.entries[:v.size])
	return out
}

// Clear drops every element but keeps the allocated slots.
func (v *Vector[T]) Clear() {
	clear(v.entries[:v.size])
	v.size = 0
}

// Release drops the backing store. The vector is an empty zero value
// afterwards; referenced values are not touched.
func (v *Vector[T]) Release() {
	v.entries = nil
	v.size = 0
}

func (v *Vector[T]) grow(need int) error {
	n, err := common.Grow(len(v.entries), need, v.max)
	if err != nil {
		return err
	}
	v.resize(n)
	return nil
}

func (v *Vector[T]) resize(n int) {
	if n == 0 {
		v.entries = nil
		return
	}
	fresh := make([]T, n)
	copy(fresh, v.entries[:v.size])
	v.entries = fresh
}
