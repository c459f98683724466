// Package deque implements a double-ended queue over a ring buffer.
//
// The ring's capacity is always a power of two so positions wrap with a
// bitmask rather than a modulo. The element count is tracked explicitly;
// front == back only ever means "empty or exactly full", and the count
// says which. A push into a full ring first doubles the capacity and
// linearizes the two wrapped segments at index 0.
//
// Deque is not safe for concurrent use. The zero value is ready to use.
package deque

import (
	"iter"
	"math/bits"

	"github.com/cockroachdb/errors"
	"github.com/rawbytedev/songbird/internal/common"
)

var (
	// ErrEmpty is returned by reads and pops on an empty container.
	ErrEmpty      = common.ErrEmpty
	// ErrAllocation is returned when growth would exceed the capacity limit.
	ErrAllocation = common.ErrAllocation
)

type options struct {
	capacity int
	max      int
}

// Option configures a Deque created with New.
type Option func(*options)

// WithCapacity sets the initial capacity, rounded up to a power of two.
func WithCapacity(n int) Option {
	return func(o *options) {
		o.capacity = n
	}
}

// WithMaxCapacity bounds growth. The bound is rounded down to a power of
// two; pushes beyond it fail with ErrAllocation.
func WithMaxCapacity(n int) Option {
	return func(o *options) {
		o.max = n
	}
}

// Deque is usable as a FIFO (PushBack/PopFront) or a LIFO
// (PushBack/PopBack).
type Deque[T any] struct {
	entries []T
	front   int // index of the first element
	back    int // index one past the last element
	size    int
	max     int
}

// New returns a deque with common.DefaultCapacity slots unless overridden.
func New[T any](opts ...Option) *Deque[T] {
	o := options{capacity: common.DefaultCapacity}
	for _, opt := range opts {
		opt(&o)
	}
	d := &Deque[T]{}
	if o.max > 0 {
		d.max = floorPowerOfTwo(o.max)
	}
	n := common.PowerOfTwo(o.capacity)
	if d.max > 0 && n > d.max {
		n = d.max
	}
	d.entries = make([]T, n)
	return d
}

// Len returns the number of elements.
func (d *Deque[T]) Len() int { return d.size }

// Cap returns the ring's capacity; always zero or a power of two.
func (d *Deque[T]) Cap() int { return len(d.entries) }

func (d *Deque[T]) mask() int { return len(d.entries) - 1 }

// PushFront adds value before the current front.
func (d *Deque[T]) PushFront(value T) error {
	if err := d.maybeGrow(); err != nil {
		return err
	}
	d.front = (d.front - 1) & d.mask()
	d.entries[d.front] = value
	d.size++
	return nil
}

// PushBack adds value after the current back.
func (d *Deque[T]) PushBack(value T) error {
	if err := d.maybeGrow(); err != nil {
		return err
	}
	d.entries[d.back] = value
	d.back = (d.back + 1) & d.mask()
	d.size++
	return nil
}

// PeekFront returns the front element without removing it.
func (d *Deque[T]) PeekFront() (T, error) {
	if d.size == 0 {
		var zero T
		return zero, ErrEmpty
	}
	return d.entries[d.front], nil
}

// PeekBack returns the back element without removing it.
func (d *Deque[T]) PeekBack() (T, error) {
	if d.size == 0 {
		var zero T
		return zero, ErrEmpty
	}
	return d.entries[(d.back-1)&d.mask()], nil
}

// PopFront removes and returns the front element.
func (d *Deque[T]) PopFront() (T, error) {
	var zero T
	if d.size == 0 {
		return zero, ErrEmpty
	}
	value := d.entries[d.front]
	d.entries[d.front] = zero
	d.front = (d.front + 1) & d.mask()
	d.size--
	return value, nil
}

// PopBack removes and returns the back element.
func (d *Deque[T]) PopBack() (T, error) {
	var zero T
	if d.size == 0 {
		return zero, ErrEmpty
	}
	d.back = (d.back - 1) & d.mask()
	value := d.entries[d.back]
	d.entries[d.back] = zero
	d.size--
	return value, nil
}

// Iterate calls fn for each element from front to back.
func (d *Deque[T]) Iterate(fn func(T)) {
	for i, cursor := 0, d.front; i < d.size; i, cursor = i+1, (cursor+1)&d.mask() {
		fn(d.entries[cursor])
	}
}

// All yields the elements from front to back.
func (d *Deque[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for i, cursor := 0, d.front; i < d.size; i, cursor = i+1, (cursor+1)&d.mask() {
			if !yield(d.entries[cursor]) {
				return
			}
		}
	}
}

// Clear removes every element and keeps the capacity.
func (d *Deque[T]) Clear() {
	clear(d.entries)
	d.front, d.back, d.size = 0, 0, 0
}

// Release drops the backing store. The deque is an empty zero value
// afterwards.
func (d *Deque[T]) Release() {
	d.entries = nil
	d.front, d.back, d.size = 0, 0, 0
}

func (d *Deque[T]) maybeGrow() error {
	if d.size < len(d.entries) {
		return nil
	}
	n := len(d.entries) * 2
	if n == 0 {
		n = common.DefaultCapacity
	}
	limit := d.max
	if limit == 0 {
		limit = floorPowerOfTwo(common.MaxCapacity)
	}
	if n > limit {
		return errors.Wrapf(ErrAllocation, "deque of %d slots cannot double past %d", len(d.entries), limit)
	}
	d.resize(n)
	return nil
}

func (d *Deque[T]) resize(n int) {
	fresh := make([]T, n)
	if d.size > 0 {
		if d.front < d.back {
			copy(fresh, d.entries[d.front:d.back])
		} else {
			// wrapped (or exactly full): [front, cap) then [0, back)
			k := copy(fresh, d.entries[d.front:])
			copy(fresh[k:], d.entries[:d.back])
		}
	}
	d.entries = fresh
	d.front = 0
	d.back = d.size & (n - 1)
}

// floorPowerOfTwo returns the largest power of two not above n (n >= 1).
func floorPowerOfTwo(n int) int {
	return 1 << (bits.Len(uint(n)) - 1)
}
