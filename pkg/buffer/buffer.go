// Package buffer implements a growable byte store with a sequential read
// cursor.
//
// Writes append at the end and grow the store by doubling, like a vector of
// bytes. Get and Set address any written position directly. Independently,
// a read cursor consumes the written bytes in order (Fget, Read, the
// FgetUint* helpers) so one Buffer can be filled as an encode target and
// then drained as a decode source. The byte layout is up to the caller.
package buffer

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/rawbytedev/songbird/internal/common"
)

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

// Option configures a Buffer created with New.
type Option func(*options)

// WithCapacity sets the initial number of allocated bytes.
func WithCapacity(n int) Option {
	return func(o *options) {
		o.capacity = n
	}
}

// WithMaxCapacity bounds growth; writes needing more room fail with
// ErrAllocation and write nothing.
func WithMaxCapacity(n int) Option {
	return func(o *options) {
		o.max = n
	}
}

// Buffer is not safe for concurrent use. The zero value is an empty buffer
// ready to use.
type Buffer struct {
	data  []byte // len(data) is the capacity
	size  int
	index int // read cursor, 0 <= index <= size
	max   int
}

// New returns a buffer with DefaultCapacity bytes allocated unless
// overridden.
func New(opts ...Option) *Buffer {
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
	return &Buffer{data: make([]byte, o.capacity), max: o.max}
}

// FromBytes returns a buffer holding a copy of b with the cursor at 0.
func FromBytes(b []byte, opts ...Option) (*Buffer, error) {
	buf := New(opts...)
	if _, err := buf.Write(b); err != nil {
		return nil, err
	}
	return buf, nil
}

// Len returns the number of written bytes.
func (b *Buffer) Len() int { return b.size }

// Cap returns the number of allocated bytes.
func (b *Buffer) Cap() int { return len(b.data) }

// Tell returns the read cursor.
func (b *Buffer) Tell() int { return b.index }

// Remaining returns the number of written bytes after the read cursor.
func (b *Buffer) Remaining() int { return b.size - b.index }

// Add appends one byte.
func (b *Buffer) Add(c byte) error {
	if err := b.ensure(1); err != nil {
		return err
	}
	b.data[b.size] = c
	b.size++
	return nil
}

// WriteByte implements io.ByteWriter.
func (b *Buffer) WriteByte(c byte) error { return b.Add(c) }

// Write appends p. Either all of p is written or, on ErrAllocation, none.
func (b *Buffer) Write(p []byte) (int, error) {
	if err := b.ensure(len(p)); err != nil {
		return 0, err
	}
	n := copy(b.data[b.size:], p)
	b.size += n
	return n, nil
}

// Get returns the byte at index.
func (b *Buffer) Get(index int) (byte, error) {
	if index < 0 || index >= b.size {
		return 0, errors.Wrapf(ErrOutOfRange, "get %d with size %d", index, b.size)
	}
	return b.data[index], nil
}

// Set overwrites the byte at index and returns the previous value.
func (b *Buffer) Set(index int, c byte) (byte, error) {
	if index < 0 || index >= b.size {
		return 0, errors.Wrapf(ErrOutOfRange, "set %d with size %d", index, b.size)
	}
	prev := b.data[index]
	b.data[index] = c
	return prev, nil
}

// Reset empties the buffer and rewinds the cursor. Capacity is kept.
func (b *Buffer) Reset() {
	b.size = 0
	b.index = 0
}

// Fget returns the byte under the read cursor and advances it. It returns
// io.EOF, without moving the cursor, once every written byte is consumed.
func (b *Buffer) Fget() (byte, error) {
	if b.index >= b.size {
		return 0, io.EOF
	}
	c := b.data[b.index]
	b.index++
	return c, nil
}

// ReadByte implements io.ByteReader.
func (b *Buffer) ReadByte() (byte, error) { return b.Fget() }

// Read implements io.Reader over the unread bytes.
func (b *Buffer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if b.index >= b.size {
		return 0, io.EOF
	}
	n := copy(p, b.data[b.index:b.size])
	b.index += n
	return n, nil
}

// Fseek moves the read cursor to index, which may equal Len().
func (b *Buffer) Fseek(index int) error {
	if index < 0 || index > b.size {
		return errors.Wrapf(ErrOutOfRange, "seek %d with size %d", index, b.size)
	}
	b.index = index
	return nil
}

// Skip advances the read cursor by n bytes.
func (b *Buffer) Skip(n int) error {
	return b.Fseek(b.index + n)
}

// Bytes returns the written bytes. The slice aliases the buffer and is
// only valid until the next mutation.
func (b *Buffer) Bytes() []byte { return b.data[:b.size] }

// Unread returns the bytes after the read cursor, aliasing the buffer like
// Bytes.
func (b *Buffer) Unread() []byte { return b.data[b.index:b.size] }

// Compact discards the bytes before the read cursor, moving the unread
// bytes to the start. The cursor ends at 0.
func (b *Buffer) Compact() {
	if b.index == 0 {
		return
	}
	n := copy(b.data, b.data[b.index:b.size])
	b.size = n
	b.index = 0
}

// TrimToSize shrinks the capacity to exactly Len().
func (b *Buffer) TrimToSize() {
	if b.size == len(b.data) {
		return
	}
	b.resize(b.size)
}

// Release drops the backing store. The buffer is an empty zero value
// afterwards.
func (b *Buffer) Release() {
	b.data = nil
	b.size = 0
	b.index = 0
}

func (b *Buffer) ensure(n int) error {
	need := b.size + n
	if need <= len(b.data) {
		return nil
	}
	if need < b.size {
		return errors.Wrapf(ErrAllocation, "write of %d bytes overflows", n)
	}
	c, err := common.Grow(len(b.data), need, b.max)
	if err != nil {
		return err
	}
	b.resize(c)
	return nil
}

func (b *Buffer) resize(n int) {
	if n == 0 {
		b.data = nil
		return
	}
	fresh := make([]byte, n)
	copy(fresh, b.data[:b.size])
	b.data = fresh
}
