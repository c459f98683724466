// Package common holds the error values, growth policy and byte codecs
// shared by every container in songbird.
package common

import (
	"encoding/binary"
	"math"
	"math/bits"

	"github.com/cockroachdb/errors"
)

var (
	// ErrOutOfRange is returned when an index falls outside the live region.
	ErrOutOfRange = errors.New("index out of range")
	// ErrEmpty is returned by peek/pop style reads on an empty container.
	ErrEmpty = errors.New("container is empty")
	// ErrCapacityExceeded is returned when a fixed-capacity container is full.
	ErrCapacityExceeded = errors.New("capacity exceeded")
	// ErrAllocation is returned when the backing store cannot grow. The
	// container is unchanged when this is returned.
	ErrAllocation = errors.New("backing store allocation failed")
)

const (
	// DefaultCapacity is the initial slot count of growable containers.
	DefaultCapacity = 16
	// MaxCapacity bounds every backing store.
	MaxCapacity = math.MaxInt32
)

// Grow returns the capacity a store of size cur must have to hold need
// slots, doubling from cur (or DefaultCapacity when cur is zero). It fails
// with ErrAllocation when the result would exceed limit.
func Grow(cur, need, limit int) (int, error) {
	if limit <= 0 || limit > MaxCapacity {
		limit = MaxCapacity
	}
	if need > limit {
		return cur, errors.Wrapf(ErrAllocation, "need %d slots, limit is %d", need, limit)
	}
	n := cur
	if n == 0 {
		n = DefaultCapacity
	}
	for n < need {
		if n > limit/2 {
			// doubling would overshoot; settle on the limit
			n = limit
			break
		}
		n *= 2
	}
	if n > limit {
		n = limit
	}
	return n, nil
}

// PowerOfTwo rounds n up to the next power of two (minimum 1).
func PowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// WriteVarUint appends a varint to buf (allocating if needed).
func WriteVarUint(buf []byte, x uint64) []byte {
	for x >= 0x80 {
		buf = append(buf, byte(x)|0x80)
		x >>= 7
	}
	return append(buf, byte(x))
}

// ReadVarUint decodes a varint from b returning value and bytes consumed.
// Zero bytes consumed means b held no complete varint. A negative count
// -(i+1) means the varint overflows 64 bits at byte i.
func ReadVarUint(b []byte) (uint64, int) {
	var x uint64
	var s uint
	for i, c := range b {
		if i == binary.MaxVarintLen64-1 && c > 1 {
			return 0, -(i + 1)
		}
		x |= uint64(c&0x7F) << s
		if c&0x80 == 0 {
			return x, i + 1
		}
		s += 7
	}
	return 0, 0
}

// FixedSize returns the byte width of a little-endian unsigned integer of
// the given bit size, or -1 for unsupported sizes.
func FixedSize(bits int) int {
	switch bits {
	case 8:
		return 1
	case 16:
		return 2
	case 32:
		return 4
	case 64:
		return 8
	default:
		return -1
	}
}

// AppendFixed appends the low bits of v to dst in little-endian order.
func AppendFixed(dst []byte, v uint64, bits int) []byte {
	switch bits {
	case 8:
		return append(dst, byte(v))
	case 16:
		return binary.LittleEndian.AppendUint16(dst, uint16(v))
	case 32:
		return binary.LittleEndian.AppendUint32(dst, uint32(v))
	case 64:
		return binary.LittleEndian.AppendUint64(dst, v)
	default:
		panic("unsupported fixed width")
	}
}

// ReadFixed decodes a little-endian unsigned integer of the given bit size
// from the start of b. b must hold at least FixedSize(bits) bytes.
func ReadFixed(b []byte, bits int) uint64 {
	switch bits {
	case 8:
		return uint64(b[0])
	case 16:
		return uint64(binary.LittleEndian.Uint16(b))
	case 32:
		return uint64(binary.LittleEndian.Uint32(b))
	case 64:
		return binary.LittleEndian.Uint64(b)
	default:
		panic("unsupported fixed width")
	}
}
