package common

import (
	"bytes"
	"math"
	"testing"
	"testing/quick"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestGrow(t *testing.T) {
	n, err := Grow(0, 1, 0)
	require.NoError(t, err)
	require.Equal(t, DefaultCapacity, n)

	n, err = Grow(16, 17, 0)
	require.NoError(t, err)
	require.Equal(t, 32, n)

	n, err = Grow(16, 100, 0)
	require.NoError(t, err)
	require.Equal(t, 128, n)

	// the limit caps doubling instead of failing
	n, err = Grow(16, 17, 20)
	require.NoError(t, err)
	require.Equal(t, 20, n)

	n, err = Grow(20, 21, 20)
	require.True(t, errors.Is(err, ErrAllocation))
	require.Equal(t, 20, n)
}

func TestPowerOfTwo(t *testing.T) {
	cases := map[int]int{0: 1, 1: 1, 2: 2, 3: 4, 16: 16, 17: 32, 1000: 1024}
	for in, want := range cases {
		require.Equal(t, want, PowerOfTwo(in), "PowerOfTwo(%d)", in)
	}
}

func TestVarUintRoundTrip(t *testing.T) {
	condition := func(x uint64) bool {
		b := WriteVarUint(nil, x)
		got, n := ReadVarUint(b)
		return got == x && n == len(b)
	}
	require.NoError(t, quick.Check(condition, &quick.Config{}))

	b := WriteVarUint(nil, math.MaxUint64)
	require.Len(t, b, 10)
	_, n := ReadVarUint(b[:len(b)-1])
	require.Zero(t, n, "truncated varint must not decode")

	over := append(b[:len(b)-1:len(b)-1], 0x02)
	_, n = ReadVarUint(over)
	require.Equal(t, -10, n)

	long := append(bytes.Repeat([]byte{0x80}, 10), 0x00)
	_, n = ReadVarUint(long)
	require.Equal(t, -10, n)
}

func TestFixed(t *testing.T) {
	for _, bits := range []int{8, 16, 32, 64} {
		v := uint64(0x0102030405060708) & (math.MaxUint64 >> (64 - bits))
		b := AppendFixed(nil, v, bits)
		require.Len(t, b, FixedSize(bits))
		require.Equal(t, v, ReadFixed(b, bits))
	}
	require.Equal(t, -1, FixedSize(24))
	require.Equal(t, []byte{0x34, 0x12}, AppendFixed(nil, 0x1234, 16))
}
