package channel

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/rawbytedev/songbird/pkg/buffer"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	buf := buffer.New()
	want := []Message{
		DataMessage([]byte("hello")),
		ErrorMessage(7, []byte("bad request")),
		DataMessage(nil),
		ErrorMessage(0xFF, nil),
	}
	for _, m := range want {
		require.NoError(t, Encode(buf, m))
	}
	for _, m := range want {
		got, err := Decode(buf)
		require.NoError(t, err)
		require.Equal(t, m.Type, got.Type)
		require.Equal(t, m.Code, got.Code)
		require.Equal(t, len(m.Payload), len(got.Payload))
		require.True(t, bytes.Equal(m.Payload, got.Payload))
	}
	require.Zero(t, buf.Remaining())
	_, err := Decode(buf)
	require.True(t, errors.Is(err, ErrIncomplete))
}

func TestFrameLayout(t *testing.T) {
	frame, err := AppendFrame(nil, DataMessage([]byte{0xAA}))
	require.NoError(t, err)
	require.Len(t, frame, minFrame+1)
	require.Equal(t, []byte{'S', 'B', byte(TypeData)}, frame[:3])
	require.EqualValues(t, len(frame), binary.LittleEndian.Uint32(frame[3:7]))
	require.Equal(t, byte(0xAA), frame[7])

	frame, err = AppendFrame(nil, ErrorMessage(3, []byte("x")))
	require.NoError(t, err)
	require.Equal(t, byte(TypeError), frame[2])
	require.Equal(t, []byte{3, 'x'}, frame[7:9])
}

func TestFrameIncomplete(t *testing.T) {
	frame, err := AppendFrame(nil, DataMessage([]byte("split across reads")))
	require.NoError(t, err)
	for cut := 0; cut < len(frame); cut++ {
		buf, err := buffer.FromBytes(frame[:cut])
		require.NoError(t, err)
		_, err = Decode(buf)
		require.True(t, errors.Is(err, ErrIncomplete), "cut at %d: %v", cut, err)
		require.Equal(t, 0, buf.Tell())
	}
}

func TestFrameCorrupt(t *testing.T) {
	frame, err := AppendFrame(nil, DataMessage([]byte("payload")))
	require.NoError(t, err)

	decodeMutated := func(mutate func([]byte)) error {
		b := append([]byte(nil), frame...)
		mutate(b)
		buf, err := buffer.FromBytes(b)
		require.NoError(t, err)
		_, err = Decode(buf)
		return err
	}

	err = decodeMutated(func(b []byte) { b[0] = 'X' })
	require.True(t, errors.Is(err, ErrBadMagic))

	err = decodeMutated(func(b []byte) { b[8] ^= 0x01 })
	require.True(t, errors.Is(err, ErrChecksum))

	err = decodeMutated(func(b []byte) { binary.LittleEndian.PutUint32(b[3:], 3) })
	require.True(t, errors.Is(err, ErrMalformed))

	err = decodeMutated(func(b []byte) { binary.LittleEndian.PutUint32(b[3:], MaxFrameSize+1) })
	require.True(t, errors.Is(err, ErrFrameTooLarge))
}

func TestFrameUnknownType(t *testing.T) {
	_, err := AppendFrame(nil, Message{Type: 9})
	require.True(t, errors.Is(err, ErrMalformed))

	// a well-formed frame of a type this side does not know
	frame := []byte{'S', 'B', 9}
	frame = binary.LittleEndian.AppendUint32(frame, minFrame)
	frame = binary.LittleEndian.AppendUint32(frame, crc32.ChecksumIEEE(frame[2:]))
	buf, err := buffer.FromBytes(frame)
	require.NoError(t, err)
	_, err = Decode(buf)
	require.True(t, errors.Is(err, ErrMalformed))
}

func TestFrameTooLarge(t *testing.T) {
	_, err := appendFrame(nil, DataMessage(make([]byte, 64)), 32)
	require.True(t, errors.Is(err, ErrFrameTooLarge))

	buf := buffer.New(buffer.WithMaxCapacity(8))
	err = Encode(buf, DataMessage([]byte("too big for the buffer")))
	require.True(t, errors.Is(err, buffer.ErrAllocation))
	require.Zero(t, buf.Len())
}
