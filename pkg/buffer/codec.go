package buffer

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/rawbytedev/songbird/internal/common"
)

// AddUvarint appends x as a base-128 varint.
func (b *Buffer) AddUvarint(x uint64) error {
	var scratch [10]byte
	enc := common.WriteVarUint(scratch[:0], x)
	_, err := b.Write(enc)
	return err
}

// ErrVarintOverflow is returned by FgetUvarint for a varint that does not
// fit in 64 bits.
var ErrVarintOverflow = errors.New("varint overflows 64 bits")

// FgetUvarint decodes a varint at the read cursor. A truncated varint
// returns io.ErrUnexpectedEOF and an oversized one ErrVarintOverflow; both
// leave the cursor in place.
func (b *Buffer) FgetUvarint() (uint64, error) {
	if b.index >= b.size {
		return 0, io.EOF
	}
	x, n := common.ReadVarUint(b.Unread())
	if n < 0 {
		return 0, errors.Wrapf(ErrVarintOverflow, "at offset %d", b.index)
	}
	if n == 0 {
		return 0, io.ErrUnexpectedEOF
	}
	b.index += n
	return x, nil
}

// AddUint16 appends v little endian.
func (b *Buffer) AddUint16(v uint16) error { return b.addFixed(uint64(v), 16) }

// AddUint32 appends v little endian.
func (b *Buffer) AddUint32(v uint32) error { return b.addFixed(uint64(v), 32) }

// AddUint64 appends v little endian.
func (b *Buffer) AddUint64(v uint64) error { return b.addFixed(v, 64) }

// FgetUint16 reads a little-endian uint16 at the read cursor.
func (b *Buffer) FgetUint16() (uint16, error) {
	v, err := b.fgetFixed(16)
	return uint16(v), err
}

// FgetUint32 reads a little-endian uint32 at the read cursor.
func (b *Buffer) FgetUint32() (uint32, error) {
	v, err := b.fgetFixed(32)
	return uint32(v), err
}

// FgetUint64 reads a little-endian uint64 at the read cursor.
func (b *Buffer) FgetUint64() (uint64, error) {
	return b.fgetFixed(64)
}

func (b *Buffer) addFixed(v uint64, bits int) error {
	var scratch [8]byte
	_, err := b.Write(common.AppendFixed(scratch[:0], v, bits))
	return err
}

func (b *Buffer) fgetFixed(bits int) (uint64, error) {
	sz := common.FixedSize(bits)
	switch {
	case b.Remaining() == 0:
		return 0, io.EOF
	case b.Remaining() < sz:
		return 0, io.ErrUnexpectedEOF
	}
	v := common.ReadFixed(b.data[b.index:], bits)
	b.index += sz
	return v, nil
}
