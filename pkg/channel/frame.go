package channel

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/cockroachdb/errors"
	"github.com/rawbytedev/songbird/pkg/buffer"
)

// Frame layout, integers little endian:
//
//	[0:2]   magic "SB"
//	[2]     type
//	[3:7]   total frame length, header and checksum included
//	[7:n-4] body; Error frames start the body with a code byte
//	[n-4:n] CRC-32 (IEEE) of bytes [2:n-4]
const (
	magic0      = 'S'
	magic1      = 'B'
	headerSize  = 7
	trailerSize = 4
	minFrame    = headerSize + trailerSize

	// MaxFrameSize is the largest frame accepted by default.
	MaxFrameSize = 16 << 20
)

// FrameType tags a frame.
type FrameType byte

const (
	// TypeData carries an application payload.
	TypeData FrameType = 0x01
	// TypeError carries a code byte and an optional detail.
	TypeError FrameType = 0x02
)

// String returns the frame type name.
func (t FrameType) String() string {
	switch t {
	case TypeData:
		return "data"
	case TypeError:
		return "error"
	default:
		return "unknown"
	}
}

var (
	// ErrIncomplete means the source does not yet hold a whole frame.
	ErrIncomplete = errors.New("incomplete frame")
	// ErrBadMagic means the stream is not positioned at a frame.
	ErrBadMagic = errors.New("bad frame magic")
	// ErrChecksum means the frame was corrupted in transit.
	ErrChecksum = errors.New("frame checksum mismatch")
	// ErrMalformed covers bad lengths and unknown frame types.
	ErrMalformed = errors.New("malformed frame")
	// ErrFrameTooLarge is returned when a frame exceeds the size limit.
	ErrFrameTooLarge = errors.New("frame too large")
)

// Message is one decoded frame.
type Message struct {
	Type    FrameType
	Code    byte // set for TypeError
	Payload []byte
}

// DataMessage returns a data frame carrying payload.
func DataMessage(payload []byte) Message {
	return Message{Type: TypeData, Payload: payload}
}

// ErrorMessage returns an error frame with an application code.
func ErrorMessage(code byte, detail []byte) Message {
	return Message{Type: TypeError, Code: code, Payload: detail}
}

// EncodedSize returns the number of bytes m occupies on the wire.
func (m Message) EncodedSize() int {
	n := minFrame + len(m.Payload)
	if m.Type == TypeError {
		n++
	}
	return n
}

// AppendFrame appends the encoding of m to dst.
func AppendFrame(dst []byte, m Message) ([]byte, error) {
	return appendFrame(dst, m, MaxFrameSize)
}

func appendFrame(dst []byte, m Message, limit int) ([]byte, error) {
	if m.Type != TypeData && m.Type != TypeError {
		return dst, errors.Wrapf(ErrMalformed, "frame type %#x", byte(m.Type))
	}
	total := m.EncodedSize()
	if total > limit {
		return dst, errors.Wrapf(ErrFrameTooLarge, "%d bytes over limit %d", total, limit)
	}
	start := len(dst)
	dst = append(dst, magic0, magic1, byte(m.Type))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(total))
	if m.Type == TypeError {
		dst = append(dst, m.Code)
	}
	dst = append(dst, m.Payload...)
	crc := crc32.ChecksumIEEE(dst[start+2:])
	return binary.LittleEndian.AppendUint32(dst, crc), nil
}

// Encode writes m at the end of dst. Nothing is written on error.
func Encode(dst *buffer.Buffer, m Message) error {
	frame, err := AppendFrame(make([]byte, 0, m.EncodedSize()), m)
	if err != nil {
		return err
	}
	_, err = dst.Write(frame)
	return err
}

// Decode reads one frame at src's read cursor and advances past it. The
// returned payload is a copy. When src holds only part of a frame Decode
// returns ErrIncomplete and leaves the cursor alone; any other error means
// the stream is corrupt.
func Decode(src *buffer.Buffer) (Message, error) {
	return decode(src, MaxFrameSize)
}

func decode(src *buffer.Buffer, limit int) (Message, error) {
	rem := src.Unread()
	if len(rem) < headerSize {
		return Message{}, ErrIncomplete
	}
	if rem[0] != magic0 || rem[1] != magic1 {
		return Message{}, errors.Wrapf(ErrBadMagic, "% x", rem[:2])
	}
	typ := FrameType(rem[2])
	total := int(binary.LittleEndian.Uint32(rem[3:headerSize]))
	if total < minFrame {
		return Message{}, errors.Wrapf(ErrMalformed, "length %d", total)
	}
	if total > limit {
		return Message{}, errors.Wrapf(ErrFrameTooLarge, "%d bytes over limit %d", total, limit)
	}
	if len(rem) < total {
		return Message{}, ErrIncomplete
	}
	frame := rem[:total]
	want := binary.LittleEndian.Uint32(frame[total-trailerSize:])
	if got := crc32.ChecksumIEEE(frame[2 : total-trailerSize]); got != want {
		return Message{}, errors.Wrapf(ErrChecksum, "got %08x want %08x", got, want)
	}
	body := frame[headerSize : total-trailerSize]
	m := Message{Type: typ}
	switch typ {
	case TypeData:
	case TypeError:
		if len(body) == 0 {
			return Message{}, errors.Wrap(ErrMalformed, "error frame without code")
		}
		m.Code, body = body[0], body[1:]
	default:
		return Message{}, errors.Wrapf(ErrMalformed, "frame type %#x", byte(typ))
	}
	m.Payload = append([]byte(nil), body...)
	if err := src.Skip(total); err != nil {
		return Message{}, err
	}
	return m, nil
}
