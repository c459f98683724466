package channel

import (
	"github.com/cockroachdb/errors"
	"github.com/rawbytedev/songbird/pkg/buffer"
	"github.com/rawbytedev/songbird/pkg/deque"
	"go.uber.org/zap"
)

// ErrEmpty is returned by Recv when no decoded message is waiting.
var ErrEmpty = deque.ErrEmpty

// Messenger exchanges frames over a Conn. Outgoing frames wait encoded in a
// FIFO until Flush writes them; incoming bytes gather in a scratch buffer
// and every complete frame is decoded into the inbox by Poll.
//
// A Messenger is not safe for concurrent use.
type Messenger struct {
	conn    *Conn
	logger  *zap.Logger
	limit   int
	outbox  deque.Deque[[]byte]
	written int // bytes of the outbox front already on the wire
	inbox   deque.Deque[Message]
	scratch buffer.Buffer
	chunk   []byte
}

// NewMessenger wraps conn. The conn's blocking mode decides whether Flush
// and Poll wait.
func NewMessenger(conn *Conn, opts ...Option) *Messenger {
	o := buildOptions(opts)
	return &Messenger{
		conn:   conn,
		logger: o.logger,
		limit:  o.maxFrame,
		chunk:  make([]byte, o.readSize),
	}
}

// Conn returns the underlying channel.
func (m *Messenger) Conn() *Conn { return m.conn }

// Send queues a data frame carrying payload.
func (m *Messenger) Send(payload []byte) error {
	return m.queue(DataMessage(payload))
}

// SendError queues an error frame.
func (m *Messenger) SendError(code byte, detail []byte) error {
	return m.queue(ErrorMessage(code, detail))
}

func (m *Messenger) queue(msg Message) error {
	frame, err := appendFrame(make([]byte, 0, msg.EncodedSize()), msg, m.limit)
	if err != nil {
		return err
	}
	return m.outbox.PushBack(frame)
}

// Pending returns the number of queued frames not yet fully written.
func (m *Messenger) Pending() int { return m.outbox.Len() }

// Flush writes queued frames in order. In non-blocking mode it stops with
// ErrNoData when the socket cannot take more; a partly written frame is
// resumed by the next Flush.
func (m *Messenger) Flush() error {
	for m.outbox.Len() > 0 {
		frame, _ := m.outbox.PeekFront()
		n, err := m.conn.Write(frame[m.written:])
		m.written += n
		if m.written == len(frame) {
			_, _ = m.outbox.PopFront()
			m.written = 0
		}
		if err != nil {
			if !errors.Is(err, ErrNoData) {
				m.logger.Debug("flush failed", zap.Int("pending", m.outbox.Len()), zap.Error(err))
			}
			return err
		}
	}
	return nil
}

// Poll reads what the channel has to offer and decodes every complete
// frame into the inbox, returning how many were added. In blocking mode it
// performs a single read which waits for data. In non-blocking mode it
// drains the socket and returns ErrNoData only when nothing was read and no
// frame was decoded.
func (m *Messenger) Poll() (int, error) {
	read := 0
	var readErr error
	for {
		n, err := m.conn.Read(m.chunk)
		if n > 0 {
			if _, werr := m.scratch.Write(m.chunk[:n]); werr != nil {
				return 0, werr
			}
			read += n
		}
		if err != nil {
			readErr = err
			break
		}
		if !m.conn.NonBlocking() {
			break
		}
	}
	if errors.Is(readErr, ErrNoData) {
		readErr = nil
	}

	decoded := 0
	for {
		msg, err := decode(&m.scratch, m.limit)
		if errors.Is(err, ErrIncomplete) {
			break
		}
		if err != nil {
			m.logger.Warn("corrupt stream", zap.Error(err))
			return decoded, err
		}
		if err := m.inbox.PushBack(msg); err != nil {
			return decoded, err
		}
		decoded++
	}
	m.scratch.Compact()

	if readErr != nil {
		return decoded, readErr
	}
	if read == 0 && decoded == 0 {
		return 0, ErrNoData
	}
	return decoded, nil
}

// Recv pops the oldest decoded message.
func (m *Messenger) Recv() (Message, error) {
	return m.inbox.PopFront()
}

// Buffered returns the number of decoded messages waiting in the inbox.
func (m *Messenger) Buffered() int { return m.inbox.Len() }

// Close closes the channel and drops anything queued.
func (m *Messenger) Close() error {
	m.outbox.Release()
	m.inbox.Release()
	m.scratch.Release()
	m.written = 0
	return m.conn.Close()
}
