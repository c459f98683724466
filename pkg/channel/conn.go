// Package channel is a byte channel over TCP with an optional non-blocking
// mode, plus a small framed messenger that queues outgoing and incoming
// frames in songbird containers.
package channel

import (
	"context"
	"io"
	"net"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
)

var (
	// ErrNoData is returned by a non-blocking Read or Write that would have
	// blocked. It is not a failure; retry later.
	ErrNoData = errors.New("no data available")
	// ErrClosed is returned once the peer has closed the connection or the
	// connection was closed locally.
	ErrClosed = errors.New("channel closed")
)

// pollSlice is how long the deadline fallback waits before reporting
// ErrNoData on connections without a raw descriptor.
const pollSlice = time.Millisecond

// Conn is a byte channel. It is not safe for concurrent use by multiple
// readers or multiple writers, but Close may be called from any goroutine
// to unblock a pending Read or Write.
type Conn struct {
	conn        net.Conn
	nonBlocking bool
	closed      atomic.Bool
}

// Dial connects to the TCP address addr.
func Dial(ctx context.Context, addr string) (*Conn, error) {
	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", addr)
	}
	return NewConn(c), nil
}

// NewConn wraps an established connection.
func NewConn(c net.Conn) *Conn {
	return &Conn{conn: c}
}

// SetNonBlocking switches the blocking mode. In non-blocking mode Read and
// Write return ErrNoData instead of waiting.
func (c *Conn) SetNonBlocking(enabled bool) {
	c.nonBlocking = enabled
}

// NonBlocking reports the current mode.
func (c *Conn) NonBlocking() bool { return c.nonBlocking }

// Read reads up to len(p) bytes. At end of stream it returns ErrClosed.
func (c *Conn) Read(p []byte) (int, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	if !c.nonBlocking {
		n, err := c.conn.Read(p)
		if n > 0 {
			return n, nil
		}
		return 0, mapErr(err, "read")
	}
	if n, ok, err := rawRead(c.conn, p); ok {
		if err != nil {
			return 0, mapErr(err, "read")
		}
		if n == 0 {
			return 0, ErrClosed
		}
		return n, nil
	}
	return c.deadlineRead(p)
}

// Write sends p. In blocking mode it returns only after all of p is sent or
// an error occurs. In non-blocking mode it may send a prefix of p, returning
// the count with a nil error, or send nothing and return ErrNoData.
func (c *Conn) Write(p []byte) (int, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	if !c.nonBlocking {
		n, err := c.conn.Write(p)
		if err != nil {
			return n, mapErr(err, "write")
		}
		return n, nil
	}
	if n, ok, err := rawWrite(c.conn, p); ok {
		if err != nil {
			return 0, mapErr(err, "write")
		}
		return n, nil
	}
	return c.deadlineWrite(p)
}

// RemoteAddress returns the peer's host and port.
func (c *Conn) RemoteAddress() (string, uint16, error) {
	addr := c.conn.RemoteAddr()
	if addr == nil {
		return "", 0, errors.New("no remote address")
	}
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return "", 0, errors.Wrapf(err, "remote address %s", addr)
	}
	p, err := strconv.ParseUint(port, 10, 16)
	if err != nil {
		return "", 0, errors.Wrapf(err, "remote port %s", port)
	}
	return host, uint16(p), nil
}

// Close closes the connection. Closing twice is a no-op.
func (c *Conn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.conn.Close()
}

func (c *Conn) deadlineRead(p []byte) (int, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(pollSlice)); err != nil {
		return 0, errors.Wrap(err, "set read deadline")
	}
	n, err := c.conn.Read(p)
	_ = c.conn.SetReadDeadline(time.Time{})
	if n > 0 {
		return n, nil
	}
	return 0, mapErr(err, "read")
}

func (c *Conn) deadlineWrite(p []byte) (int, error) {
	if err := c.conn.SetWriteDeadline(time.Now().Add(pollSlice)); err != nil {
		return 0, errors.Wrap(err, "set write deadline")
	}
	n, err := c.conn.Write(p)
	_ = c.conn.SetWriteDeadline(time.Time{})
	if n > 0 {
		return n, nil
	}
	return 0, mapErr(err, "write")
}

func mapErr(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, os.ErrDeadlineExceeded), isWouldBlock(err):
		return ErrNoData
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed), isPeerReset(err):
		return ErrClosed
	default:
		return errors.Wrap(err, op)
	}
}
