//go:build unix

package channel

import (
	"net"
	"syscall"

	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

// rawRead reads straight from the descriptor. The runtime keeps sockets in
// O_NONBLOCK, so an empty socket yields EAGAIN instead of parking the
// goroutine. ok is false when c exposes no descriptor.
func rawRead(c net.Conn, p []byte) (n int, ok bool, err error) {
	rc, ok := rawConn(c)
	if !ok {
		return 0, false, nil
	}
	cerr := rc.Read(func(fd uintptr) bool {
		n, err = unix.Read(int(fd), p)
		return true
	})
	if cerr != nil {
		return 0, true, cerr
	}
	if n < 0 {
		n = 0
	}
	return n, true, err
}

func rawWrite(c net.Conn, p []byte) (n int, ok bool, err error) {
	rc, ok := rawConn(c)
	if !ok {
		return 0, false, nil
	}
	cerr := rc.Write(func(fd uintptr) bool {
		n, err = unix.Write(int(fd), p)
		return true
	})
	if cerr != nil {
		return 0, true, cerr
	}
	if n < 0 {
		n = 0
	}
	return n, true, err
}

func rawConn(c net.Conn) (syscall.RawConn, bool) {
	sc, ok := c.(syscall.Conn)
	if !ok {
		return nil, false
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		return nil, false
	}
	return rc, true
}

func isWouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EINTR)
}

func isPeerReset(err error) bool {
	return errors.Is(err, unix.ECONNRESET) || errors.Is(err, unix.EPIPE)
}
