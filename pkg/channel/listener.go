package channel

import (
	"context"
	"net"

	"github.com/cockroachdb/errors"
	"github.com/rawbytedev/songbird/internal/logutil"
	"go.uber.org/zap"
)

// Option configures a Listener or Messenger.
type Option func(*options)

type options struct {
	logger   *zap.Logger
	maxFrame int
	readSize int
}

// WithLogger sets the logger for connection activity.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMaxFrameSize bounds the total size of frames a Messenger accepts and
// sends.
func WithMaxFrameSize(n int) Option {
	return func(o *options) {
		o.maxFrame = n
	}
}

// WithReadSize sets how many bytes a Messenger asks for per read.
func WithReadSize(n int) Option {
	return func(o *options) {
		o.readSize = n
	}
}

func buildOptions(opts []Option) options {
	o := options{maxFrame: MaxFrameSize, readSize: 4096}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = logutil.Adjust(o.logger)
	if o.maxFrame <= 0 || o.maxFrame > MaxFrameSize {
		o.maxFrame = MaxFrameSize
	}
	if o.readSize <= 0 {
		o.readSize = 4096
	}
	return o
}

// Listener accepts byte channels on a TCP address.
type Listener struct {
	ln     net.Listener
	logger *zap.Logger
}

// Listen binds addr, e.g. "127.0.0.1:0" for an ephemeral port.
func Listen(ctx context.Context, addr string, opts ...Option) (*Listener, error) {
	o := buildOptions(opts)
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen %s", addr)
	}
	o.logger.Info("listening", zap.Stringer("addr", ln.Addr()))
	return &Listener{ln: ln, logger: o.logger}, nil
}

// Accept waits for the next connection. After Close it returns ErrClosed.
func (l *Listener) Accept() (*Conn, error) {
	c, err := l.ln.Accept()
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			return nil, ErrClosed
		}
		return nil, errors.Wrap(err, "accept")
	}
	l.logger.Debug("accepted", zap.Stringer("remote", c.RemoteAddr()))
	return NewConn(c), nil
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Close stops accepting. Blocked Accept calls return ErrClosed.
func (l *Listener) Close() error {
	if err := l.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return errors.Wrap(err, "close listener")
	}
	return nil
}
