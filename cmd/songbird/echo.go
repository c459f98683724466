package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rawbytedev/songbird/internal/config"
	"github.com/rawbytedev/songbird/pkg/channel"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// errCodeRejected tells the peer its frame could not be echoed.
const errCodeRejected = 1

func echoCommand(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "echo",
		Short: "Framed echo service over TCP",
	}
	cmd.PersistentFlags().StringVar(&addr, "addr", "", "address to listen on or dial, overrides the config file")
	address := func() string {
		if addr != "" {
			return addr
		}
		return a.cfg.Channel.Address
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Echo every data frame back to its sender",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				ln, err := channel.Listen(cmd.Context(), address(), channel.WithLogger(a.logger))
				if err != nil {
					return err
				}
				return serveEcho(cmd.Context(), ln, a.cfg.Channel, a.logger)
			},
		},
		&cobra.Command{
			Use:   "send <message>...",
			Short: "Send each argument as a frame and print the replies",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				replies, err := sendEcho(cmd.Context(), address(), args, a.cfg.Channel, a.logger)
				for _, r := range replies {
					fmt.Fprintln(cmd.OutOrStdout(), r)
				}
				return err
			},
		},
	)
	return cmd
}

// serveEcho accepts connections on ln until ctx is done, handling each on
// its own goroutine. It closes ln.
func serveEcho(ctx context.Context, ln *channel.Listener, cfg config.Channel, logger *zap.Logger) error {
	return serve(ctx, ln, logger, func(ctx context.Context, conn *channel.Conn) error {
		return echoConn(ctx, conn, cfg, logger)
	})
}

// serve runs handle for every accepted connection until ctx is done. A
// failing connection is logged and closed; only a listener failure stops
// the server.
func serve(ctx context.Context, ln *channel.Listener, logger *zap.Logger,
	handle func(context.Context, *channel.Conn) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		return ln.Close()
	})
	g.Go(func() error {
		for {
			conn, err := ln.Accept()
			if errors.Is(err, channel.ErrClosed) {
				return nil
			}
			if err != nil {
				return err
			}
			g.Go(func() error {
				defer conn.Close()
				if err := handle(ctx, conn); err != nil {
					logger.Warn("connection failed", zap.Error(err))
				}
				return nil
			})
		}
	})
	return g.Wait()
}

func echoConn(ctx context.Context, conn *channel.Conn, cfg config.Channel, logger *zap.Logger) error {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	conn.SetNonBlocking(cfg.NonBlocking)
	m := channel.NewMessenger(conn, channel.WithLogger(logger), channel.WithMaxFrameSize(cfg.MaxFrameSize))
	defer m.Close()
	host, port, _ := conn.RemoteAddress()
	logger = logger.With(zap.String("peer", host), zap.Uint16("port", port))

	for {
		_, err := m.Poll()
		switch {
		case errors.Is(err, channel.ErrClosed):
			logger.Debug("peer closed")
			return nil
		case errors.Is(err, channel.ErrNoData):
			if !sleep(ctx, cfg.PollInterval) {
				return nil
			}
		case err != nil:
			logger.Warn("dropping connection", zap.Error(err))
			return nil
		}

		for m.Buffered() > 0 {
			msg, _ := m.Recv()
			switch msg.Type {
			case channel.TypeData:
				if err := m.Send(msg.Payload); err != nil {
					_ = m.SendError(errCodeRejected, []byte(err.Error()))
				}
			case channel.TypeError:
				logger.Info("peer reported error", zap.Uint8("code", msg.Code), zap.ByteString("detail", msg.Payload))
			}
		}
		if err := flush(ctx, m, cfg.PollInterval); err != nil {
			if errors.Is(err, channel.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			logger.Warn("dropping connection", zap.Error(err))
			return nil
		}
	}
}

// sendEcho dials addr, sends each message as a data frame and waits for as
// many replies.
func sendEcho(ctx context.Context, addr string, msgs []string, cfg config.Channel, logger *zap.Logger) ([]string, error) {
	conn, err := channel.Dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	conn.SetNonBlocking(cfg.NonBlocking)
	m := channel.NewMessenger(conn, channel.WithLogger(logger), channel.WithMaxFrameSize(cfg.MaxFrameSize))
	defer m.Close()

	for _, s := range msgs {
		if err := m.Send([]byte(s)); err != nil {
			return nil, err
		}
	}
	if err := flush(ctx, m, cfg.PollInterval); err != nil {
		return nil, err
	}

	replies := make([]string, 0, len(msgs))
	for len(replies) < len(msgs) {
		_, err := m.Poll()
		for m.Buffered() > 0 {
			msg, _ := m.Recv()
			if msg.Type == channel.TypeError {
				return replies, errors.Newf("server error %d: %s", msg.Code, msg.Payload)
			}
			replies = append(replies, string(msg.Payload))
		}
		switch {
		case errors.Is(err, channel.ErrNoData):
			if !sleep(ctx, cfg.PollInterval) {
				return replies, ctx.Err()
			}
		case err != nil && len(replies) < len(msgs):
			return replies, errors.Wrapf(err, "after %d of %d replies", len(replies), len(msgs))
		}
	}
	return replies, nil
}

func flush(ctx context.Context, m *channel.Messenger, interval time.Duration) error {
	for {
		err := m.Flush()
		if !errors.Is(err, channel.ErrNoData) {
			return err
		}
		if !sleep(ctx, interval) {
			return ctx.Err()
		}
	}
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
