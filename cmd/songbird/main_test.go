package main

import (
	"bytes"
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rawbytedev/songbird/internal/config"
	"github.com/rawbytedev/songbird/pkg/channel"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type testApp struct {
	*app
	out *bytes.Buffer
}

func newTestApp(t *testing.T, fs afero.Fs, stdin string) testApp {
	out := &bytes.Buffer{}
	return testApp{
		app: &app{
			fs:     fs,
			stdin:  strings.NewReader(stdin),
			stdout: out,
			stderr: &bytes.Buffer{},
			logger: zaptest.NewLogger(t),
		},
		out: out,
	}
}

func run(t *testing.T, fs afero.Fs, stdin string, args ...string) (string, error) {
	t.Helper()
	a := newTestApp(t, fs, stdin)
	cmd := newRootCommand(a.app)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return a.out.String(), err
}

func TestBlobCommands(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/songbird.yaml", []byte("storage:\n  root: /data\n  compression: true\n"), 0o644))

	_, err := run(t, fs, "tweet tweet tweet tweet", "--config", "/etc/songbird.yaml", "blob", "put", "songs/robin")
	require.NoError(t, err)
	exists, err := afero.Exists(fs, "/data/songs/robin")
	require.NoError(t, err)
	require.True(t, exists)

	out, err := run(t, fs, "", "--config", "/etc/songbird.yaml", "blob", "get", "songs/robin")
	require.NoError(t, err)
	require.Equal(t, "tweet tweet tweet tweet", out)

	out, err = run(t, fs, "", "--config", "/etc/songbird.yaml", "blob", "size", "songs/robin")
	require.NoError(t, err)
	require.NotEmpty(t, strings.TrimSpace(out))

	_, err = run(t, fs, "", "--config", "/etc/songbird.yaml", "blob", "get", "songs/wren")
	require.Error(t, err)
}

func TestBadFlags(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := run(t, fs, "", "--log-level", "loud", "blob", "size", "x")
	require.Error(t, err)
	_, err = run(t, fs, "", "--config", "/missing.yaml", "blob", "size", "x")
	require.Error(t, err)
	_, err = run(t, fs, "", "blob", "get")
	require.Error(t, err)
}

func TestEcho(t *testing.T) {
	for _, nonBlocking := range []bool{false, true} {
		t.Run(map[bool]string{false: "blocking", true: "non-blocking"}[nonBlocking], func(t *testing.T) {
			cfg := config.Default().Channel
			cfg.NonBlocking = nonBlocking
			cfg.PollInterval = time.Millisecond

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			logger := zaptest.NewLogger(t)
			ln, err := channel.Listen(ctx, "127.0.0.1:0", channel.WithLogger(logger))
			require.NoError(t, err)
			addr := ln.Addr().String()

			served := make(chan error, 1)
			go func() { served <- serveEcho(ctx, ln, cfg, logger) }()

			replies, err := sendEcho(ctx, addr, []string{"one", "two", "three"}, cfg, logger)
			require.NoError(t, err)
			require.Equal(t, []string{"one", "two", "three"}, replies)

			// a second client on the same server
			replies, err = sendEcho(ctx, addr, []string{"again"}, cfg, logger)
			require.NoError(t, err)
			require.Equal(t, []string{"again"}, replies)

			cancel()
			select {
			case err := <-served:
				require.NoError(t, err)
			case <-time.After(2 * time.Second):
				t.Fatal("server did not stop")
			}
		})
	}
}

func TestEchoSendCommand(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ln, err := channel.Listen(ctx, "127.0.0.1:0")
	require.NoError(t, err)
	// the server outlives the test body, so it must not log through t
	go func() { _ = serveEcho(ctx, ln, config.Default().Channel, zap.NewNop()) }()

	out, err := run(t, afero.NewMemMapFs(), "", "echo", "send", "--addr", ln.Addr().String(), "hello", "world")
	require.NoError(t, err)
	require.Equal(t, "hello\nworld\n", out)
}

func TestServeSurvivesFailingConnection(t *testing.T) {
	cfg := config.Default().Channel
	cfg.PollInterval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logger := zaptest.NewLogger(t)
	ln, err := channel.Listen(ctx, "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()

	var handled atomic.Int32
	served := make(chan error, 1)
	go func() {
		served <- serve(ctx, ln, logger, func(ctx context.Context, conn *channel.Conn) error {
			if handled.Add(1) == 1 {
				return errors.New("write failed")
			}
			return echoConn(ctx, conn, cfg, logger)
		})
	}()

	// the first connection is dropped by the server
	_, err = sendEcho(ctx, addr, []string{"lost"}, cfg, logger)
	require.Error(t, err)

	replies, err := sendEcho(ctx, addr, []string{"still", "serving"}, cfg, logger)
	require.NoError(t, err)
	require.Equal(t, []string{"still", "serving"}, replies)

	cancel()
	select {
	case err := <-served:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
