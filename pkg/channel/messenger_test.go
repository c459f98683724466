package channel

import (
	"fmt"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// pollUntil polls m until it buffers want messages.
func pollUntil(t *testing.T, m *Messenger, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for m.Buffered() < want {
		if time.Now().After(deadline) {
			t.Fatalf("buffered %d of %d messages", m.Buffered(), want)
		}
		_, err := m.Poll()
		if err != nil && !errors.Is(err, ErrNoData) {
			t.Fatalf("poll: %v", err)
		}
	}
}

func TestMessengerExchange(t *testing.T) {
	client, server := tcpPair(t)
	sender := NewMessenger(client, WithLogger(zaptest.NewLogger(t)))
	receiver := NewMessenger(server, WithReadSize(7))
	server.SetNonBlocking(true)

	_, err := receiver.Poll()
	require.True(t, errors.Is(err, ErrNoData))

	for i := 0; i < 10; i++ {
		require.NoError(t, sender.Send([]byte(fmt.Sprintf("msg-%d", i))))
	}
	require.NoError(t, sender.SendError(42, []byte("boom")))
	require.Equal(t, 11, sender.Pending())
	require.NoError(t, sender.Flush())
	require.Zero(t, sender.Pending())

	pollUntil(t, receiver, 11)
	for i := 0; i < 10; i++ {
		msg, err := receiver.Recv()
		require.NoError(t, err)
		require.Equal(t, TypeData, msg.Type)
		require.Equal(t, fmt.Sprintf("msg-%d", i), string(msg.Payload))
	}
	msg, err := receiver.Recv()
	require.NoError(t, err)
	require.Equal(t, TypeError, msg.Type)
	require.Equal(t, byte(42), msg.Code)
	require.Equal(t, "boom", string(msg.Payload))

	_, err = receiver.Recv()
	require.True(t, errors.Is(err, ErrEmpty))
}

func TestMessengerSplitFrame(t *testing.T) {
	client, server := tcpPair(t)
	server.SetNonBlocking(true)
	receiver := NewMessenger(server)

	frame, err := AppendFrame(nil, DataMessage([]byte("arrives in two halves")))
	require.NoError(t, err)
	half := len(frame) / 2

	_, err = client.Write(frame[:half])
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		n, err := receiver.Poll()
		return err == nil && n == 0
	}, time.Second, time.Millisecond, "first half should be read without decoding")
	require.Zero(t, receiver.Buffered())

	_, err = client.Write(frame[half:])
	require.NoError(t, err)
	pollUntil(t, receiver, 1)
	msg, err := receiver.Recv()
	require.NoError(t, err)
	require.Equal(t, "arrives in two halves", string(msg.Payload))
}

func TestMessengerBlockingPoll(t *testing.T) {
	client, server := tcpPair(t)
	sender := NewMessenger(client)
	receiver := NewMessenger(server)

	require.NoError(t, sender.Send([]byte("blocking")))
	require.NoError(t, sender.Flush())
	pollUntil(t, receiver, 1)
	msg, err := receiver.Recv()
	require.NoError(t, err)
	require.Equal(t, "blocking", string(msg.Payload))

	require.NoError(t, sender.Close())
	_, err = receiver.Poll()
	require.True(t, errors.Is(err, ErrClosed), "got %v", err)
}

func TestMessengerCorruptStream(t *testing.T) {
	client, server := tcpPair(t)
	server.SetNonBlocking(true)
	receiver := NewMessenger(server)

	_, err := client.Write([]byte("garbage that is not a frame"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, err := receiver.Poll()
		return errors.Is(err, ErrBadMagic)
	}, time.Second, time.Millisecond)
}

func TestMessengerFrameLimit(t *testing.T) {
	client, _ := tcpPair(t)
	m := NewMessenger(client, WithMaxFrameSize(32))
	require.True(t, errors.Is(m.Send(make([]byte, 64)), ErrFrameTooLarge))
	require.Zero(t, m.Pending())
	require.NoError(t, m.Send(make([]byte, 8)))
	require.Equal(t, 1, m.Pending())
}

func TestMessengerPartialFlush(t *testing.T) {
	client, server := tcpPair(t)
	client.SetNonBlocking(true)
	sender := NewMessenger(client)
	receiver := NewMessenger(server, WithReadSize(64<<10))

	// Queue more than the socket buffers can take so Flush has to stop.
	payload := make([]byte, 1<<20)
	for i := range payload {
		payload[i] = byte(i)
	}
	const frames = 8
	for i := 0; i < frames; i++ {
		require.NoError(t, sender.Send(payload))
	}

	done := make(chan error, 1)
	go func() {
		for i := 0; i < frames; i++ {
			for receiver.Buffered() == 0 {
				if _, err := receiver.Poll(); err != nil {
					done <- err
					return
				}
			}
			msg, _ := receiver.Recv()
			if len(msg.Payload) != len(payload) || msg.Payload[len(payload)-1] != payload[len(payload)-1] {
				done <- errors.Newf("frame %d corrupted", i)
				return
			}
		}
		done <- nil
	}()

	deadline := time.Now().Add(10 * time.Second)
	for sender.Pending() > 0 {
		require.False(t, time.Now().After(deadline), "flush stalled with %d pending", sender.Pending())
		err := sender.Flush()
		if err != nil {
			require.True(t, errors.Is(err, ErrNoData), "got %v", err)
			time.Sleep(time.Millisecond)
		}
	}
	require.NoError(t, <-done)
}
