package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cwrk-planet/room-relay/internal/relay/mocks"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	testRoom     = "9b2f0c4e-5d6a-4b7c-8e9f-0a1b2c3d4e5f"
	frameTimeout = 2 * time.Second
	quietPeriod  = 150 * time.Millisecond
)

var errConnClosed = errors.New("fake conn closed")

// fakeConn is an in-memory client connection.
type fakeConn struct {
	in     chan []byte
	out    chan []byte
	closed chan struct{}
	once   sync.Once

	mu     sync.Mutex
	code   int
	reason string
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan []byte, 16),
		out:    make(chan []byte, 512),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case b := <-c.in:
		return b, nil
	case <-c.closed:
		return nil, io.EOF
	}
}

func (c *fakeConn) WriteMessage(b []byte) error {
	select {
	case <-c.closed:
		return errConnClosed
	default:
	}
	select {
	case c.out <- b:
		return nil
	case <-c.closed:
		return errConnClosed
	}
}

func (c *fakeConn) Close(code int, reason string) error {
	c.mu.Lock()
	if c.code == 0 {
		c.code, c.reason = code, reason
	}
	c.mu.Unlock()
	c.once.Do(func() { close(c.closed) })
	return nil
}

// hangup simulates the client going away.
func (c *fakeConn) hangup() { c.once.Do(func() { close(c.closed) }) }

func (c *fakeConn) closeCode() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.code
}

func (c *fakeConn) sendJSON(t *testing.T, v any) {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	c.in <- b
}

func (c *fakeConn) sendRaw(s string) { c.in <- []byte(s) }

func (c *fakeConn) next(t *testing.T) map[string]any {
	t.Helper()
	select {
	case b := <-c.out:
		var m map[string]any
		require.NoError(t, json.Unmarshal(b, &m), "frame %s", b)
		return m
	case <-time.After(frameTimeout):
		t.Fatal("timed out waiting for a frame")
		return nil
	}
}

// nextOfType skips frames until one of the given type arrives.
func (c *fakeConn) nextOfType(t *testing.T, typ string) map[string]any {
	t.Helper()
	deadline := time.After(frameTimeout)
	for {
		select {
		case b := <-c.out:
			var m map[string]any
			require.NoError(t, json.Unmarshal(b, &m), "frame %s", b)
			if m["type"] == typ {
				return m
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q", typ)
			return nil
		}
	}
}

// expectNoFrame fails if a frame matching match shows up within quietPeriod.
func (c *fakeConn) expectNoFrame(t *testing.T, match func(map[string]any) bool) {
	t.Helper()
	deadline := time.After(quietPeriod)
	for {
		select {
		case b := <-c.out:
			var m map[string]any
			require.NoError(t, json.Unmarshal(b, &m))
			require.False(t, match(m), "unexpected frame %s", b)
		case <-deadline:
			return
		}
	}
}

func (c *fakeConn) expectNoType(t *testing.T, typ string) {
	t.Helper()
	c.expectNoFrame(t, func(m map[string]any) bool { return m["type"] == typ })
}

type client struct {
	conn *fakeConn
	id   string
	done chan error
}

// join starts a session and consumes its welcome frame.
func join(t *testing.T, r *Relay, roomID string) *client {
	t.Helper()
	c := &client{conn: newFakeConn(), done: make(chan error, 1)}
	go func() { c.done <- r.Serve(context.Background(), roomID, c.conn) }()

	welcome := c.conn.next(t)
	require.Equal(t, TypeConnectionEstablished, welcome["type"])
	c.id = welcome["userId"].(string)
	return c
}

// leave hangs up and waits for the session to finish.
func (c *client) leave(t *testing.T) {
	t.Helper()
	c.conn.hangup()
	select {
	case err := <-c.done:
		require.NoError(t, err)
	case <-time.After(frameTimeout):
		t.Fatal("session did not finish")
	}
}

// countingDirectory accepts roomID and keeps a floored participant count.
func countingDirectory(ctrl *gomock.Controller, roomID string) (*mocks.MockRoomDirectory, *atomic.Int64) {
	var n atomic.Int64
	dir := mocks.NewMockRoomDirectory(ctrl)
	dir.EXPECT().Exists(gomock.Any(), roomID).Return(true, nil).AnyTimes()
	dir.EXPECT().IncrementParticipants(gomock.Any(), roomID).
		DoAndReturn(func(context.Context, string) (int, error) { return int(n.Add(1)), nil }).
		AnyTimes()
	dir.EXPECT().DecrementParticipants(gomock.Any(), roomID).
		DoAndReturn(func(context.Context, string) (int, error) {
			for {
				cur := n.Load()
				next := max(cur-1, 0)
				if n.CompareAndSwap(cur, next) {
					return int(next), nil
				}
			}
		}).
		AnyTimes()
	return dir, &n
}

func newTestRelay(dir RoomDirectory, opts Options, options ...Option) *Relay {
	return New(dir, NewLocalBus(), opts, options...)
}
