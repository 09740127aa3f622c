package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cwrk-planet/room-relay/internal/domain"
	"github.com/cwrk-planet/room-relay/internal/memstore"
	"github.com/cwrk-planet/room-relay/internal/relay"
	"github.com/cwrk-planet/room-relay/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

const room = "6f1c2a7e-0b7d-4c55-9f49-2f8a3c1d9e10"

type frame map[string]any

func newTestServer(t *testing.T) (*httptest.Server, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	repo := memstore.NewRoomRepository()
	require.NoError(t, repo.Create(ctx, &domain.Room{ID: room, IsActive: true}))

	rl := relay.New(service.NewDirectory(repo), relay.NewLocalBus(), relay.Options{})
	srv := NewServer(ctx, rl, KeepAlive{PingInterval: time.Second}, nil)

	r := chi.NewRouter()
	r.Get("/ws/rooms/{id}", srv.HandleWS)
	ts := httptest.NewServer(r)
	t.Cleanup(func() {
		cancel()
		ts.Close()
	})
	return ts, cancel
}

func dial(t *testing.T, ts *httptest.Server, roomID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/rooms/" + roomID
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// readType reads frames until one of the wanted type arrives.
func readType(t *testing.T, c *websocket.Conn, want string) frame {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, data, err := c.ReadMessage()
		require.NoError(t, err)
		var f frame
		require.NoError(t, json.Unmarshal(data, &f))
		if f["type"] == want {
			return f
		}
	}
}

func send(t *testing.T, c *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, c.WriteJSON(v))
}

func TestHandleWS_ChatAndSignaling(t *testing.T) {
	req := require.New(t)
	ts, _ := newTestServer(t)

	a := dial(t, ts, room)
	welcomeA := readType(t, a, relay.TypeConnectionEstablished)
	idA := welcomeA["userId"].(string)
	req.Equal(room, welcomeA["room_id"])
	req.Empty(welcomeA["existing_users"])

	b := dial(t, ts, room)
	welcomeB := readType(t, b, relay.TypeConnectionEstablished)
	idB := welcomeB["userId"].(string)
	req.Equal([]any{idA}, welcomeB["existing_users"])

	joined := readType(t, a, relay.TypeUserJoined)
	req.Equal(idB, joined["userId"])

	send(t, b, frame{"type": "offer", "targetUserId": idA, "offer": frame{"type": "offer", "sdp": "v=0"}})
	offer := readType(t, a, relay.TypeOffer)
	req.Equal(idB, offer["userId"])
	req.Equal("v=0", offer["offer"].(map[string]any)["sdp"])

	send(t, a, frame{"type": "chat_message", "message": "hello", "username": "alice"})
	for _, c := range []*websocket.Conn{a, b} {
		chat := readType(t, c, relay.TypeChatMessage)
		req.Equal("hello", chat["message"])
		req.Equal("alice", chat["username"])
		req.Equal(idA, chat["userId"])
	}

	require.NoError(t, b.Close())
	left := readType(t, a, relay.TypeUserLeft)
	req.Equal(idB, left["userId"])
}

func TestHandleWS_UnknownRoom(t *testing.T) {
	ts, _ := newTestServer(t)

	c := dial(t, ts, "0d9e9a7c-1111-4a3b-9c2d-000000000000")
	require.NoError(t, c.SetReadDeadline(time.Now().Add(3*time.Second)))

	_, _, err := c.ReadMessage()
	var ce *websocket.CloseError
	require.True(t, errors.As(err, &ce), "got %v", err)
	require.Equal(t, relay.CloseRoomNotFound, ce.Code)
	require.Equal(t, "room not found", ce.Text)
}

func TestHandleWS_ShutdownClosesGoingAway(t *testing.T) {
	ts, cancel := newTestServer(t)

	c := dial(t, ts, room)
	readType(t, c, relay.TypeConnectionEstablished)

	cancel()

	require.NoError(t, c.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, _, err := c.ReadMessage()
		if err == nil {
			continue
		}
		require.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
		return
	}
}

func TestOriginChecker(t *testing.T) {
	req := require.New(t)

	withOrigin := func(o string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/ws/rooms/x", nil)
		if o != "" {
			r.Header.Set("Origin", o)
		}
		return r
	}

	open := originChecker(nil)
	req.True(open(withOrigin("https://evil.example")))

	only := originChecker([]string{"https://app.example"})
	req.True(only(withOrigin("https://app.example")))
	req.True(only(withOrigin("HTTPS://APP.EXAMPLE")))
	req.True(only(withOrigin("")))
	req.False(only(withOrigin("https://evil.example")))
}
