package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cwrk-planet/room-relay/internal/domain"
	"github.com/cwrk-planet/room-relay/internal/relay/mocks"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestSession_JoinChatLeave(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	dir, count := countingDirectory(ctrl, testRoom)
	r := newTestRelay(dir, Options{})

	// Given A in the room
	a := join(t, r, testRoom)
	upd := a.conn.nextOfType(t, TypeParticipantUpdate)
	req.EqualValues(1, upd["participant_count"])
	req.Equal("Total participants: 1", upd["message"])

	// When B joins
	b := join(t, r, testRoom)

	// Then A sees the new count and B's arrival, B only the count
	req.EqualValues(2, a.conn.nextOfType(t, TypeParticipantUpdate)["participant_count"])
	joined := a.conn.nextOfType(t, TypeUserJoined)
	req.Equal(b.id, joined["userId"])
	req.Equal("User_"+b.id[:8], joined["username"])
	req.EqualValues(2, joined["participant_count"])
	req.EqualValues(2, b.conn.nextOfType(t, TypeParticipantUpdate)["participant_count"])

	// When A chats
	a.conn.sendJSON(t, map[string]any{"type": "chat_message", "message": "hi", "username": "A"})

	// Then both receive it verbatim, attributed to A
	for _, c := range []*client{a, b} {
		msg := c.conn.nextOfType(t, TypeChatMessage)
		req.Equal("hi", msg["message"])
		req.Equal("A", msg["username"])
		req.Equal(a.id, msg["userId"])
	}

	// When B disconnects
	b.leave(t)

	// Then A is told who left and the new count
	req.Equal(b.id, a.conn.nextOfType(t, TypeUserLeft)["userId"])
	upd = a.conn.nextOfType(t, TypeParticipantUpdate)
	req.EqualValues(1, upd["participant_count"])
	req.Equal("User left room. Total participants: 1", upd["message"])
	req.Equal([]string{a.id}, r.Registry().MembersOf(testRoom))
	req.Equal(CloseNormal, b.conn.closeCode())

	a.leave(t)
	req.Zero(r.Registry().Count(testRoom))
	req.Zero(count.Load())
}

func TestSession_WelcomeFrame(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	dir, _ := countingDirectory(ctrl, testRoom)
	ice := []webrtc.ICEServer{{URLs: []string{"stun:stun.example.org:3478"}}}
	r := newTestRelay(dir, Options{ICEServers: ice})

	a := join(t, r, testRoom)
	defer a.leave(t)

	// B's welcome lists A as already present
	b := &client{conn: newFakeConn(), done: make(chan error, 1)}
	go func() { b.done <- r.Serve(context.Background(), testRoom, b.conn) }()
	welcome := b.conn.next(t)
	defer b.leave(t)

	req.Equal(TypeConnectionEstablished, welcome["type"])
	req.Equal("Connected to room successfully", welcome["message"])
	req.Equal(testRoom, welcome["room_id"])
	req.EqualValues(2, welcome["participant_count"])
	req.Equal([]any{a.id}, welcome["existing_users"])
	req.NotEqual(a.id, welcome["userId"])

	servers := welcome["ice_servers"].([]any)
	req.Len(servers, 1)
	req.Equal([]any{"stun:stun.example.org:3478"}, servers[0].(map[string]any)["urls"])
}

func TestSession_OfferReachesOnlyTarget(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	dir, _ := countingDirectory(ctrl, testRoom)
	r := newTestRelay(dir, Options{})

	a := join(t, r, testRoom)
	b := join(t, r, testRoom)
	c := join(t, r, testRoom)
	defer func() {
		for _, cl := range []*client{a, b, c} {
			cl.leave(t)
		}
	}()

	// When A sends an offer to B
	a.conn.sendJSON(t, map[string]any{
		"type":         "offer",
		"targetUserId": b.id,
		"offer":        map[string]any{"type": "offer", "sdp": "v=0"},
	})

	// Then only B gets it, tagged with A's id
	offer := b.conn.nextOfType(t, TypeOffer)
	req.Equal(a.id, offer["userId"])
	req.Equal(map[string]any{"type": "offer", "sdp": "v=0"}, offer["offer"])
	c.conn.expectNoType(t, TypeOffer)
	a.conn.expectNoType(t, TypeOffer)

	// And B's answer goes back to A only
	b.conn.sendJSON(t, map[string]any{"type": "answer", "targetUserId": a.id, "answer": map[string]any{"type": "answer"}})
	req.Equal(b.id, a.conn.nextOfType(t, TypeAnswer)["userId"])
	c.conn.expectNoType(t, TypeAnswer)

	// ICE candidates use the "candidate" key
	a.conn.sendJSON(t, map[string]any{"type": "ice_candidate", "targetUserId": b.id, "candidate": map[string]any{"candidate": ""}})
	cand := b.conn.nextOfType(t, TypeICECandidate)
	req.Equal(map[string]any{"candidate": ""}, cand["candidate"])
}

func TestSession_DropsUnroutable(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	dir, _ := countingDirectory(ctrl, testRoom)
	obs := &countingObserver{}
	r := newTestRelay(dir, Options{}, WithObserver(obs))

	a := join(t, r, testRoom)
	b := join(t, r, testRoom)
	defer a.leave(t)
	defer b.leave(t)

	// offer without target, offer to a stranger, unknown type
	a.conn.sendJSON(t, map[string]any{"type": "offer", "offer": map[string]any{}})
	a.conn.sendJSON(t, map[string]any{"type": "offer", "targetUserId": "nobody", "offer": map[string]any{}})
	a.conn.sendJSON(t, map[string]any{"type": "user_joined", "userId": "forged"})
	a.conn.sendJSON(t, map[string]any{"type": "typing", "message": map[string]any{"state": true}})

	// the session keeps working
	a.conn.sendJSON(t, map[string]any{"type": "chat_message", "message": "still here"})
	req.Equal("still here", b.conn.nextOfType(t, TypeChatMessage)["message"])
	b.conn.expectNoType(t, TypeOffer)

	// an offer carrying an unrelated non-string field still reaches its target
	a.conn.sendJSON(t, map[string]any{"type": "offer", "targetUserId": b.id, "offer": map[string]any{"sdp": "x"}, "username": 7})
	offer := b.conn.nextOfType(t, TypeOffer)
	req.Equal(a.id, offer["userId"])
	req.Equal(map[string]any{"sdp": "x"}, offer["offer"])
	a.conn.expectNoFrame(t, func(m map[string]any) bool { return m["error"] != nil })

	req.Equal(1, obs.dropped(DropMissingTarget))
	req.Equal(2, obs.dropped(DropUnknownType))
}

func TestSession_LastChatBeforeUserLeft(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	dir, _ := countingDirectory(ctrl, testRoom)
	r := newTestRelay(dir, Options{})

	a := join(t, r, testRoom)
	b := join(t, r, testRoom)
	defer b.leave(t)

	// Given A sends a burst of chats and hangs up right after they are read
	const burst = 10
	for i := 0; i < burst; i++ {
		a.conn.sendJSON(t, map[string]any{"type": "chat_message", "message": fmt.Sprintf("m%d", i)})
	}
	req.Eventually(func() bool { return len(a.conn.in) == 0 }, frameTimeout, time.Millisecond)
	a.leave(t)

	// Then B sees every chat, in order, before user_left
	var got []string
	for {
		m := b.conn.next(t)
		if m["type"] == TypeUserLeft {
			break
		}
		if m["type"] == TypeChatMessage {
			got = append(got, m["message"].(string))
		}
	}
	req.Len(got, burst)
	for i, msg := range got {
		req.Equal(fmt.Sprintf("m%d", i), msg)
	}
}

func TestSession_MalformedFrame(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	dir, _ := countingDirectory(ctrl, testRoom)
	r := newTestRelay(dir, Options{MaxChatLength: 5})

	a := join(t, r, testRoom)
	defer a.leave(t)
	a.conn.nextOfType(t, TypeParticipantUpdate)

	a.conn.sendRaw("{not json")
	req.Equal(map[string]any{"error": "Invalid JSON format"}, a.conn.next(t))

	a.conn.sendJSON(t, map[string]any{"type": "chat_message", "message": "too long"})
	req.Equal(map[string]any{"error": "message too long"}, a.conn.next(t))

	a.conn.sendJSON(t, map[string]any{"type": "chat_message", "message": "ok"})
	msg := a.conn.nextOfType(t, TypeChatMessage)
	req.Equal("ok", msg["message"])
	req.Equal("Anonymous", msg["username"])
	req.Equal(StateActive, sessionOf(t, r, a.id).State())
}

func TestSession_RoomNotFound(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	dir := mocks.NewMockRoomDirectory(ctrl)
	dir.EXPECT().Exists(gomock.Any(), "missing").Return(false, nil)
	obs := &countingObserver{}
	r := newTestRelay(dir, Options{}, WithObserver(obs))

	conn := newFakeConn()
	err := r.Serve(context.Background(), "missing", conn)

	req.ErrorIs(err, domain.ErrRoomNotFound)
	req.Equal(CloseRoomNotFound, conn.closeCode())
	req.Zero(r.Registry().Count("missing"))
	req.Empty(conn.out)
	req.Equal(1, obs.rejected("room not found"))
}

func TestSession_DirectoryFailureOnAdmission(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	dir := mocks.NewMockRoomDirectory(ctrl)
	dir.EXPECT().Exists(gomock.Any(), testRoom).Return(false, errors.New("db down"))
	r := newTestRelay(dir, Options{})

	conn := newFakeConn()
	err := r.Serve(context.Background(), testRoom, conn)

	req.Error(err)
	req.Equal(CloseSetupFailed, conn.closeCode())
	req.Zero(r.Registry().Count(testRoom))
}

func TestSession_CountFailureFailsOpen(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	dir := mocks.NewMockRoomDirectory(ctrl)
	dir.EXPECT().Exists(gomock.Any(), testRoom).Return(true, nil).AnyTimes()
	dir.EXPECT().IncrementParticipants(gomock.Any(), testRoom).Return(0, errors.New("db down")).AnyTimes()
	dir.EXPECT().DecrementParticipants(gomock.Any(), testRoom).Return(0, errors.New("db down")).AnyTimes()
	r := newTestRelay(dir, Options{})

	a := join(t, r, testRoom)
	req.EqualValues(1, a.conn.nextOfType(t, TypeParticipantUpdate)["participant_count"])

	b := join(t, r, testRoom)
	// notifications still flow, counted from live membership
	req.EqualValues(2, a.conn.nextOfType(t, TypeParticipantUpdate)["participant_count"])
	req.Equal(b.id, a.conn.nextOfType(t, TypeUserJoined)["userId"])

	b.leave(t)
	req.Equal(b.id, a.conn.nextOfType(t, TypeUserLeft)["userId"])
	req.EqualValues(1, a.conn.nextOfType(t, TypeParticipantUpdate)["participant_count"])
	a.leave(t)
}

func TestSession_EnforceCapacity(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	dir, _ := countingDirectory(ctrl, testRoom)
	dir.EXPECT().Capacity(gomock.Any(), testRoom).Return(1, 0, nil).AnyTimes()
	r := newTestRelay(dir, Options{EnforceCapacity: true})

	a := join(t, r, testRoom)
	defer a.leave(t)

	conn := newFakeConn()
	err := r.Serve(context.Background(), testRoom, conn)
	req.ErrorIs(err, domain.ErrRoomFull)
	req.Equal(CloseRoomFull, conn.closeCode())
	req.Equal([]string{a.id}, r.Registry().MembersOf(testRoom))
}

func TestSession_ChatArchiveAndCensor(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	dir, _ := countingDirectory(ctrl, testRoom)
	archive := mocks.NewMockChatArchive(ctrl)

	saved := make(chan domain.ChatMessage, 1)
	archive.EXPECT().Save(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, m domain.ChatMessage) error {
			saved <- m
			return errors.New("archive offline")
		})

	r := newTestRelay(dir, Options{}, WithArchive(archive), WithCensor(wordCensor{}))
	a := join(t, r, testRoom)
	defer a.leave(t)

	a.conn.sendJSON(t, map[string]any{"type": "chat_message", "message": "a bad word", "username": "A"})
	req.Equal("a *** word", a.conn.nextOfType(t, TypeChatMessage)["message"])

	select {
	case m := <-saved:
		req.Equal(testRoom, m.RoomID)
		req.Equal(a.id, m.ParticipantID)
		req.Equal("A", m.Username)
		req.Equal("a *** word", m.Text)
	case <-time.After(frameTimeout):
		t.Fatal("chat was not archived")
	}
}

func TestSession_ShutdownClosesWithGoingAway(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	dir, count := countingDirectory(ctrl, testRoom)
	r := newTestRelay(dir, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	conn := newFakeConn()
	done := make(chan error, 1)
	go func() { done <- r.Serve(ctx, testRoom, conn) }()
	req.Equal(TypeConnectionEstablished, conn.next(t)["type"])

	expired, stop := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer stop()
	req.ErrorIs(r.Drain(expired), context.DeadlineExceeded)

	cancel()
	drainCtx, drainCancel := context.WithTimeout(context.Background(), frameTimeout)
	defer drainCancel()
	req.NoError(r.Drain(drainCtx))

	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(frameTimeout):
		t.Fatal("session did not stop on shutdown")
	}
	req.Equal(CloseGoingAway, conn.closeCode())
	req.Zero(r.Registry().Count(testRoom))
	req.Zero(count.Load())

	// connections arriving after Drain are turned away
	late := newFakeConn()
	req.ErrorIs(r.Serve(context.Background(), testRoom, late), ErrDraining)
	req.Equal(CloseGoingAway, late.closeCode())
	late.expectNoType(t, TypeConnectionEstablished)
	req.Zero(r.Registry().Count(testRoom))
}

func TestSession_ConcurrentJoinLeave(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	dir, count := countingDirectory(ctrl, testRoom)
	r := newTestRelay(dir, Options{})

	const n = 24
	clients := make([]*client, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			clients[i] = join(t, r, testRoom)
		}(i)
	}
	wg.Wait()

	req.Equal(n, r.Registry().Count(testRoom))
	req.EqualValues(n, count.Load())

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(c *client) {
			defer wg.Done()
			c.leave(t)
		}(clients[i])
	}
	wg.Wait()

	req.Zero(r.Registry().Count(testRoom))
	req.Zero(count.Load())
}

func TestSession_SlowConsumerDropsInsteadOfBlocking(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	dir, _ := countingDirectory(ctrl, testRoom)
	obs := &countingObserver{}
	r := newTestRelay(dir, Options{SendBuffer: 1}, WithObserver(obs))

	a := join(t, r, testRoom)
	defer a.leave(t)
	s := sessionOf(t, r, a.id)

	// the writer is stuck once the fake transport buffer is full
	for i := 0; i < cap(a.conn.out)+8; i++ {
		s.Deliver(Event{Type: "x", RoomID: testRoom, Audience: Everyone(), Frame: []byte(`{}`)})
	}
	req.Positive(obs.dropped(DropSlowConsumer))
}

func sessionOf(t *testing.T, r *Relay, participantID string) *Session {
	t.Helper()
	_, m, ok := r.Registry().Lookup(participantID)
	require.True(t, ok)
	return m.(*Session)
}

type wordCensor struct{}

func (wordCensor) Censor(s string) string { return strings.ReplaceAll(s, "bad", "***") }

type countingObserver struct {
	mu   sync.Mutex
	drop map[string]int
	rej  map[string]int
}

func (o *countingObserver) SessionOpened(string) {}
func (o *countingObserver) SessionClosed(string) {}
func (o *countingObserver) MessageRouted(string) {}

func (o *countingObserver) AdmissionRejected(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.rej == nil {
		o.rej = map[string]int{}
	}
	o.rej[reason]++
}

func (o *countingObserver) MessageDropped(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.drop == nil {
		o.drop = map[string]int{}
	}
	o.drop[reason]++
}

func (o *countingObserver) dropped(reason string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.drop[reason]
}

func (o *countingObserver) rejected(reason string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rej[reason]
}
