package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cwrk-planet/room-relay/internal/domain"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type State int32

const (
	StateConnecting State = iota
	StateAdmitted
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAdmitted:
		return "admitted"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

type dispatch struct {
	ev   Event
	chat *domain.ChatMessage
}

// Session owns one client connection from admission to teardown.
//
// Goroutines: the caller of run reads frames, writeLoop drains the outbound
// queue, dispatchLoop publishes routed events in arrival order.
type Session struct {
	relay       *Relay
	conn        Conn
	roomID      string
	participant domain.Participant
	log         *slog.Logger

	state atomic.Int32
	out   chan []byte
	inbox chan dispatch

	ctx          context.Context
	cancel       context.CancelFunc
	stopOnce     sync.Once
	teardownOnce sync.Once
	wg           sync.WaitGroup
	dispatching  sync.WaitGroup
}

func newSession(r *Relay, roomID string, conn Conn) *Session {
	return &Session{
		relay:  r,
		conn:   conn,
		roomID: roomID,
		log:    r.log.With("room", roomID),
		out:    make(chan []byte, r.opts.SendBuffer),
		inbox:  make(chan dispatch, r.opts.DispatchBuffer),
	}
}

func (s *Session) ParticipantID() string { return s.participant.ID }
func (s *Session) RoomID() string        { return s.roomID }
func (s *Session) State() State          { return State(s.state.Load()) }

func (s *Session) run(parent context.Context) error {
	s.ctx, s.cancel = context.WithCancel(parent)
	defer s.cancel()

	if err := s.admit(); err != nil {
		return s.refuse(err)
	}
	if err := s.activate(); err != nil {
		return s.refuse(err)
	}
	defer s.finish()

	go func() {
		select {
		case <-parent.Done():
			s.stop(CloseGoingAway, "server shutting down")
		case <-s.ctx.Done():
		}
	}()

	s.readLoop()
	return nil
}

func (s *Session) admit() error {
	ctx, cancel := s.relay.directoryCtx(s.ctx)
	defer cancel()

	ok, err := s.relay.dir.Exists(ctx, s.roomID)
	if err != nil {
		return fmt.Errorf("check room: %w", err)
	}
	if !ok {
		return domain.ErrRoomNotFound
	}
	s.state.Store(int32(StateAdmitted))
	return nil
}

func (s *Session) refuse(err error) error {
	code, reason := closeFor(err)
	s.state.Store(int32(StateClosed))
	s.relay.obs.AdmissionRejected(reason)
	s.log.Info("connection refused", "code", code, "err", err)
	s.stop(code, reason)
	return err
}

func (s *Session) activate() error {
	limit := 0
	if s.relay.opts.EnforceCapacity {
		limit = s.capacity()
	}

	s.participant = domain.Participant{
		ID:       uuid.NewString(),
		RoomID:   s.roomID,
		JoinedAt: time.Now(),
	}
	s.log = s.log.With("participant", s.participant.ID)

	if err := s.relay.registry.Register(s.roomID, s, limit); err != nil {
		return err
	}
	s.state.Store(int32(StateActive))
	s.relay.obs.SessionOpened(s.roomID)

	count := s.adjustCount(+1)

	// queued before the bus subscription so the welcome is always the first frame
	s.enqueue(mustFrame(connectionEstablished{
		Type:             TypeConnectionEstablished,
		Message:          "Connected to room successfully",
		RoomID:           s.roomID,
		UserID:           s.participant.ID,
		ParticipantCount: count,
		ExistingUsers:    lo.Without(s.relay.registry.MembersOf(s.roomID), s.participant.ID),
		ICEServers:       s.relay.opts.ICEServers,
	}))
	s.relay.bus.Subscribe(s.roomID, s)

	s.wg.Add(1)
	s.dispatching.Add(1)
	go s.writeLoop()
	go s.dispatchLoop()

	s.publish(Event{
		Type:     TypeParticipantUpdate,
		RoomID:   s.roomID,
		Audience: Everyone(),
		Frame: mustFrame(participantUpdate{
			Type:             TypeParticipantUpdate,
			ParticipantCount: count,
			Message:          joinCountMessage(count),
		}),
	})
	s.publish(Event{
		Type:     TypeUserJoined,
		RoomID:   s.roomID,
		Sender:   s.participant.ID,
		Audience: AllBut(s.participant.ID),
		Frame: mustFrame(userJoined{
			Type:             TypeUserJoined,
			UserID:           s.participant.ID,
			Username:         s.participant.DisplayName(),
			ParticipantCount: count,
		}),
	})

	s.log.Info("participant joined", "count", count)
	return nil
}

// capacity returns the room limit, or 0 when it cannot be read.
func (s *Session) capacity() int {
	ctx, cancel := s.relay.directoryCtx(s.ctx)
	defer cancel()

	limit, _, err := s.relay.dir.Capacity(ctx, s.roomID)
	if err != nil {
		s.log.Warn("room capacity unavailable, admitting without limit", "err", err)
		return 0
	}
	return limit
}

// adjustCount persists a join (+1) or leave (-1). When the directory fails
// the live registry count is used instead.
func (s *Session) adjustCount(delta int) int {
	ctx, cancel := s.relay.directoryCtx(s.ctx)
	defer cancel()

	var (
		n   int
		err error
	)
	if delta > 0 {
		n, err = s.relay.dir.IncrementParticipants(ctx, s.roomID)
	} else {
		n, err = s.relay.dir.DecrementParticipants(ctx, s.roomID)
	}
	if err != nil {
		live := s.relay.registry.Count(s.roomID)
		s.log.Warn("participant count not persisted", "delta", delta, "fallback", live, "err", err)
		return live
	}
	return n
}

func (s *Session) readLoop() {
	for {
		data, err := s.conn.ReadMessage()
		if err != nil {
			s.log.Debug("read loop finished", "err", err)
			return
		}
		s.handleFrame(data)
	}
}

func (s *Session) handleFrame(data []byte) {
	in, err := s.relay.decoder.Decode(data)
	if err != nil {
		reason := "Invalid JSON format"
		var de *DecodeError
		if errors.As(err, &de) {
			reason = de.Reason
		}
		s.relay.obs.MessageDropped(DropMalformed)
		s.log.Debug("malformed frame", "err", err)
		s.enqueue(mustFrame(errorFrame{Error: reason}))
		return
	}

	if in.Type == TypeChatMessage && s.relay.censor != nil {
		in.Message = s.relay.censor.Censor(in.Message)
	}

	ev, err := Route(in, s.participant)
	if err != nil {
		if errors.Is(err, ErrMissingTarget) {
			s.relay.obs.MessageDropped(DropMissingTarget)
			s.log.Warn("signaling message dropped", "type", in.Type, "err", err)
		} else {
			s.relay.obs.MessageDropped(DropUnknownType)
			s.log.Debug("message dropped", "type", in.Type, "err", err)
		}
		return
	}
	s.relay.obs.MessageRouted(ev.Type)

	d := dispatch{ev: ev}
	if in.Type == TypeChatMessage && s.relay.archive != nil {
		d.chat = &domain.ChatMessage{
			RoomID:        s.roomID,
			ParticipantID: s.participant.ID,
			Username:      in.Username,
			Text:          in.Message,
			CreatedAt:     time.Now().UTC(),
		}
	}

	select {
	case s.inbox <- d:
	case <-s.ctx.Done():
	}
}

// dispatchLoop publishes accepted frames in arrival order. On cancel it
// flushes what is already queued so nothing overtakes the user_left event.
func (s *Session) dispatchLoop() {
	defer s.dispatching.Done()
	for {
		select {
		case d := <-s.inbox:
			s.dispatch(d)
		case <-s.ctx.Done():
			for {
				select {
				case d := <-s.inbox:
					s.dispatch(d)
				default:
					return
				}
			}
		}
	}
}

func (s *Session) dispatch(d dispatch) {
	s.publish(d.ev)
	if d.chat != nil {
		s.archive(*d.chat)
	}
}

func (s *Session) writeLoop() {
	defer s.wg.Done()
	for {
		select {
		case frame := <-s.out:
			if err := s.conn.WriteMessage(frame); err != nil {
				s.log.Debug("write failed", "err", err)
				s.stop(CloseInternal, "write failed")
				return
			}
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Session) publish(ev Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), s.relay.opts.PublishTimeout)
	defer cancel()

	if err := s.relay.bus.Publish(ctx, ev); err != nil {
		s.relay.obs.MessageDropped(DropPublishFailed)
		s.log.Warn("publish failed", "type", ev.Type, "err", err)
	}
}

func (s *Session) archive(msg domain.ChatMessage) {
	ctx, cancel := s.relay.directoryCtx(s.ctx)
	defer cancel()

	if err := s.relay.archive.Save(ctx, msg); err != nil {
		s.log.Warn("chat archive failed", "err", err)
	}
}

// Deliver implements Subscriber.
func (s *Session) Deliver(ev Event) {
	if s.State() != StateActive || !ev.Audience.Admits(s.participant.ID) {
		return
	}
	if !s.enqueue(ev.Frame) {
		s.relay.obs.MessageDropped(DropSlowConsumer)
		s.log.Warn("outbound queue full, event dropped", "type", ev.Type)
	}
}

func (s *Session) enqueue(frame []byte) bool {
	select {
	case s.out <- frame:
		return true
	default:
		return false
	}
}

// finish runs once the read loop is done, whatever the reason.
func (s *Session) finish() {
	if p := recover(); p != nil {
		s.log.Error("session panic", "panic", p, "stack", string(debug.Stack()))
	}
	s.teardown()
	s.stop(CloseNormal, "")
	s.wg.Wait()
}

func (s *Session) teardown() {
	s.teardownOnce.Do(func() {
		s.state.Store(int32(StateClosed))
		s.cancel()
		s.dispatching.Wait()

		s.relay.bus.Unsubscribe(s.roomID, s)
		s.relay.registry.Unregister(s.roomID, s.participant.ID)

		s.publish(Event{
			Type:     TypeUserLeft,
			RoomID:   s.roomID,
			Sender:   s.participant.ID,
			Audience: Everyone(),
			Frame:    mustFrame(userLeft{Type: TypeUserLeft, UserID: s.participant.ID}),
		})

		count := s.adjustCount(-1)
		s.publish(Event{
			Type:     TypeParticipantUpdate,
			RoomID:   s.roomID,
			Audience: Everyone(),
			Frame: mustFrame(participantUpdate{
				Type:             TypeParticipantUpdate,
				ParticipantCount: count,
				Message:          leaveCountMessage(count),
			}),
		})

		s.relay.obs.SessionClosed(s.roomID)
		s.log.Info("participant left", "count", count)
	})
}

func (s *Session) stop(code int, reason string) {
	s.stopOnce.Do(func() {
		s.cancel()
		if err := s.conn.Close(code, reason); err != nil {
			s.log.Debug("close connection", "err", err)
		}
	})
}
