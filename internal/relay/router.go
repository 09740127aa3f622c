package relay

import (
	"fmt"

	"github.com/cwrk-planet/room-relay/internal/domain"
)

// Route decides the fan-out of an inbound message and builds the outbound
// event. It does no I/O.
//
//	chat_message                 everyone in the room, sender included
//	offer, answer, ice_candidate only the participant named by targetUserId
//	anything else                ErrUnknownType
func Route(in Inbound, from domain.Participant) (Event, error) {
	ev := Event{
		Type:   in.Type,
		RoomID: from.RoomID,
		Sender: from.ID,
	}

	switch in.Type {
	case TypeChatMessage:
		ev.Audience = Everyone()
		ev.Frame = mustFrame(chatMessage{
			Type:     TypeChatMessage,
			Message:  in.Message,
			Username: in.Username,
			UserID:   from.ID,
		})
	case TypeOffer, TypeAnswer, TypeICECandidate:
		if in.TargetUserID == "" {
			return Event{}, fmt.Errorf("%s: %w", in.Type, ErrMissingTarget)
		}
		ev.Audience = Only(in.TargetUserID)
		ev.Frame = mustFrame(map[string]any{
			"type":             in.Type,
			signalKey(in.Type): in.Payload(),
			"userId":           from.ID,
		})
	default:
		return Event{}, fmt.Errorf("%q: %w", in.Type, ErrUnknownType)
	}
	return ev, nil
}
