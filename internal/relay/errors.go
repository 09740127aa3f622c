package relay

import (
	"errors"

	"github.com/cwrk-planet/room-relay/internal/domain"
)

// Close codes sent to the client when a session ends.
const (
	CloseNormal       = 1000
	CloseGoingAway    = 1001
	CloseInternal     = 1011
	CloseSetupFailed  = 4000
	CloseRoomFull     = 4003
	CloseRoomNotFound = 4004
)

var (
	ErrUnknownType       = errors.New("unknown message type")
	ErrMissingTarget     = errors.New("signaling message without targetUserId")
	ErrAlreadyRegistered = errors.New("participant already registered")
	ErrDraining          = errors.New("relay is draining")
)

// DecodeError is reported back to the sender as {"error": Reason}.
// The session stays open.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return e.Reason + ": " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// closeFor maps an admission error onto a close code and reason.
func closeFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound), errors.Is(err, domain.ErrRoomInactive):
		return CloseRoomNotFound, "room not found"
	case errors.Is(err, domain.ErrRoomFull):
		return CloseRoomFull, "room is full"
	default:
		return CloseSetupFailed, "connection setup failed"
	}
}
