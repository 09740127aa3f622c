package relay

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pion/webrtc/v4"
)

var errEmptyPayload = errors.New("empty payload")

// validateSignal checks that an offer/answer carries a parseable session
// description of the same type and that a candidate decodes as an ICE
// candidate init.
func validateSignal(msgType string, payload json.RawMessage) error {
	if len(payload) == 0 || string(payload) == "null" {
		return errEmptyPayload
	}

	switch msgType {
	case TypeOffer, TypeAnswer:
		var sd webrtc.SessionDescription
		if err := json.Unmarshal(payload, &sd); err != nil {
			return fmt.Errorf("session description: %w", err)
		}
		if want := webrtc.NewSDPType(msgType); sd.Type != want {
			return fmt.Errorf("sdp type %q, want %q", sd.Type, want)
		}
		if _, err := sd.Unmarshal(); err != nil {
			return fmt.Errorf("parse sdp: %w", err)
		}
	case TypeICECandidate:
		var c webrtc.ICECandidateInit
		if err := json.Unmarshal(payload, &c); err != nil {
			return fmt.Errorf("ice candidate: %w", err)
		}
	}
	return nil
}
