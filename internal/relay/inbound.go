package relay

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

const (
	defaultUsername  = "Anonymous"
	maxUsernameRunes = 64
)

// Inbound is a decoded client frame. Signaling payloads stay raw; the relay
// forwards them without looking inside unless SDP validation is on.
type Inbound struct {
	Type         string          `json:"type"`
	TargetUserID string          `json:"targetUserId"`
	Message      string          `json:"message"`
	Username     string          `json:"username"`
	Offer        json.RawMessage `json:"offer"`
	Answer       json.RawMessage `json:"answer"`
	Candidate    json.RawMessage `json:"candidate"`
}

func (in *Inbound) setPayload(p json.RawMessage) {
	switch in.Type {
	case TypeOffer:
		in.Offer = p
	case TypeAnswer:
		in.Answer = p
	case TypeICECandidate:
		in.Candidate = p
	}
}

// Payload returns the signaling payload matching the frame type.
func (in Inbound) Payload() json.RawMessage {
	switch in.Type {
	case TypeOffer:
		return in.Offer
	case TypeAnswer:
		return in.Answer
	case TypeICECandidate:
		return in.Candidate
	default:
		return nil
	}
}

// Decoder turns raw frames into Inbound values.
type Decoder struct {
	validate    *validator.Validate
	maxChat     string
	validateSDP bool
}

func NewDecoder(maxChatRunes int, validateSDP bool) *Decoder {
	if maxChatRunes <= 0 {
		maxChatRunes = 4000
	}
	return &Decoder{
		validate:    validator.New(),
		maxChat:     fmt.Sprintf("max=%d", maxChatRunes),
		validateSDP: validateSDP,
	}
}

// Decode parses one frame. Only the type is read up front; the remaining
// fields are decoded for the types that use them, so unrelated keys of any
// JSON type never fail a frame. Any returned error is a *DecodeError.
func (d *Decoder) Decode(raw []byte) (Inbound, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Inbound{}, &DecodeError{Reason: "Invalid JSON format"}
	}
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return Inbound{}, &DecodeError{Reason: "Invalid JSON format", Err: err}
	}
	in := Inbound{Type: env.Type}

	switch in.Type {
	case TypeChatMessage:
		var chat struct {
			Message  string `json:"message"`
			Username string `json:"username"`
		}
		if err := json.Unmarshal(trimmed, &chat); err != nil {
			return in, &DecodeError{Reason: "invalid chat_message payload", Err: err}
		}
		in.Message, in.Username = chat.Message, chat.Username
		if err := d.validate.Var(in.Message, d.maxChat); err != nil {
			return in, &DecodeError{Reason: "message too long", Err: err}
		}
		if in.Username == "" {
			in.Username = defaultUsername
		}
		if err := d.validate.Var(in.Username, fmt.Sprintf("max=%d", maxUsernameRunes)); err != nil {
			return in, &DecodeError{Reason: "username too long", Err: err}
		}
	case TypeOffer, TypeAnswer, TypeICECandidate:
		fields := map[string]json.RawMessage{}
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return in, &DecodeError{Reason: "Invalid JSON format", Err: err}
		}
		if t, ok := fields["targetUserId"]; ok {
			if err := json.Unmarshal(t, &in.TargetUserID); err != nil {
				return in, &DecodeError{Reason: "invalid " + in.Type + " payload", Err: err}
			}
		}
		in.setPayload(fields[signalKey(in.Type)])
		if d.validateSDP {
			if err := validateSignal(in.Type, in.Payload()); err != nil {
				return in, &DecodeError{Reason: "invalid " + in.Type + " payload", Err: err}
			}
		}
	}
	return in, nil
}
