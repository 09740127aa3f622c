package relay

import (
	"encoding/json"
	"strconv"

	"github.com/pion/webrtc/v4"
)

// Inbound and outbound message types.
const (
	TypeChatMessage           = "chat_message"
	TypeOffer                 = "offer"
	TypeAnswer                = "answer"
	TypeICECandidate          = "ice_candidate"
	TypeConnectionEstablished = "connection_established"
	TypeParticipantUpdate     = "participant_update"
	TypeUserJoined            = "user_joined"
	TypeUserLeft              = "user_left"
)

type AudienceKind uint8

const (
	AudienceAll AudienceKind = iota
	AudienceOthers
	AudienceTarget
)

func (k AudienceKind) String() string {
	switch k {
	case AudienceAll:
		return "all"
	case AudienceOthers:
		return "others"
	case AudienceTarget:
		return "target"
	default:
		return "unknown(" + strconv.Itoa(int(k)) + ")"
	}
}

// Audience selects the recipients of an event. Each subscriber checks it
// against its own participant id.
type Audience struct {
	Kind AudienceKind `json:"kind"`
	// Excluded sender for AudienceOthers, recipient for AudienceTarget.
	Participant string `json:"participant,omitempty"`
}

func Everyone() Audience        { return Audience{Kind: AudienceAll} }
func AllBut(id string) Audience { return Audience{Kind: AudienceOthers, Participant: id} }
func Only(id string) Audience   { return Audience{Kind: AudienceTarget, Participant: id} }

func (a Audience) Admits(participantID string) bool {
	switch a.Kind {
	case AudienceAll:
		return true
	case AudienceOthers:
		return participantID != a.Participant
	case AudienceTarget:
		return participantID == a.Participant
	default:
		return false
	}
}

// Event is what travels over the Bus: an encoded frame plus its audience.
type Event struct {
	Type     string          `json:"type"`
	RoomID   string          `json:"room_id"`
	Sender   string          `json:"sender,omitempty"`
	Audience Audience        `json:"audience"`
	Frame    json.RawMessage `json:"frame"`
}

type connectionEstablished struct {
	Type             string             `json:"type"`
	Message          string             `json:"message"`
	RoomID           string             `json:"room_id"`
	UserID           string             `json:"userId"`
	ParticipantCount int                `json:"participant_count"`
	ExistingUsers    []string           `json:"existing_users"`
	ICEServers       []webrtc.ICEServer `json:"ice_servers"`
}

type participantUpdate struct {
	Type             string `json:"type"`
	ParticipantCount int    `json:"participant_count"`
	Message          string `json:"message"`
}

type userJoined struct {
	Type             string `json:"type"`
	UserID           string `json:"userId"`
	Username         string `json:"username"`
	ParticipantCount int    `json:"participant_count"`
}

type userLeft struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

type chatMessage struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Username string `json:"username"`
	UserID   string `json:"userId"`
}

type errorFrame struct {
	Error string `json:"error"`
}

// signalKey is the payload field name carried by each signaling type.
func signalKey(msgType string) string {
	if msgType == TypeICECandidate {
		return "candidate"
	}
	return msgType
}

func mustFrame(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		// all frame types are plain structs of strings, ints and raw JSON
		panic("relay: encode frame: " + err.Error())
	}
	return b
}

func joinCountMessage(n int) string  { return "Total participants: " + strconv.Itoa(n) }
func leaveCountMessage(n int) string { return "User left room. Total participants: " + strconv.Itoa(n) }
