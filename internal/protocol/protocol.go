package protocol

import "encoding/json"

// Role is which side of a call a participant occupies. A room holds at
// most one connection per role.
type Role string

const (
	RoleCustomer Role = "Customer"
	RoleAgent    Role = "Agent"
)

// Valid reports whether r is one of the two recognized roles.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleAgent
}

// Counterpart returns the opposite role. Returns "" for an invalid role.
func (r Role) Counterpart() Role {
	switch r {
	case RoleCustomer:
		return RoleAgent
	case RoleAgent:
		return RoleCustomer
	}
	return ""
}

func (r Role) String() string { return string(r) }

// Event type constants for all C2S (Client to Server) and
// S2C (Server to Client) websocket messages.
const (
	EventJoin         = "join"
	EventJoinError    = "join_error"
	EventPresence     = "presence"
	EventReady        = "ready"
	EventOffer        = "webrtc_offer"
	EventAnswer       = "webrtc_answer"
	EventICECandidate = "webrtc_ice_candidate"
	EventChatMessage  = "chat_message"
	EventEndCall      = "end_call"
	EventCallEnded    = "call_ended"
)

// Event is the wire envelope for every websocket message in both
// directions. Payload stays raw so the server can relay negotiation
// payloads byte-for-byte without interpreting them.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEvent wraps payload in an envelope of the given type.
func NewEvent(eventType string, payload any) Event {
	b, _ := json.Marshal(payload)
	return Event{Type: eventType, Payload: b}
}

// Join is sent by a client to bind itself to a (room, role) pair.
type Join struct {
	RoomID string `json:"roomId"`
	Role   Role   `json:"role"`
}

// JoinError reports a rejected join to the requesting client only.
type JoinError struct {
	Message string `json:"message"`
}

// Presence is the per-role occupancy snapshot of a room. It is derived
// from registry state after every mutation, never stored.
type Presence struct {
	CustomerOnline bool `json:"customerOnline"`
	AgentOnline    bool `json:"agentOnline"`
}

// Ready tells both occupants that the room is fully staffed.
type Ready struct {
	Message string `json:"message"`
}

// Offer carries an SDP offer. RoomID is set client-to-server and
// stripped on relay.
type Offer struct {
	RoomID string          `json:"roomId,omitempty"`
	Offer  json.RawMessage `json:"offer"`
}

// Answer carries an SDP answer.
type Answer struct {
	RoomID string          `json:"roomId,omitempty"`
	Answer json.RawMessage `json:"answer"`
}

// ICECandidate carries one trickled ICE candidate.
type ICECandidate struct {
	RoomID    string          `json:"roomId,omitempty"`
	Candidate json.RawMessage `json:"candidate"`
}

// ChatSend is a chat message as submitted by a client. The timestamp
// is the sender's wall clock in ISO 8601.
type ChatSend struct {
	RoomID    string `json:"roomId"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// ChatDeliver is a chat message as broadcast to every occupant,
// stamped with the sender's currently bound role.
type ChatDeliver struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// EndCall asks the server to announce that the sender hung up.
type EndCall struct {
	RoomID string `json:"roomId"`
}

// CallEnded announces call teardown to a room.
type CallEnded struct {
	Reason string `json:"reason"`
}
