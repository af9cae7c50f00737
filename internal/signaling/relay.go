package signaling

import (
	"github.com/rs/zerolog"
	"github.com/thesujaljaiswal/Voice-Chat-Application/internal/protocol"
)

// Relay forwards negotiation and chat payloads between the occupants of
// a room. It routes by the sender's registry binding, never by any room
// id a client put in the payload, and it never inspects the negotiation
// payloads themselves. Delivery is fire-and-forget: a message for a
// peer that is not there is dropped without telling the sender.
type Relay struct {
	reg *Registry
	log zerolog.Logger
}

// NewRelay creates a relay routing through reg.
func NewRelay(reg *Registry, log zerolog.Logger) *Relay {
	return &Relay{reg: reg, log: log}
}

// Offer forwards an SDP offer to the other occupant of the sender's room.
func (rl *Relay) Offer(from ConnRef, p protocol.Offer) {
	rl.forward(from, protocol.EventOffer, protocol.Offer{Offer: p.Offer})
}

// Answer forwards an SDP answer to the other occupant of the sender's room.
func (rl *Relay) Answer(from ConnRef, p protocol.Answer) {
	rl.forward(from, protocol.EventAnswer, protocol.Answer{Answer: p.Answer})
}

// Candidate forwards one ICE candidate to the other occupant of the
// sender's room.
func (rl *Relay) Candidate(from ConnRef, p protocol.ICECandidate) {
	rl.forward(from, protocol.EventICECandidate, protocol.ICECandidate{Candidate: p.Candidate})
}

// Chat broadcasts a chat message to every occupant of the sender's
// room, the sender included, stamped with the sender's bound role.
// Messages are ephemeral; nothing is buffered or persisted.
func (rl *Relay) Chat(from ConnRef, p protocol.ChatSend) {
	delivered := rl.reg.withBoundRoom(from, func(room *Room, role protocol.Role) {
		rl.reg.broadcastLocked(room, protocol.NewEvent(protocol.EventChatMessage, protocol.ChatDeliver{
			Role:      role.String(),
			Text:      p.Text,
			Timestamp: p.Timestamp,
		}))
	})
	if !delivered {
		// Sender holds no role, so there is no room to echo into.
		rl.log.Debug().Str("conn", string(from)).Msg("chat from unbound connection")
	}
}

// EndCall broadcasts a user hang-up to the whole room, sender included.
// The sender stays bound; Leave fires separately when the connection
// actually goes away.
func (rl *Relay) EndCall(from ConnRef) {
	ok := rl.reg.withBoundRoom(from, func(room *Room, role protocol.Role) {
		rl.reg.broadcastLocked(room, protocol.NewEvent(protocol.EventCallEnded, protocol.CallEnded{
			Reason: "Ended by user",
		}))
	})
	if !ok {
		rl.log.Debug().Str("conn", string(from)).Msg("end_call from unbound connection")
	}
}

func (rl *Relay) forward(from ConnRef, eventType string, payload any) {
	forwarded := false
	rl.reg.withBoundRoom(from, func(room *Room, role protocol.Role) {
		peer := room.occupant(role.Counterpart())
		if peer == "" {
			return
		}
		rl.reg.send.Send(peer, protocol.NewEvent(eventType, payload))
		forwarded = true
	})
	if !forwarded {
		rl.log.Debug().
			Str("event", eventType).
			Str("conn", string(from)).
			Msg("no peer to relay to, dropping")
	}
}
