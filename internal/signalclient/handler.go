package signalclient

import (
	"encoding/json"

	"github.com/thesujaljaiswal/Voice-Chat-Application/internal/protocol"
)

// Handler routes incoming server events to typed channels, one per
// event kind, so consumers can select on exactly what they care about.
type Handler struct {
	client *Client

	Presence  chan protocol.Presence
	Ready     chan string
	JoinError chan string
	Offer     chan json.RawMessage
	Answer    chan json.RawMessage
	Candidate chan json.RawMessage
	Chat      chan protocol.ChatDeliver
	CallEnded chan string

	// Disconnected closes when the transport is lost.
	Disconnected chan struct{}
}

// NewHandler creates a handler for client's event stream.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client:       client,
		Presence:     make(chan protocol.Presence, 4),
		Ready:        make(chan string, 1),
		JoinError:    make(chan string, 1),
		Offer:        make(chan json.RawMessage, 1),
		Answer:       make(chan json.RawMessage, 1),
		Candidate:    make(chan json.RawMessage, 32),
		Chat:         make(chan protocol.ChatDeliver, 32),
		CallEnded:    make(chan string, 1),
		Disconnected: make(chan struct{}),
	}
}

// Start consumes the client's incoming stream until transport loss.
// Run it in its own goroutine.
func (h *Handler) Start() {
	for ev := range h.client.Incoming() {
		switch ev.Type {

		case protocol.EventPresence:
			var p protocol.Presence
			if json.Unmarshal(ev.Payload, &p) == nil {
				h.Presence <- p
			}

		case protocol.EventReady:
			var p protocol.Ready
			if json.Unmarshal(ev.Payload, &p) == nil {
				h.Ready <- p.Message
			}

		case protocol.EventJoinError:
			var p protocol.JoinError
			if json.Unmarshal(ev.Payload, &p) == nil {
				h.JoinError <- p.Message
			}

		case protocol.EventOffer:
			var p protocol.Offer
			if json.Unmarshal(ev.Payload, &p) == nil {
				h.Offer <- p.Offer
			}

		case protocol.EventAnswer:
			var p protocol.Answer
			if json.Unmarshal(ev.Payload, &p) == nil {
				h.Answer <- p.Answer
			}

		case protocol.EventICECandidate:
			var p protocol.ICECandidate
			if json.Unmarshal(ev.Payload, &p) == nil {
				h.Candidate <- p.Candidate
			}

		case protocol.EventChatMessage:
			var p protocol.ChatDeliver
			if json.Unmarshal(ev.Payload, &p) == nil {
				h.Chat <- p
			}

		case protocol.EventCallEnded:
			var p protocol.CallEnded
			if json.Unmarshal(ev.Payload, &p) == nil {
				h.CallEnded <- p.Reason
			}

		default:
		}
	}
	close(h.Disconnected)
}
