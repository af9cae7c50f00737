package signaling

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
	"github.com/thesujaljaiswal/Voice-Chat-Application/internal/protocol"
)

// Hub is the connection lifecycle handler. It tracks live connections,
// dispatches their inbound events to the registry and relay, and turns
// transport loss into registry leaves. Per-room ordering is the
// registry's job; the hub itself holds no room state.
type Hub struct {
	log   zerolog.Logger
	reg   *Registry
	relay *Relay

	mu      sync.RWMutex
	clients map[ConnRef]*Client
}

// NewHub creates a hub with its own registry and relay.
func NewHub(log zerolog.Logger) *Hub {
	h := &Hub{
		log:     log,
		clients: make(map[ConnRef]*Client),
	}
	h.reg = NewRegistry(h, log)
	h.relay = NewRelay(h.reg, log)
	return h
}

// Registry exposes the room registry, mainly for health introspection.
func (h *Hub) Registry() *Registry { return h.reg }

// Send queues ev for one connection. Unknown refs, torn-down clients
// and full queues drop the event; the relay path is best-effort and
// never blocks on a peer. A delivery may race the client's teardown,
// which is why send channels are never closed.
func (h *Hub) Send(ref ConnRef, ev protocol.Event) {
	h.mu.RLock()
	c, ok := h.clients[ref]
	h.mu.RUnlock()
	if !ok {
		return
	}
	select {
	case c.send <- ev:
	case <-c.done:
	default:
		h.log.Warn().Str("conn", string(ref)).Str("event", ev.Type).Msg("send queue full, dropping")
	}
}

// Register adds a freshly accepted connection.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ref] = c
	h.mu.Unlock()
	h.log.Info().Str("conn", string(c.ref)).Msg("client registered")
}

// unregister is invoked when a client's read pump exits. Transport loss
// counts as an implicit leave.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c.ref]
	if ok {
		delete(h.clients, c.ref)
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	h.reg.Leave(c.ref, LeaveDisconnect)
	close(c.done)
	h.log.Info().Str("conn", string(c.ref)).Msg("client unregistered")
}

// Shutdown signals every live connection, which makes each write pump
// send a close frame and exit. Removing the clients from the map first
// keeps a later unregister from closing done twice.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ref, c := range h.clients {
		delete(h.clients, ref)
		close(c.done)
	}
}

// dispatch routes one inbound event. Malformed payloads are dropped;
// only join reports errors back to the sender.
func (h *Hub) dispatch(c *Client, ev protocol.Event) {
	switch ev.Type {
	case protocol.EventJoin:
		var p protocol.Join
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			h.Send(c.ref, protocol.NewEvent(protocol.EventJoinError, protocol.JoinError{Message: "roomId and role are required"}))
			return
		}
		if err := h.reg.Join(c.ref, p.RoomID, p.Role); err != nil {
			h.Send(c.ref, protocol.NewEvent(protocol.EventJoinError, protocol.JoinError{Message: err.Error()}))
		}

	case protocol.EventOffer:
		var p protocol.Offer
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			c.log.Debug().Err(err).Msg("bad offer payload")
			return
		}
		h.relay.Offer(c.ref, p)

	case protocol.EventAnswer:
		var p protocol.Answer
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			c.log.Debug().Err(err).Msg("bad answer payload")
			return
		}
		h.relay.Answer(c.ref, p)

	case protocol.EventICECandidate:
		var p protocol.ICECandidate
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			c.log.Debug().Err(err).Msg("bad candidate payload")
			return
		}
		h.relay.Candidate(c.ref, p)

	case protocol.EventChatMessage:
		var p protocol.ChatSend
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			c.log.Debug().Err(err).Msg("bad chat payload")
			return
		}
		h.relay.Chat(c.ref, p)

	case protocol.EventEndCall:
		h.relay.EndCall(c.ref)

	default:
		c.log.Debug().Str("event", ev.Type).Msg("unknown event type")
	}
}
