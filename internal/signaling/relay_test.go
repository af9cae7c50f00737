package signaling

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	"github.com/thesujaljaiswal/Voice-Chat-Application/internal/protocol"
)

func newTestRelay(t *testing.T) (*Relay, *Registry, *fakeSender) {
	t.Helper()
	reg, sender := newTestRegistry()
	return NewRelay(reg, zerolog.Nop()), reg, sender
}

func TestOfferForwardedToPeerOnly(t *testing.T) {
	relay, reg, sender := newTestRelay(t)
	if err := reg.Join("cust", "room-1", protocol.RoleCustomer); err != nil {
		t.Fatalf("customer join: %v", err)
	}
	if err := reg.Join("agent", "room-1", protocol.RoleAgent); err != nil {
		t.Fatalf("agent join: %v", err)
	}
	sender.reset()

	sdp := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)
	relay.Offer("cust", protocol.Offer{RoomID: "room-1", Offer: sdp})

	if len(sender.all()) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(sender.all()))
	}
	got := sender.all()[0]
	if got.ref != "agent" {
		t.Errorf("offer went to %s", got.ref)
	}
	if got.ev.Type != protocol.EventOffer {
		t.Errorf("type = %s", got.ev.Type)
	}
	fwd := decodePayload[protocol.Offer](t, got.ev)
	if !bytes.Equal(fwd.Offer, sdp) {
		t.Errorf("offer payload altered in transit: %s", fwd.Offer)
	}
	if fwd.RoomID != "" {
		t.Errorf("roomId leaked on relay: %q", fwd.RoomID)
	}
}

func TestRoutingIgnoresPayloadRoomID(t *testing.T) {
	relay, reg, sender := newTestRelay(t)
	if err := reg.Join("cust", "room-1", protocol.RoleCustomer); err != nil {
		t.Fatalf("customer join: %v", err)
	}
	if err := reg.Join("agent", "room-1", protocol.RoleAgent); err != nil {
		t.Fatalf("agent join: %v", err)
	}
	if err := reg.Join("other", "room-2", protocol.RoleAgent); err != nil {
		t.Fatalf("other join: %v", err)
	}
	sender.reset()

	// A lying roomId must not steer the message into room-2.
	relay.Answer("cust", protocol.Answer{RoomID: "room-2", Answer: json.RawMessage(`{}`)})

	if len(sender.all()) != 1 || sender.all()[0].ref != "agent" {
		t.Fatalf("answer misrouted: %+v", sender.all())
	}
}

func TestForwardWithoutPeerIsDropped(t *testing.T) {
	relay, reg, sender := newTestRelay(t)
	if err := reg.Join("cust", "room-1", protocol.RoleCustomer); err != nil {
		t.Fatalf("join: %v", err)
	}
	sender.reset()

	relay.Offer("cust", protocol.Offer{Offer: json.RawMessage(`{}`)})
	relay.Candidate("cust", protocol.ICECandidate{Candidate: json.RawMessage(`{}`)})

	if len(sender.all()) != 0 {
		t.Errorf("deliveries with no peer = %d", len(sender.all()))
	}
}

func TestForwardFromUnboundIsDropped(t *testing.T) {
	relay, _, sender := newTestRelay(t)
	relay.Offer("ghost", protocol.Offer{Offer: json.RawMessage(`{}`)})
	if len(sender.all()) != 0 {
		t.Errorf("deliveries from unbound sender = %d", len(sender.all()))
	}
}

func TestChatBroadcastsToAllIncludingSender(t *testing.T) {
	relay, reg, sender := newTestRelay(t)
	if err := reg.Join("cust", "room-1", protocol.RoleCustomer); err != nil {
		t.Fatalf("customer join: %v", err)
	}
	if err := reg.Join("agent", "room-1", protocol.RoleAgent); err != nil {
		t.Fatalf("agent join: %v", err)
	}
	sender.reset()

	relay.Chat("agent", protocol.ChatSend{
		RoomID:    "room-1",
		Text:      "hello there",
		Timestamp: "2026-08-31T10:00:00Z",
	})

	chats := sender.ofType(protocol.EventChatMessage)
	if len(chats) != 2 {
		t.Fatalf("chat deliveries = %d, want both occupants", len(chats))
	}
	seen := map[ConnRef]bool{}
	for _, c := range chats {
		seen[c.ref] = true
		msg := decodePayload[protocol.ChatDeliver](t, c.ev)
		if msg.Role != "Agent" {
			t.Errorf("role = %q, want sender's bound role", msg.Role)
		}
		if msg.Text != "hello there" || msg.Timestamp != "2026-08-31T10:00:00Z" {
			t.Errorf("chat payload = %+v", msg)
		}
	}
	if !seen["cust"] || !seen["agent"] {
		t.Errorf("recipients = %v", seen)
	}
}

func TestChatFromUnboundIsDropped(t *testing.T) {
	relay, _, sender := newTestRelay(t)
	relay.Chat("ghost", protocol.ChatSend{Text: "anyone?"})
	if len(sender.all()) != 0 {
		t.Errorf("deliveries = %d", len(sender.all()))
	}
}

func TestEndCallBroadcastsAndKeepsSenderBound(t *testing.T) {
	relay, reg, sender := newTestRelay(t)
	if err := reg.Join("cust", "room-1", protocol.RoleCustomer); err != nil {
		t.Fatalf("customer join: %v", err)
	}
	if err := reg.Join("agent", "room-1", protocol.RoleAgent); err != nil {
		t.Fatalf("agent join: %v", err)
	}
	sender.reset()

	relay.EndCall("cust")

	ended := sender.ofType(protocol.EventCallEnded)
	if len(ended) != 2 {
		t.Fatalf("call_ended deliveries = %d, want both occupants", len(ended))
	}
	for _, e := range ended {
		if reason := decodePayload[protocol.CallEnded](t, e.ev).Reason; reason != "Ended by user" {
			t.Errorf("reason = %q", reason)
		}
	}

	// Hanging up does not vacate the room; a renegotiation still routes.
	sender.reset()
	relay.Offer("cust", protocol.Offer{Offer: json.RawMessage(`{}`)})
	if len(sender.all()) != 1 || sender.all()[0].ref != "agent" {
		t.Errorf("sender unbound after end_call: %+v", sender.all())
	}
}
