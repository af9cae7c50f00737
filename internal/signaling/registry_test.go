package signaling

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/thesujaljaiswal/Voice-Chat-Application/internal/protocol"
)

type sentEvent struct {
	ref ConnRef
	ev  protocol.Event
}

// fakeSender records every delivery so tests can assert on ordering,
// recipients and payloads. Deliveries may arrive from concurrent
// registry operations.
type fakeSender struct {
	mu     sync.Mutex
	events []sentEvent
}

func (f *fakeSender) Send(ref ConnRef, ev protocol.Event) {
	f.mu.Lock()
	f.events = append(f.events, sentEvent{ref: ref, ev: ev})
	f.mu.Unlock()
}

func (f *fakeSender) reset() {
	f.mu.Lock()
	f.events = nil
	f.mu.Unlock()
}

func (f *fakeSender) all() []sentEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentEvent(nil), f.events...)
}

func (f *fakeSender) ofType(eventType string) []sentEvent {
	var out []sentEvent
	for _, s := range f.all() {
		if s.ev.Type == eventType {
			out = append(out, s)
		}
	}
	return out
}

func newTestRegistry() (*Registry, *fakeSender) {
	sender := &fakeSender{}
	return NewRegistry(sender, zerolog.Nop()), sender
}

func decodePayload[T any](t *testing.T, ev protocol.Event) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(ev.Payload, &v); err != nil {
		t.Fatalf("decoding %s payload: %v", ev.Type, err)
	}
	return v
}

func TestJoinValidation(t *testing.T) {
	tests := []struct {
		name    string
		roomID  string
		role    protocol.Role
		message string
	}{
		{"missing room", "", protocol.RoleCustomer, "roomId and role are required"},
		{"missing role", "room-1", "", "roomId and role are required"},
		{"unknown role", "room-1", "Manager", "Role must be Customer or Agent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, sender := newTestRegistry()
			err := reg.Join("conn-1", tt.roomID, tt.role)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if err.Error() != tt.message {
				t.Errorf("message = %q, want %q", err.Error(), tt.message)
			}
			if reg.RoomCount() != 0 {
				t.Errorf("rejected join created a room")
			}
			if len(sender.all()) != 0 {
				t.Errorf("rejected join emitted %d events", len(sender.all()))
			}
		})
	}
}

func TestJoinRoleConflict(t *testing.T) {
	reg, sender := newTestRegistry()
	if err := reg.Join("conn-1", "room-1", protocol.RoleCustomer); err != nil {
		t.Fatalf("first join: %v", err)
	}
	sender.reset()

	err := reg.Join("conn-2", "room-1", protocol.RoleCustomer)
	if !errors.Is(err, ErrRoleConflict) {
		t.Fatalf("expected role conflict, got %v", err)
	}
	if err.Error() != "Customer already in room" {
		t.Errorf("message = %q", err.Error())
	}
	if len(sender.all()) != 0 {
		t.Errorf("rejected join emitted %d events", len(sender.all()))
	}

	// The loser may still take the other role.
	if err := reg.Join("conn-2", "room-1", protocol.RoleAgent); err != nil {
		t.Fatalf("agent join after conflict: %v", err)
	}
}

func TestRoleConflictLeavesExistingBindingIntact(t *testing.T) {
	reg, sender := newTestRegistry()
	if err := reg.Join("conn-1", "room-1", protocol.RoleCustomer); err != nil {
		t.Fatalf("customer join: %v", err)
	}
	if err := reg.Join("conn-2", "room-1", protocol.RoleAgent); err != nil {
		t.Fatalf("agent join: %v", err)
	}

	// conn-1 tries to grab the agent role while conn-2 holds it. The
	// conflict must not vacate conn-1's customer binding.
	if err := reg.Join("conn-1", "room-1", protocol.RoleAgent); !errors.Is(err, ErrRoleConflict) {
		t.Fatalf("expected role conflict, got %v", err)
	}

	sender.reset()
	reg.Leave("conn-1", LeaveDisconnect)
	ended := sender.ofType(protocol.EventCallEnded)
	if len(ended) == 0 {
		t.Fatal("no call_ended after leave")
	}
	reason := decodePayload[protocol.CallEnded](t, ended[0].ev).Reason
	if reason != "Customer disconnected" {
		t.Errorf("reason = %q, conn-1 lost its customer role", reason)
	}
}

func TestRoleSwitchSameConnection(t *testing.T) {
	reg, sender := newTestRegistry()
	if err := reg.Join("conn-1", "room-1", protocol.RoleCustomer); err != nil {
		t.Fatalf("customer join: %v", err)
	}
	sender.reset()

	if err := reg.Join("conn-1", "room-1", protocol.RoleAgent); err != nil {
		t.Fatalf("role switch: %v", err)
	}

	presence := sender.ofType(protocol.EventPresence)
	if len(presence) == 0 {
		t.Fatal("no presence after role switch")
	}
	snap := decodePayload[protocol.Presence](t, presence[len(presence)-1].ev)
	if snap.CustomerOnline || !snap.AgentOnline {
		t.Errorf("snapshot = %+v, want customer vacated and agent bound", snap)
	}
}

func TestJoinPresenceDelivery(t *testing.T) {
	reg, sender := newTestRegistry()
	if err := reg.Join("cust", "room-1", protocol.RoleCustomer); err != nil {
		t.Fatalf("customer join: %v", err)
	}
	sender.reset()
	if err := reg.Join("agent", "room-1", protocol.RoleAgent); err != nil {
		t.Fatalf("agent join: %v", err)
	}

	presence := sender.ofType(protocol.EventPresence)
	// Broadcast to both occupants plus the unicast to the joiner.
	if len(presence) != 3 {
		t.Fatalf("presence deliveries = %d, want 3", len(presence))
	}
	for _, p := range presence {
		snap := decodePayload[protocol.Presence](t, p.ev)
		if !snap.CustomerOnline || !snap.AgentOnline {
			t.Errorf("snapshot to %s = %+v, want both online", p.ref, snap)
		}
	}
	if last := presence[len(presence)-1]; last.ref != "agent" {
		t.Errorf("final unicast went to %s, want the joiner", last.ref)
	}
}

func TestReadyFiresOncePerTransition(t *testing.T) {
	reg, sender := newTestRegistry()
	if err := reg.Join("cust", "room-1", protocol.RoleCustomer); err != nil {
		t.Fatalf("customer join: %v", err)
	}
	if got := len(sender.ofType(protocol.EventReady)); got != 0 {
		t.Fatalf("ready fired with one occupant")
	}

	if err := reg.Join("agent", "room-1", protocol.RoleAgent); err != nil {
		t.Fatalf("agent join: %v", err)
	}
	ready := sender.ofType(protocol.EventReady)
	if len(ready) != 2 {
		t.Fatalf("ready deliveries = %d, want one per occupant", len(ready))
	}
	msg := decodePayload[protocol.Ready](t, ready[0].ev).Message
	if msg != "Both users connected. You can start the call." {
		t.Errorf("ready message = %q", msg)
	}

	// A redundant rejoin by a current occupant is not a transition.
	sender.reset()
	if err := reg.Join("agent", "room-1", protocol.RoleAgent); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if got := len(sender.ofType(protocol.EventReady)); got != 0 {
		t.Errorf("ready re-fired without a vacancy, got %d", got)
	}

	// After a vacancy the next fill is a fresh transition.
	reg.Leave("agent", LeaveDisconnect)
	sender.reset()
	if err := reg.Join("agent", "room-1", protocol.RoleAgent); err != nil {
		t.Fatalf("refill: %v", err)
	}
	if got := len(sender.ofType(protocol.EventReady)); got != 2 {
		t.Errorf("ready after refill = %d deliveries, want 2", got)
	}
}

func TestLeaveReasons(t *testing.T) {
	tests := []struct {
		name   string
		cause  LeaveCause
		role   protocol.Role
		reason string
	}{
		{"customer drop", LeaveDisconnect, protocol.RoleCustomer, "Customer disconnected"},
		{"agent drop", LeaveDisconnect, protocol.RoleAgent, "Agent disconnected"},
		{"explicit", LeaveExplicit, protocol.RoleCustomer, "Ended by user"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, sender := newTestRegistry()
			if err := reg.Join("leaver", "room-1", tt.role); err != nil {
				t.Fatalf("leaver join: %v", err)
			}
			if err := reg.Join("peer", "room-1", tt.role.Counterpart()); err != nil {
				t.Fatalf("peer join: %v", err)
			}
			sender.reset()

			reg.Leave("leaver", tt.cause)

			ended := sender.ofType(protocol.EventCallEnded)
			if len(ended) != 1 {
				t.Fatalf("call_ended deliveries = %d, want 1 (remaining occupant only)", len(ended))
			}
			if ended[0].ref != "peer" {
				t.Errorf("call_ended went to %s", ended[0].ref)
			}
			if reason := decodePayload[protocol.CallEnded](t, ended[0].ev).Reason; reason != tt.reason {
				t.Errorf("reason = %q, want %q", reason, tt.reason)
			}

			presence := sender.ofType(protocol.EventPresence)
			if len(presence) != 1 {
				t.Fatalf("presence deliveries = %d, want 1", len(presence))
			}
			snap := decodePayload[protocol.Presence](t, presence[0].ev)
			leaverOnline := snap.CustomerOnline
			peerOnline := snap.AgentOnline
			if tt.role == protocol.RoleAgent {
				leaverOnline, peerOnline = peerOnline, leaverOnline
			}
			if leaverOnline || !peerOnline {
				t.Errorf("snapshot after leave = %+v", snap)
			}
		})
	}
}

func TestLeaveUnboundIsNoop(t *testing.T) {
	reg, sender := newTestRegistry()
	reg.Leave("ghost", LeaveDisconnect)
	if len(sender.all()) != 0 {
		t.Errorf("unbound leave emitted %d events", len(sender.all()))
	}
}

func TestRoomDeletedWhenEmptyAndRecreatedClean(t *testing.T) {
	reg, sender := newTestRegistry()
	if err := reg.Join("cust", "room-1", protocol.RoleCustomer); err != nil {
		t.Fatalf("customer join: %v", err)
	}
	if err := reg.Join("agent", "room-1", protocol.RoleAgent); err != nil {
		t.Fatalf("agent join: %v", err)
	}

	reg.Leave("cust", LeaveDisconnect)
	if !reg.hasRoom("room-1") {
		t.Fatal("room deleted while still occupied")
	}
	reg.Leave("agent", LeaveDisconnect)
	if reg.hasRoom("room-1") {
		t.Fatal("empty room not deleted")
	}
	if reg.RoomCount() != 0 {
		t.Fatalf("room count = %d", reg.RoomCount())
	}

	// Recreation carries nothing over: ready fires on the fresh fill.
	sender.reset()
	if err := reg.Join("cust2", "room-1", protocol.RoleCustomer); err != nil {
		t.Fatalf("recreate: %v", err)
	}
	if err := reg.Join("agent2", "room-1", protocol.RoleAgent); err != nil {
		t.Fatalf("refill: %v", err)
	}
	if got := len(sender.ofType(protocol.EventReady)); got != 2 {
		t.Errorf("ready after recreation = %d deliveries, want 2", got)
	}
}

func TestJoinDifferentRoomVacatesOldBinding(t *testing.T) {
	reg, sender := newTestRegistry()
	if err := reg.Join("mover", "room-a", protocol.RoleCustomer); err != nil {
		t.Fatalf("first join: %v", err)
	}
	if err := reg.Join("witness", "room-a", protocol.RoleAgent); err != nil {
		t.Fatalf("witness join: %v", err)
	}
	sender.reset()

	if err := reg.Join("mover", "room-b", protocol.RoleCustomer); err != nil {
		t.Fatalf("move: %v", err)
	}

	ended := sender.ofType(protocol.EventCallEnded)
	if len(ended) != 1 || ended[0].ref != "witness" {
		t.Fatalf("old room not told about the departure: %+v", ended)
	}
	if !reg.hasRoom("room-b") {
		t.Error("new room missing")
	}
	snap := Snapshot("", "")
	if snap.CustomerOnline || snap.AgentOnline {
		t.Error("empty snapshot reports occupancy")
	}
}

func TestConcurrentJoinLeaveRelaySingleRoom(t *testing.T) {
	reg, _ := newTestRegistry()
	relay := NewRelay(reg, zerolog.Nop())

	const workers = 8
	const iterations = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			ref := ConnRef(fmt.Sprintf("conn-%d", w))
			role := protocol.RoleCustomer
			if w%2 == 0 {
				role = protocol.RoleAgent
			}
			for i := 0; i < iterations; i++ {
				if err := reg.Join(ref, "room-1", role); err != nil {
					// Another worker holds the role right now.
					if !errors.Is(err, ErrRoleConflict) {
						t.Errorf("join failed with %v", err)
					}
					continue
				}
				relay.Offer(ref, protocol.Offer{Offer: json.RawMessage(`{}`)})
				relay.Chat(ref, protocol.ChatSend{Text: "ping"})
				reg.Leave(ref, LeaveDisconnect)
			}
		}(w)
	}
	wg.Wait()

	// Every successful join was paired with a leave, so the room is gone.
	if got := reg.RoomCount(); got != 0 {
		t.Errorf("room count = %d after all workers left", got)
	}
}
