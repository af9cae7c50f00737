package signaling

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/thesujaljaiswal/Voice-Chat-Application/internal/protocol"
)

// ConnRef identifies one transport session. It is minted by the server
// when the connection is accepted and is the only identity the registry
// ever sees; the underlying websocket is never used as a key.
type ConnRef string

// Sender delivers an event to a single connection. Delivery is
// best-effort and must never block; the registry calls it while holding
// a room lock.
type Sender interface {
	Send(ref ConnRef, ev protocol.Event)
}

// LeaveCause distinguishes an explicit hang-up from transport loss.
// The two produce different call_ended reasons.
type LeaveCause int

const (
	LeaveDisconnect LeaveCause = iota
	LeaveExplicit
)

// Room holds the occupancy of one named room: at most one customer
// connection and one agent connection. All mutation and every side
// effect it triggers happens under mu, so operations on one room are
// strictly serialized while different rooms stay independent.
type Room struct {
	mu       sync.Mutex
	id       string
	customer ConnRef
	agent    ConnRef
}

func (r *Room) occupant(role protocol.Role) ConnRef {
	if role == protocol.RoleCustomer {
		return r.customer
	}
	return r.agent
}

func (r *Room) setOccupant(role protocol.Role, ref ConnRef) {
	if role == protocol.RoleCustomer {
		r.customer = ref
	} else {
		r.agent = ref
	}
}

func (r *Room) emptyLocked() bool {
	return r.customer == "" && r.agent == ""
}

func (r *Room) bothBoundLocked() bool {
	return r.customer != "" && r.agent != ""
}

func (r *Room) occupantsLocked() []ConnRef {
	refs := make([]ConnRef, 0, 2)
	if r.customer != "" {
		refs = append(refs, r.customer)
	}
	if r.agent != "" {
		refs = append(refs, r.agent)
	}
	return refs
}

// roleOfLocked returns the role ref holds in this room, or "".
func (r *Room) roleOfLocked(ref ConnRef) protocol.Role {
	if r.customer == ref {
		return protocol.RoleCustomer
	}
	if r.agent == ref {
		return protocol.RoleAgent
	}
	return ""
}

// Registry owns all room state. Rooms are created on the first
// successful bind and deleted the moment both roles are vacant.
//
// Lock order: Registry.mu, then Room.mu, then bindMu. The registry
// mutex only guards the room map; occupancy lives behind each room's
// own mutex.
type Registry struct {
	send Sender
	log  zerolog.Logger

	mu    sync.Mutex
	rooms map[string]*Room

	bindMu   sync.Mutex
	bindings map[ConnRef]*Room
}

// NewRegistry creates an empty registry that emits presence, ready and
// call_ended events through send.
func NewRegistry(send Sender, log zerolog.Logger) *Registry {
	return &Registry{
		send:     send,
		log:      log,
		rooms:    make(map[string]*Room),
		bindings: make(map[ConnRef]*Room),
	}
}

// Join binds ref to (roomID, role). The room is created if absent. If
// ref already holds the other role in this room it is moved atomically;
// if the requested role belongs to a different connection the join
// fails with a role conflict and nothing changes. A connection bound in
// some other room is removed from it first, since a ConnRef may hold at
// most one (room, role) pair at a time.
func (reg *Registry) Join(ref ConnRef, roomID string, role protocol.Role) error {
	if roomID == "" || role == "" {
		return validationError("roomId and role are required")
	}
	if !role.Valid() {
		return validationError("Role must be Customer or Agent")
	}

	if prev := reg.boundRoom(ref); prev != nil && prev.id != roomID {
		reg.Leave(ref, LeaveDisconnect)
	}

	reg.mu.Lock()
	room, ok := reg.rooms[roomID]
	if !ok {
		room = &Room{id: roomID}
		reg.rooms[roomID] = room
	}
	room.mu.Lock()
	reg.mu.Unlock()
	defer room.mu.Unlock()

	bothBefore := room.bothBoundLocked()

	if cur := room.occupant(role); cur != "" && cur != ref {
		// No state change on conflict, even if ref holds the other role.
		return roleConflictError(role)
	}

	if other := role.Counterpart(); room.occupant(other) == ref {
		room.setOccupant(other, "")
	}
	room.setOccupant(role, ref)
	reg.bind(ref, room)

	reg.log.Info().
		Str("room", roomID).
		Str("role", role.String()).
		Str("conn", string(ref)).
		Msg("joined room")

	snapshot := Snapshot(room.customer, room.agent)
	presence := protocol.NewEvent(protocol.EventPresence, snapshot)
	reg.broadcastLocked(room, presence)
	// Unicast the same snapshot to the joiner so it still sees current
	// occupancy if the broadcast raced its registration.
	reg.send.Send(ref, presence)

	if !bothBefore && room.bothBoundLocked() {
		reg.broadcastLocked(room, protocol.NewEvent(protocol.EventReady, protocol.Ready{
			Message: "Both users connected. You can start the call.",
		}))
	}
	return nil
}

// Leave vacates whatever role ref holds, announces the departure to the
// remaining occupant, rebroadcasts presence, and deletes the room once
// both roles are empty. It is a no-op for an unbound connection.
func (reg *Registry) Leave(ref ConnRef, cause LeaveCause) {
	room := reg.boundRoom(ref)
	if room == nil {
		return
	}

	room.mu.Lock()
	role := room.roleOfLocked(ref)
	if role == "" {
		room.mu.Unlock()
		reg.unbind(ref)
		return
	}
	room.setOccupant(role, "")
	reg.unbind(ref)

	reason := fmt.Sprintf("%s disconnected", role)
	if cause == LeaveExplicit {
		reason = "Ended by user"
	}
	reg.broadcastLocked(room, protocol.NewEvent(protocol.EventCallEnded, protocol.CallEnded{Reason: reason}))
	reg.broadcastLocked(room, protocol.NewEvent(protocol.EventPresence, Snapshot(room.customer, room.agent)))

	empty := room.emptyLocked()
	room.mu.Unlock()

	reg.log.Info().
		Str("room", room.id).
		Str("role", role.String()).
		Str("conn", string(ref)).
		Msg("left room")

	if empty {
		reg.deleteIfEmpty(room)
	}
}

// RoomCount reports the number of live rooms.
func (reg *Registry) RoomCount() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms)
}

// hasRoom reports whether a room currently exists.
func (reg *Registry) hasRoom(roomID string) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	_, ok := reg.rooms[roomID]
	return ok
}

// withBoundRoom runs fn under the lock of the room ref is bound to,
// passing ref's role there. It reports false when ref is unbound.
// Relay operations use it so reads and sends serialize with mutations.
func (reg *Registry) withBoundRoom(ref ConnRef, fn func(room *Room, role protocol.Role)) bool {
	room := reg.boundRoom(ref)
	if room == nil {
		return false
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	role := room.roleOfLocked(ref)
	if role == "" {
		return false
	}
	fn(room, role)
	return true
}

func (reg *Registry) broadcastLocked(room *Room, ev protocol.Event) {
	for _, ref := range room.occupantsLocked() {
		reg.send.Send(ref, ev)
	}
}

func (reg *Registry) bind(ref ConnRef, room *Room) {
	reg.bindMu.Lock()
	reg.bindings[ref] = room
	reg.bindMu.Unlock()
}

func (reg *Registry) unbind(ref ConnRef) {
	reg.bindMu.Lock()
	delete(reg.bindings, ref)
	reg.bindMu.Unlock()
}

func (reg *Registry) boundRoom(ref ConnRef) *Room {
	reg.bindMu.Lock()
	defer reg.bindMu.Unlock()
	return reg.bindings[ref]
}

// deleteIfEmpty removes room from the map unless someone rebound it
// between the caller's occupancy check and this one.
func (reg *Registry) deleteIfEmpty(room *Room) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.emptyLocked() && reg.rooms[room.id] == room {
		delete(reg.rooms, room.id)
		reg.log.Info().Str("room", room.id).Msg("room deleted")
	}
}
