package signaling

import "github.com/thesujaljaiswal/Voice-Chat-Application/internal/protocol"

// Snapshot derives a presence snapshot from room occupancy. It is a
// pure function of the two role bindings; snapshots are recomputed
// after every registry mutation and never stored.
func Snapshot(customer, agent ConnRef) protocol.Presence {
	return protocol.Presence{
		CustomerOnline: customer != "",
		AgentOnline:    agent != "",
	}
}
