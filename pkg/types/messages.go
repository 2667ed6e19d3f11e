package types

// Room stream discriminators. Anything else on the stream is ignored so an
// older client survives protocol additions.
const (
	EventInitial = "initial"
	EventUpdate  = "update"
	EventDelete  = "delete"
)

// RoomEvent is one message on the room event stream, after wire
// normalization. Exactly one of State/NewState is set for the snapshot
// discriminators:
//
//	initial: { "type": "initial", "state": RoomState }
//	update:  { "type": "update",  "newState": RoomState }
//	delete:  { "type": "delete" }
type RoomEvent struct {
	Type     string     `json:"type"`
	State    *RoomState `json:"state,omitempty"`
	NewState *RoomState `json:"newState,omitempty"`
}

// Snapshot returns the room state the event carries, or nil for events
// that carry none (delete, unknown).
func (e RoomEvent) Snapshot() *RoomState {
	switch e.Type {
	case EventInitial:
		return e.State
	case EventUpdate:
		return e.NewState
	default:
		return nil
	}
}
