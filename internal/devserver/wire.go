package devserver

// Server-side wire structs. Response bodies use the wire convention
// (snake_case); the client normalizes them on the way in.

type wireRoomState struct {
	ID      string          `json:"id"`
	Players []string        `json:"players"`
	Host    string          `json:"host"`
	Ready   map[string]bool `json:"ready"`
}

type wireRoomEvent struct {
	Type     string         `json:"type"`
	State    *wireRoomState `json:"state,omitempty"`
	NewState *wireRoomState `json:"new_state,omitempty"`
}

type wirePlayerState struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	RoomID string `json:"room_id,omitempty"`
	GameID string `json:"game_id,omitempty"`
}
