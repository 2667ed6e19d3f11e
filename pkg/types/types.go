package types

// User is the identity carried inside a decoded access token. It is always
// recomputed from the token, never persisted on its own.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// RoomState is the authoritative snapshot of a room: who is in it, who runs
// it, and who has readied up. The server pushes complete snapshots; a
// RoomState is replaced wholesale, never patched.
type RoomState struct {
	RoomID  string          `json:"id"`
	Players []string        `json:"players"`
	Host    string          `json:"host"`
	Ready   map[string]bool `json:"ready"`
}

// IsHost reports whether the given player runs this room.
func (s RoomState) IsHost(playerID string) bool {
	return playerID != "" && playerID == s.Host
}

// IsReady reports the player's ready flag. A player listed in Players may
// not have a ready entry yet; that reads as not ready.
func (s RoomState) IsReady(playerID string) bool {
	return s.Ready[playerID]
}

// HasPlayer reports whether the player currently occupies a seat.
func (s RoomState) HasPlayer(playerID string) bool {
	for _, p := range s.Players {
		if p == playerID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can hold a snapshot without racing
// the sync loop that produced it.
func (s RoomState) Clone() RoomState {
	out := s
	out.Players = append([]string(nil), s.Players...)
	out.Ready = make(map[string]bool, len(s.Ready))
	for k, v := range s.Ready {
		out.Ready[k] = v
	}
	return out
}

// Player status values reported by the server.
const (
	PlayerIdle   = "idle"
	PlayerInRoom = "in_room"
	PlayerInGame = "in_game"
)

// PlayerState is the server's view of where a player currently is.
type PlayerState struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	RoomID string `json:"roomId,omitempty"`
	GameID string `json:"gameId,omitempty"`
}
