package devserver

import (
	"context"
	"crypto/rand"
	"math/big"

	"go.uber.org/zap"
)

// State owns every room and every player's whereabouts, mirroring the real
// backend's in-memory server state. All access goes through the inbox so a
// single goroutine serializes mutations; handlers talk to it with reply
// channels.

type stateMsg interface{ isStateMsg() }

type createRoomMsg struct {
	HostID string
	Reply  chan string // room id, "" when rejected
}

type joinRoomMsg struct {
	PlayerID string
	RoomID   string
	Reply    chan bool
}

type leaveRoomMsg struct {
	PlayerID string
	Reply    chan bool
}

type setReadyMsg struct {
	PlayerID string
	Ready    bool
	Reply    chan bool
}

type kickPlayerMsg struct {
	By     string
	Target string
	Reply  chan bool
}

type startGameMsg struct {
	By    string
	Reply chan string // game id, "" when rejected
}

type playerStateMsg struct {
	PlayerID string
	Reply    chan wirePlayerState
}

type watchRoomMsg struct {
	RoomID    string
	WatcherID string
	Outbox    chan wireRoomEvent
	Reply     chan bool
}

type unwatchRoomMsg struct {
	RoomID    string
	WatcherID string
}

// roomViewMsg reflects internal state without data races; used by tests.
type roomViewMsg struct {
	RoomID string
	Reply  chan roomView
}

type roomView struct {
	Exists      bool
	NumWatchers int
	State       wireRoomState
}

type shutdownMsg struct{}

func (createRoomMsg) isStateMsg()  {}
func (joinRoomMsg) isStateMsg()    {}
func (leaveRoomMsg) isStateMsg()   {}
func (setReadyMsg) isStateMsg()    {}
func (kickPlayerMsg) isStateMsg()  {}
func (startGameMsg) isStateMsg()   {}
func (playerStateMsg) isStateMsg() {}
func (watchRoomMsg) isStateMsg()   {}
func (unwatchRoomMsg) isStateMsg() {}
func (roomViewMsg) isStateMsg()    {}
func (shutdownMsg) isStateMsg()    {}

const roomSeats = 2

type room struct {
	id       string
	seats    [roomSeats]string // "" marks an empty seat
	host     string
	ready    map[string]bool
	watchers map[string]chan wireRoomEvent
}

func (r *room) snapshot() wireRoomState {
	players := make([]string, 0, roomSeats)
	for _, s := range r.seats {
		if s != "" {
			players = append(players, s)
		}
	}
	ready := make(map[string]bool, len(r.ready))
	for k, v := range r.ready {
		ready[k] = v
	}
	return wireRoomState{ID: r.id, Players: players, Host: r.host, Ready: ready}
}

func (r *room) occupied() int {
	n := 0
	for _, s := range r.seats {
		if s != "" {
			n++
		}
	}
	return n
}

type State struct {
	inbox   chan stateMsg
	rooms   map[string]*room
	players map[string]wirePlayerState
	ctx     context.Context
	cancel  context.CancelFunc
	log     *zap.Logger
}

func NewState(parent context.Context, log *zap.Logger) *State {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	s := &State{
		inbox:   make(chan stateMsg, 64),
		rooms:   make(map[string]*room),
		players: make(map[string]wirePlayerState),
		ctx:     ctx,
		cancel:  cancel,
		log:     log,
	}
	go s.loop()
	return s
}

// Inbox exposes the message channel to handlers and tests.
func (s *State) Inbox() chan<- stateMsg { return s.inbox }

func (s *State) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return
		case m := <-s.inbox:
			switch msg := m.(type) {
			case createRoomMsg:
				msg.Reply <- s.createRoom(msg.HostID)
			case joinRoomMsg:
				msg.Reply <- s.joinRoom(msg.PlayerID, msg.RoomID)
			case leaveRoomMsg:
				msg.Reply <- s.removeFromRoom(msg.PlayerID)
			case setReadyMsg:
				msg.Reply <- s.setReady(msg.PlayerID, msg.Ready)
			case kickPlayerMsg:
				msg.Reply <- s.kickPlayer(msg.By, msg.Target)
			case startGameMsg:
				msg.Reply <- s.startGame(msg.By)
			case playerStateMsg:
				ps, ok := s.players[msg.PlayerID]
				if !ok {
					ps = wirePlayerState{ID: msg.PlayerID, Status: "idle"}
				}
				msg.Reply <- ps
			case watchRoomMsg:
				r := s.rooms[msg.RoomID]
				if r == nil {
					msg.Reply <- false
					break
				}
				r.watchers[msg.WatcherID] = msg.Outbox
				// Every watcher gets the full current state up front.
				snap := r.snapshot()
				msg.Outbox <- wireRoomEvent{Type: "initial", State: &snap}
				msg.Reply <- true
			case unwatchRoomMsg:
				if r := s.rooms[msg.RoomID]; r != nil {
					delete(r.watchers, msg.WatcherID)
				}
			case roomViewMsg:
				r := s.rooms[msg.RoomID]
				if r == nil {
					msg.Reply <- roomView{}
					break
				}
				msg.Reply <- roomView{Exists: true, NumWatchers: len(r.watchers), State: r.snapshot()}
			case shutdownMsg:
				s.shutdown()
				return
			}
		}
	}
}

func (s *State) createRoom(hostID string) string {
	if _, busy := s.players[hostID]; busy {
		return "" // already in a room or game
	}
	id, err := s.newRoomID()
	if err != nil {
		s.log.Error("generate room id", zap.Error(err))
		return ""
	}
	r := &room{
		id:       id,
		host:     hostID,
		ready:    make(map[string]bool),
		watchers: make(map[string]chan wireRoomEvent),
	}
	r.seats[0] = hostID
	s.rooms[id] = r
	s.players[hostID] = wirePlayerState{ID: hostID, Status: "in_room", RoomID: id}
	s.log.Info("room created", zap.String("room", id), zap.String("host", hostID))
	return id
}

func (s *State) joinRoom(playerID, roomID string) bool {
	if _, busy := s.players[playerID]; busy {
		return false
	}
	r := s.rooms[roomID]
	if r == nil {
		return false
	}
	for i := range r.seats {
		if r.seats[i] == "" {
			r.seats[i] = playerID
			r.ready[playerID] = false
			s.players[playerID] = wirePlayerState{ID: playerID, Status: "in_room", RoomID: roomID}
			s.broadcastUpdate(r)
			return true
		}
	}
	return false // room full
}

// removeFromRoom implements both leave and the membership half of kick.
// When the host leaves a non-empty room, the first remaining player
// inherits it; an emptied room is deleted and its watchers are told.
func (s *State) removeFromRoom(playerID string) bool {
	ps, ok := s.players[playerID]
	if !ok || ps.Status != "in_room" {
		return false
	}
	r := s.rooms[ps.RoomID]
	if r == nil {
		delete(s.players, playerID)
		return false
	}
	for i := range r.seats {
		if r.seats[i] == playerID {
			r.seats[i] = ""
		}
	}
	delete(r.ready, playerID)
	delete(s.players, playerID)

	if r.occupied() == 0 {
		s.deleteRoom(r)
		return true
	}
	if r.host == playerID {
		for _, seat := range r.seats {
			if seat != "" {
				r.host = seat
				break
			}
		}
	}
	s.broadcastUpdate(r)
	return true
}

func (s *State) setReady(playerID string, ready bool) bool {
	ps, ok := s.players[playerID]
	if !ok || ps.Status != "in_room" {
		return false
	}
	r := s.rooms[ps.RoomID]
	if r == nil {
		return false
	}
	r.ready[playerID] = ready
	s.broadcastUpdate(r)
	return true
}

func (s *State) kickPlayer(by, target string) bool {
	ps, ok := s.players[by]
	if !ok || ps.Status != "in_room" {
		return false
	}
	r := s.rooms[ps.RoomID]
	if r == nil || r.host != by || by == target {
		return false
	}
	tps, ok := s.players[target]
	if !ok || tps.RoomID != r.id {
		return false
	}
	return s.removeFromRoom(target)
}

func (s *State) startGame(by string) string {
	ps, ok := s.players[by]
	if !ok || ps.Status != "in_room" {
		return ""
	}
	r := s.rooms[ps.RoomID]
	if r == nil || r.host != by {
		return ""
	}
	if r.occupied() != roomSeats {
		return ""
	}
	for _, seat := range r.seats {
		if seat != "" && !r.ready[seat] {
			return ""
		}
	}
	gameID, err := generateCode(8)
	if err != nil {
		s.log.Error("generate game id", zap.Error(err))
		return ""
	}
	for _, seat := range r.seats {
		if seat != "" {
			s.players[seat] = wirePlayerState{ID: seat, Status: "in_game", GameID: gameID}
		}
	}
	s.deleteRoom(r)
	s.log.Info("game started", zap.String("game", gameID), zap.String("room", r.id))
	return gameID
}

func (s *State) deleteRoom(r *room) {
	r.broadcast(wireRoomEvent{Type: "delete"})
	for id, ch := range r.watchers {
		close(ch)
		delete(r.watchers, id)
	}
	delete(s.rooms, r.id)
	s.log.Info("room deleted", zap.String("room", r.id))
}

func (s *State) broadcastUpdate(r *room) {
	snap := r.snapshot()
	r.broadcast(wireRoomEvent{Type: "update", NewState: &snap})
}

func (r *room) broadcast(ev wireRoomEvent) {
	for id, ch := range r.watchers {
		select {
		case ch <- ev:
			// ok
		default:
			// Watcher is slow/full - drop them.
			close(ch)
			delete(r.watchers, id)
		}
	}
}

func (s *State) shutdown() {
	for _, r := range s.rooms {
		for id, ch := range r.watchers {
			close(ch)
			delete(r.watchers, id)
		}
	}
	clear(s.rooms)
	clear(s.players)
	s.cancel()
}

func (s *State) newRoomID() (string, error) {
	for {
		code, err := generateCode(6)
		if err != nil {
			return "", err
		}
		if _, taken := s.rooms[code]; !taken {
			return code, nil
		}
		s.log.Debug("collision on room code, regenerating")
	}
}

func generateCode(length int) (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	code := make([]byte, length)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}
