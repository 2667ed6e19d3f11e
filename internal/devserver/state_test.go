package devserver

import (
	"context"
	"testing"
	"time"
)

func newTestState(t *testing.T) *State {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewState(ctx, nil)
}

func createRoom(t *testing.T, s *State, host string) string {
	t.Helper()
	reply := make(chan string, 1)
	s.Inbox() <- createRoomMsg{HostID: host, Reply: reply}
	return <-reply
}

func joinRoom(t *testing.T, s *State, player, roomID string) bool {
	t.Helper()
	reply := make(chan bool, 1)
	s.Inbox() <- joinRoomMsg{PlayerID: player, RoomID: roomID, Reply: reply}
	return <-reply
}

func leaveRoom(t *testing.T, s *State, player string) bool {
	t.Helper()
	reply := make(chan bool, 1)
	s.Inbox() <- leaveRoomMsg{PlayerID: player, Reply: reply}
	return <-reply
}

func setReady(t *testing.T, s *State, player string, ready bool) bool {
	t.Helper()
	reply := make(chan bool, 1)
	s.Inbox() <- setReadyMsg{PlayerID: player, Ready: ready, Reply: reply}
	return <-reply
}

func startGame(t *testing.T, s *State, by string) string {
	t.Helper()
	reply := make(chan string, 1)
	s.Inbox() <- startGameMsg{By: by, Reply: reply}
	return <-reply
}

func playerState(t *testing.T, s *State, player string) wirePlayerState {
	t.Helper()
	reply := make(chan wirePlayerState, 1)
	s.Inbox() <- playerStateMsg{PlayerID: player, Reply: reply}
	return <-reply
}

func watchRoom(t *testing.T, s *State, roomID, watcherID string, buf int) chan wireRoomEvent {
	t.Helper()
	outbox := make(chan wireRoomEvent, buf)
	reply := make(chan bool, 1)
	s.Inbox() <- watchRoomMsg{RoomID: roomID, WatcherID: watcherID, Outbox: outbox, Reply: reply}
	if !<-reply {
		t.Fatalf("watch rejected for room %s", roomID)
	}
	return outbox
}

func roomSnapshot(t *testing.T, s *State, roomID string) roomView {
	t.Helper()
	reply := make(chan roomView, 1)
	s.Inbox() <- roomViewMsg{RoomID: roomID, Reply: reply}
	return <-reply
}

func recvEvent(t *testing.T, ch <-chan wireRoomEvent, within time.Duration) wireRoomEvent {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatalf("outbox closed while waiting for event")
		}
		return ev
	case <-time.After(within):
		t.Fatalf("timed out waiting for room event")
		return wireRoomEvent{} // unreachable
	}
}

func TestState_CreateRoomSeatsHost(t *testing.T) {
	s := newTestState(t)

	id := createRoom(t, s, "p1")
	if id == "" {
		t.Fatalf("create rejected")
	}
	view := roomSnapshot(t, s, id)
	if !view.Exists {
		t.Fatalf("room %s does not exist", id)
	}
	if view.State.Host != "p1" || len(view.State.Players) != 1 || view.State.Players[0] != "p1" {
		t.Fatalf("unexpected room state: %+v", view.State)
	}
	ps := playerState(t, s, "p1")
	if ps.Status != "in_room" || ps.RoomID != id {
		t.Fatalf("host not marked in_room: %+v", ps)
	}
}

func TestState_CreateWhileBusyRejected(t *testing.T) {
	s := newTestState(t)

	if createRoom(t, s, "p1") == "" {
		t.Fatalf("first create rejected")
	}
	if createRoom(t, s, "p1") != "" {
		t.Fatalf("player already in a room must not create another")
	}
}

func TestState_JoinBroadcastsUpdate(t *testing.T) {
	s := newTestState(t)

	id := createRoom(t, s, "p1")
	outbox := watchRoom(t, s, id, "w1", 8)

	// Watcher sees the full state first.
	ev := recvEvent(t, outbox, time.Second)
	if ev.Type != "initial" || ev.State == nil || ev.State.Host != "p1" {
		t.Fatalf("unexpected initial event: %+v", ev)
	}

	if !joinRoom(t, s, "p2", id) {
		t.Fatalf("join rejected")
	}
	ev = recvEvent(t, outbox, time.Second)
	if ev.Type != "update" || ev.NewState == nil {
		t.Fatalf("unexpected event after join: %+v", ev)
	}
	if len(ev.NewState.Players) != 2 {
		t.Fatalf("join not reflected: %+v", ev.NewState)
	}
	if ready, ok := ev.NewState.Ready["p2"]; !ok || ready {
		t.Fatalf("joiner must start not ready: %+v", ev.NewState.Ready)
	}
}

func TestState_JoinFullOrMissingRoomRejected(t *testing.T) {
	s := newTestState(t)

	id := createRoom(t, s, "p1")
	if !joinRoom(t, s, "p2", id) {
		t.Fatalf("join rejected")
	}
	if joinRoom(t, s, "p3", id) {
		t.Fatalf("third player joined a two-seat room")
	}
	if joinRoom(t, s, "p3", "NOPE42") {
		t.Fatalf("joined a room that does not exist")
	}
}

func TestState_HostLeaveReelects(t *testing.T) {
	s := newTestState(t)

	id := createRoom(t, s, "p1")
	joinRoom(t, s, "p2", id)
	outbox := watchRoom(t, s, id, "w1", 8)
	recvEvent(t, outbox, time.Second) // initial

	if !leaveRoom(t, s, "p1") {
		t.Fatalf("leave rejected")
	}
	ev := recvEvent(t, outbox, time.Second)
	if ev.Type != "update" || ev.NewState == nil || ev.NewState.Host != "p2" {
		t.Fatalf("remaining player did not inherit the room: %+v", ev)
	}
	if ps := playerState(t, s, "p1"); ps.Status != "idle" {
		t.Fatalf("leaver must be idle again: %+v", ps)
	}
}

func TestState_LastLeaveDeletesRoom(t *testing.T) {
	s := newTestState(t)

	id := createRoom(t, s, "p1")
	outbox := watchRoom(t, s, id, "w1", 8)
	recvEvent(t, outbox, time.Second) // initial

	if !leaveRoom(t, s, "p1") {
		t.Fatalf("leave rejected")
	}
	ev := recvEvent(t, outbox, time.Second)
	if ev.Type != "delete" {
		t.Fatalf("want delete event, got %+v", ev)
	}
	// Watcher channels close after the delete goes out.
	if _, ok := <-outbox; ok {
		t.Fatalf("outbox still open after room deletion")
	}
	if roomSnapshot(t, s, id).Exists {
		t.Fatalf("room still exists after last player left")
	}
}

func TestState_KickIsHostOnly(t *testing.T) {
	s := newTestState(t)

	id := createRoom(t, s, "p1")
	joinRoom(t, s, "p2", id)

	kick := func(by, target string) bool {
		reply := make(chan bool, 1)
		s.Inbox() <- kickPlayerMsg{By: by, Target: target, Reply: reply}
		return <-reply
	}

	if kick("p2", "p1") {
		t.Fatalf("non-host kicked the host")
	}
	if kick("p1", "p1") {
		t.Fatalf("host kicked themselves")
	}
	if !kick("p1", "p2") {
		t.Fatalf("host kick rejected")
	}
	if ps := playerState(t, s, "p2"); ps.Status != "idle" {
		t.Fatalf("kicked player must be idle: %+v", ps)
	}
}

func TestState_StartGameRequiresFullAndReady(t *testing.T) {
	s := newTestState(t)

	id := createRoom(t, s, "p1")
	if startGame(t, s, "p1") != "" {
		t.Fatalf("started with an empty seat")
	}

	joinRoom(t, s, "p2", id)
	if startGame(t, s, "p1") != "" {
		t.Fatalf("started before everyone was ready")
	}

	setReady(t, s, "p1", true)
	setReady(t, s, "p2", true)
	if startGame(t, s, "p2") != "" {
		t.Fatalf("non-host started the game")
	}

	outbox := watchRoom(t, s, id, "w1", 8)
	recvEvent(t, outbox, time.Second) // initial

	gameID := startGame(t, s, "p1")
	if gameID == "" {
		t.Fatalf("start rejected with a full, ready room")
	}
	ev := recvEvent(t, outbox, time.Second)
	if ev.Type != "delete" {
		t.Fatalf("room must be torn down on game start, got %+v", ev)
	}
	for _, p := range []string{"p1", "p2"} {
		ps := playerState(t, s, p)
		if ps.Status != "in_game" || ps.GameID != gameID {
			t.Fatalf("player %s not moved into the game: %+v", p, ps)
		}
	}
	if roomSnapshot(t, s, id).Exists {
		t.Fatalf("room survived game start")
	}
}

func TestState_SlowWatcherDropped(t *testing.T) {
	s := newTestState(t)

	id := createRoom(t, s, "p1")
	// Buffer of one: the initial snapshot fills it, the next broadcast
	// finds it full and drops the watcher.
	outbox := watchRoom(t, s, id, "w1", 1)

	setReady(t, s, "p1", true)

	view := roomSnapshot(t, s, id)
	if view.NumWatchers != 0 {
		t.Fatalf("slow watcher not dropped, %d still registered", view.NumWatchers)
	}
	// The channel was closed; drain the buffered initial first.
	recvEvent(t, outbox, time.Second)
	if _, ok := <-outbox; ok {
		t.Fatalf("dropped watcher's outbox left open")
	}
}
