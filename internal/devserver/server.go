// Package devserver is a self-contained stand-in for the real lobby
// backend: anonymous login, room commands, and the room event stream. It
// exists so the SDK can be exercised end to end without the production
// service, and it doubles as the integration-test fixture.
package devserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const playerIDKey contextKey = "playerId"

// Server wires the HTTP surface to the state actor.
type Server struct {
	state *State
	auth  *Authenticator
	log   *zap.Logger
}

func NewServer(state *State, auth *Authenticator, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{state: state, auth: auth, log: log}
}

// Routes builds the router. Commands require a bearer token; the event
// stream authenticates via query parameters because EventSource-style
// consumers cannot set headers.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Post("/auth/login-anonymous", s.handleLoginAnonymous)
	r.Get("/room/events", s.handleRoomEvents)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Post("/room/create-room", s.handleCreateRoom)
		r.Post("/room/join-room", s.handleJoinRoom)
		r.Post("/room/leave-room", s.handleLeaveRoom)
		r.Post("/room/set-ready", s.handleSetReady)
		r.Post("/room/kick-player", s.handleKickPlayer)
		r.Post("/room/start-game", s.handleStartGame)
		r.Post("/get-player-state", s.handlePlayerState)
	})

	return r
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
			return
		}
		playerID, err := s.auth.Verify(token)
		if err != nil {
			http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
			return
		}
		ctx := contextWithPlayerID(r.Context(), playerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleLoginAnonymous(w http.ResponseWriter, _ *http.Request) {
	playerID := uuid.NewString()
	token, err := s.auth.Mint(playerID)
	if err != nil {
		http.Error(w, `{"error":"failed to mint token"}`, http.StatusInternalServerError)
		return
	}
	s.log.Info("anonymous login", zap.String("player", playerID))
	writeJSON(w, map[string]string{"access_token": token})
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	playerID := playerIDFromContext(r.Context())
	reply := make(chan string, 1)
	s.state.Inbox() <- createRoomMsg{HostID: playerID, Reply: reply}
	roomID := <-reply
	writeJSON(w, map[string]any{"success": roomID != "", "room_id": roomID})
}

func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoomID string `json:"room_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RoomID == "" {
		http.Error(w, `{"error":"room_id is required"}`, http.StatusBadRequest)
		return
	}
	reply := make(chan bool, 1)
	s.state.Inbox() <- joinRoomMsg{PlayerID: playerIDFromContext(r.Context()), RoomID: req.RoomID, Reply: reply}
	writeJSON(w, map[string]bool{"success": <-reply})
}

func (s *Server) handleLeaveRoom(w http.ResponseWriter, r *http.Request) {
	reply := make(chan bool, 1)
	s.state.Inbox() <- leaveRoomMsg{PlayerID: playerIDFromContext(r.Context()), Reply: reply}
	writeJSON(w, map[string]bool{"success": <-reply})
}

func (s *Server) handleSetReady(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IsReady bool `json:"is_ready"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"is_ready is required"}`, http.StatusBadRequest)
		return
	}
	reply := make(chan bool, 1)
	s.state.Inbox() <- setReadyMsg{PlayerID: playerIDFromContext(r.Context()), Ready: req.IsReady, Reply: reply}
	writeJSON(w, map[string]bool{"success": <-reply})
}

func (s *Server) handleKickPlayer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		KickedPlayerID string `json:"kicked_player_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.KickedPlayerID == "" {
		http.Error(w, `{"error":"kicked_player_id is required"}`, http.StatusBadRequest)
		return
	}
	reply := make(chan bool, 1)
	s.state.Inbox() <- kickPlayerMsg{By: playerIDFromContext(r.Context()), Target: req.KickedPlayerID, Reply: reply}
	writeJSON(w, map[string]bool{"success": <-reply})
}

func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	reply := make(chan string, 1)
	s.state.Inbox() <- startGameMsg{By: playerIDFromContext(r.Context()), Reply: reply}
	gameID := <-reply
	writeJSON(w, map[string]any{"success": gameID != ""})
}

func (s *Server) handlePlayerState(w http.ResponseWriter, r *http.Request) {
	reply := make(chan wirePlayerState, 1)
	s.state.Inbox() <- playerStateMsg{PlayerID: playerIDFromContext(r.Context()), Reply: reply}
	writeJSON(w, map[string]any{"player_state": <-reply})
}

// handleRoomEvents streams full room snapshots: one initial message on
// subscribe, then an update (or delete) per change, each as one SSE data
// frame carrying JSON in the wire convention.
func (s *Server) handleRoomEvents(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	roomID := r.URL.Query().Get("room_id")
	if token == "" || roomID == "" {
		http.Error(w, `{"error":"token and room_id are required"}`, http.StatusBadRequest)
		return
	}
	playerID, err := s.auth.Verify(token)
	if err != nil {
		http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, `{"error":"streaming not supported"}`, http.StatusInternalServerError)
		return
	}

	// A player may hold several stream connections (two tabs on one room),
	// so the watcher key gets a random suffix.
	watcherID := playerID + ":" + uuid.NewString()[:8]
	out := make(chan wireRoomEvent, 8)
	reply := make(chan bool, 1)
	s.state.Inbox() <- watchRoomMsg{RoomID: roomID, WatcherID: watcherID, Outbox: out, Reply: reply}
	if !<-reply {
		http.Error(w, `{"error":"room not found"}`, http.StatusNotFound)
		return
	}
	defer func() {
		s.state.Inbox() <- unwatchRoomMsg{RoomID: roomID, WatcherID: watcherID}
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	flusher.Flush()

	s.log.Info("stream opened", zap.String("room", roomID), zap.String("player", playerID))
	for {
		select {
		case <-r.Context().Done():
			s.log.Info("stream closed", zap.String("room", roomID), zap.String("player", playerID))
			return
		case ev, ok := <-out:
			if !ok {
				// Room gone (the delete event was the last send) or we
				// were dropped as a slow watcher.
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				s.log.Error("encode room event", zap.Error(err))
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func contextWithPlayerID(ctx context.Context, playerID string) context.Context {
	return context.WithValue(ctx, playerIDKey, playerID)
}

func playerIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(playerIDKey).(string)
	return id
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
