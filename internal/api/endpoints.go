package api

import (
	"context"
	"fmt"

	"github.com/fiverow/lobby-client/pkg/types"
)

// Request bodies go out in the wire convention; response structs carry the
// client convention the normalizer produces.

type loginAnonymousResponse struct {
	AccessToken string `json:"accessToken"`
}

// LoginAnonymous asks the server for a fresh anonymous identity and returns
// the issued access token. Works on the unauthenticated configuration.
func (c *Client) LoginAnonymous(ctx context.Context) (string, error) {
	var resp loginAnonymousResponse
	if err := c.post(ctx, "/auth/login-anonymous", nil, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("/auth/login-anonymous: empty access token")
	}
	return resp.AccessToken, nil
}

type createRoomResponse struct {
	Success bool   `json:"success"`
	RoomID  string `json:"roomId"`
}

// CreateRoom creates a room with the caller as host and returns its id.
func (c *Client) CreateRoom(ctx context.Context) (string, error) {
	var resp createRoomResponse
	if err := c.post(ctx, "/room/create-room", nil, &resp); err != nil {
		return "", err
	}
	if !resp.Success {
		return "", fmt.Errorf("/room/create-room: %w", ErrRejected)
	}
	return resp.RoomID, nil
}

type successResponse struct {
	Success bool `json:"success"`
}

type joinRoomRequest struct {
	RoomID string `json:"room_id"`
}

// JoinRoom takes a seat in the given room.
func (c *Client) JoinRoom(ctx context.Context, roomID string) error {
	var resp successResponse
	if err := c.post(ctx, "/room/join-room", joinRoomRequest{RoomID: roomID}, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("/room/join-room: %w", ErrRejected)
	}
	return nil
}

// LeaveRoom gives up the caller's seat. Leaving as host hands the room to
// the remaining player, or deletes it when the room empties out.
func (c *Client) LeaveRoom(ctx context.Context) error {
	var resp successResponse
	if err := c.post(ctx, "/room/leave-room", nil, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("/room/leave-room: %w", ErrRejected)
	}
	return nil
}

type setReadyRequest struct {
	IsReady bool `json:"is_ready"`
}

// SetReady flips the caller's ready flag.
func (c *Client) SetReady(ctx context.Context, ready bool) error {
	var resp successResponse
	if err := c.post(ctx, "/room/set-ready", setReadyRequest{IsReady: ready}, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("/room/set-ready: %w", ErrRejected)
	}
	return nil
}

type kickPlayerRequest struct {
	KickedPlayerID string `json:"kicked_player_id"`
}

// KickPlayer removes another player from the caller's room. Host only.
func (c *Client) KickPlayer(ctx context.Context, playerID string) error {
	var resp successResponse
	if err := c.post(ctx, "/room/kick-player", kickPlayerRequest{KickedPlayerID: playerID}, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("/room/kick-player: %w", ErrRejected)
	}
	return nil
}

// StartGame starts the game. Host only; requires a full, all-ready room.
func (c *Client) StartGame(ctx context.Context) error {
	var resp successResponse
	if err := c.post(ctx, "/room/start-game", nil, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("/room/start-game: %w", ErrRejected)
	}
	return nil
}

type playerStateResponse struct {
	PlayerState *types.PlayerState `json:"playerState"`
}

// PlayerState reports where the server thinks the caller currently is:
// idle, in a room, or in a game.
func (c *Client) PlayerState(ctx context.Context) (*types.PlayerState, error) {
	var resp playerStateResponse
	if err := c.post(ctx, "/get-player-state", nil, &resp); err != nil {
		return nil, err
	}
	if resp.PlayerState == nil {
		return nil, fmt.Errorf("/get-player-state: empty player state")
	}
	return resp.PlayerState, nil
}
