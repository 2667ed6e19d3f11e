// Package roomsync keeps a local replica of one room's state in sync with
// the server's event stream. The protocol is snapshot-replace: every
// recognized message carries the complete room state and replaces the
// replica wholesale. Nothing is ever merged; a partial merge here would
// only mask server bugs.
package roomsync

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/r3labs/sse/v2"
	"go.uber.org/zap"
	backoff "gopkg.in/cenkalti/backoff.v1"

	"github.com/fiverow/lobby-client/internal/wirecase"
	"github.com/fiverow/lobby-client/pkg/types"
)

// ErrClosed is returned by Start on a client that was already torn down.
var ErrClosed = errors.New("roomsync: client closed")

// ConnState is the connection lifecycle: Idle until Start, Connecting while
// the stream is being (re)established, Synced once a snapshot has been
// applied, Closed after explicit teardown. Closed is terminal.
type ConnState int

const (
	StateIdle ConnState = iota
	StateConnecting
	StateSynced
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateSynced:
		return "synced"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. Default is a nop logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithHTTPClient overrides the http.Client used for the stream.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.stream.Connection = h }
}

// Client owns one server-push connection scoped to one room. The room id is
// fixed for the connection's lifetime; to watch a different room, close
// this client and construct a new one.
type Client struct {
	roomID string
	stream *sse.Client
	log    *zap.Logger

	mu        sync.Mutex
	state     ConnState
	room      *types.RoomState
	lastErr   error
	cancel    context.CancelFunc
	onRoom    func(types.RoomState)
	onDeleted func()

	closeOnce sync.Once
}

// New builds a client for the room-scoped event stream. Token and room id
// travel as connection query parameters, matching the server contract.
func New(baseURL, roomID, token string, opts ...Option) *Client {
	q := url.Values{}
	q.Set("token", token)
	q.Set("room_id", roomID)
	streamURL := strings.TrimRight(baseURL, "/") + "/room/events?" + q.Encode()

	c := &Client{
		roomID: roomID,
		stream: sse.NewClient(streamURL),
		log:    zap.NewNop(),
		state:  StateIdle,
	}
	// Transient transport failures reconnect with backoff until the owner
	// tears the client down; the strategy gives up eventually so a dead
	// server surfaces as an error rather than a silent stall.
	c.stream.ReconnectStrategy = backoff.NewExponentialBackOff()
	c.stream.OnDisconnect(func(*sse.Client) {
		c.mu.Lock()
		if c.state == StateSynced {
			c.state = StateConnecting
		}
		c.mu.Unlock()
	})
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RoomID returns the room this client is bound to.
func (c *Client) RoomID() string { return c.roomID }

// OnRoom registers a callback fired with each applied snapshot. Register
// before Start; callbacks run on the stream goroutine, one at a time.
func (c *Client) OnRoom(fn func(types.RoomState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRoom = fn
}

// OnDeleted registers a callback fired when the server deletes the room.
func (c *Client) OnDeleted(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDeleted = fn
}

// Start opens the stream and processes events until ctx is cancelled, the
// client is closed, or the reconnect strategy gives up. A nil return means
// the client was shut down on purpose.
func (c *Client) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		cancel()
		return ErrClosed
	}
	c.cancel = cancel
	c.state = StateConnecting
	c.mu.Unlock()

	err := c.stream.SubscribeRawWithContext(runCtx, c.handle)

	c.mu.Lock()
	closed := c.state == StateClosed
	if !closed {
		c.state = StateIdle
		c.lastErr = err
	}
	c.mu.Unlock()

	if closed || err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	c.log.Warn("room stream ended", zap.String("room", c.roomID), zap.Error(err))
	return err
}

// Close tears the connection down exactly once. Late events that race the
// teardown are dropped; the replica never moves again.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.state = StateClosed
		cancel := c.cancel
		c.mu.Unlock()
		if cancel != nil {
			cancel()
		}
	})
}

// State returns the connection state.
func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the terminal stream error, if any. Never set by Close.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Room returns a copy of the last applied snapshot. ok is false before the
// first snapshot and after the room was deleted.
func (c *Client) Room() (types.RoomState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.room == nil {
		return types.RoomState{}, false
	}
	return c.room.Clone(), true
}

// IsHost reports whether the given player hosts the replicated room.
func (c *Client) IsHost(playerID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room != nil && c.room.IsHost(playerID)
}

// IsReady reports the given player's ready flag; a player with no ready
// entry yet reads as not ready.
func (c *Client) IsReady(playerID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room != nil && c.room.IsReady(playerID)
}

// handle processes one stream event. Events arrive in transport-delivery
// order and each recognized one replaces the replica, so processing order
// only determines which snapshot wins last.
func (c *Client) handle(msg *sse.Event) {
	if len(msg.Data) == 0 {
		return // heartbeat or comment
	}

	norm, err := wirecase.CamelizeJSON(msg.Data)
	if err != nil {
		c.log.Warn("drop undecodable room event", zap.Error(err))
		return
	}
	var ev types.RoomEvent
	if err := json.Unmarshal(norm, &ev); err != nil {
		c.log.Warn("drop undecodable room event", zap.Error(err))
		return
	}

	var (
		fireRoom    *types.RoomState
		fireDeleted bool
	)

	c.mu.Lock()
	if c.state == StateClosed {
		// Stray event raced the teardown.
		c.mu.Unlock()
		return
	}
	switch ev.Type {
	case types.EventInitial, types.EventUpdate:
		snap := ev.Snapshot()
		if snap == nil {
			c.mu.Unlock()
			c.log.Warn("room event without state", zap.String("type", ev.Type))
			return
		}
		st := snap.Clone()
		if st.Ready == nil {
			st.Ready = make(map[string]bool)
		}
		c.room = &st
		c.state = StateSynced
		fireRoom = &st
	case types.EventDelete:
		c.room = nil
		fireDeleted = true
	default:
		c.log.Debug("ignoring unknown room event", zap.String("type", ev.Type))
	}
	onRoom, onDeleted := c.onRoom, c.onDeleted
	c.mu.Unlock()

	if fireRoom != nil && onRoom != nil {
		onRoom(fireRoom.Clone())
	}
	if fireDeleted && onDeleted != nil {
		onDeleted()
	}
}
