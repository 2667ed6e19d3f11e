// lobbycli drives the lobby SDK from the command line: log in, create or
// join a room, flip the ready flag, and watch a room's event stream.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/fiverow/lobby-client/internal/api"
	"github.com/fiverow/lobby-client/internal/config"
	"github.com/fiverow/lobby-client/internal/roomsync"
	"github.com/fiverow/lobby-client/internal/session"
	"github.com/fiverow/lobby-client/internal/tokenstore"
	"github.com/fiverow/lobby-client/pkg/types"
)

const usage = `usage: lobbycli <command> [flags]

commands:
  login            anonymous login; stores the access token
  logout           drop the stored token
  state            show session user and server-side player state
  create           create a room (you become host)
  join  -room ID   join a room
  leave            leave the current room
  ready -ready     set your ready flag (default true)
  kick  -player ID kick a player (host only)
  start            start the game (host only)
  watch -room ID   follow a room's event stream until interrupted
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.Load()
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	store, err := tokenstore.NewFile(cfg.TokenPath, tokenstore.WithLogger(logger))
	if err != nil {
		logger.Fatal("open token store", zap.Error(err))
	}
	defer store.Close()

	sess := session.NewManager(store, session.WithLogger(logger))
	defer sess.Close()

	client := api.New(cfg.ServerURL, api.WithTokenStore(store), api.WithLogger(logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1], os.Args[2:], cfg, logger, store, sess, client); err != nil {
		logger.Fatal("command failed", zap.String("command", os.Args[1]), zap.Error(err))
	}
}

func run(ctx context.Context, command string, args []string, cfg *config.Config, logger *zap.Logger,
	store tokenstore.Store, sess *session.Manager, client *api.Client) error {
	switch command {
	case "login":
		// Login does not need a credential, so use the plain client.
		token, err := api.New(cfg.ServerURL).LoginAnonymous(ctx)
		if err != nil {
			return err
		}
		user := sess.Login(token)
		if user == nil {
			return fmt.Errorf("server issued an unusable token")
		}
		fmt.Printf("logged in as %s\n", user.ID)
		return nil

	case "logout":
		sess.Logout()
		fmt.Println("logged out")
		return nil

	case "state":
		user, _ := sess.Snapshot()
		if user == nil {
			fmt.Println("not logged in")
			return nil
		}
		fmt.Printf("user: %s\n", user.ID)
		ps, err := client.PlayerState(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("status: %s", ps.Status)
		if ps.RoomID != "" {
			fmt.Printf(" (room %s)", ps.RoomID)
		}
		if ps.GameID != "" {
			fmt.Printf(" (game %s)", ps.GameID)
		}
		fmt.Println()
		return nil

	case "create":
		roomID, err := client.CreateRoom(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("room created: %s\n", roomID)
		return nil

	case "join":
		fs := flag.NewFlagSet("join", flag.ExitOnError)
		roomID := fs.String("room", "", "room id to join")
		fs.Parse(args)
		if *roomID == "" {
			return fmt.Errorf("-room is required")
		}
		if err := client.JoinRoom(ctx, *roomID); err != nil {
			return err
		}
		fmt.Printf("joined room %s\n", *roomID)
		return nil

	case "leave":
		if err := client.LeaveRoom(ctx); err != nil {
			return err
		}
		fmt.Println("left room")
		return nil

	case "ready":
		fs := flag.NewFlagSet("ready", flag.ExitOnError)
		ready := fs.Bool("ready", true, "ready flag")
		fs.Parse(args)
		if err := client.SetReady(ctx, *ready); err != nil {
			return err
		}
		fmt.Printf("ready=%v\n", *ready)
		return nil

	case "kick":
		fs := flag.NewFlagSet("kick", flag.ExitOnError)
		player := fs.String("player", "", "player id to kick")
		fs.Parse(args)
		if *player == "" {
			return fmt.Errorf("-player is required")
		}
		if err := client.KickPlayer(ctx, *player); err != nil {
			return err
		}
		fmt.Printf("kicked %s\n", *player)
		return nil

	case "start":
		if err := client.StartGame(ctx); err != nil {
			return err
		}
		fmt.Println("game started")
		return nil

	case "watch":
		fs := flag.NewFlagSet("watch", flag.ExitOnError)
		roomID := fs.String("room", "", "room id to watch")
		fs.Parse(args)
		if *roomID == "" {
			return fmt.Errorf("-room is required")
		}
		return watch(ctx, cfg, logger, store, sess, *roomID)

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func watch(ctx context.Context, cfg *config.Config, logger *zap.Logger,
	store tokenstore.Store, sess *session.Manager, roomID string) error {
	token := store.Get()
	if token == "" {
		return fmt.Errorf("not logged in")
	}
	user, _ := sess.Snapshot()

	sync := roomsync.New(cfg.ServerURL, roomID, token, roomsync.WithLogger(logger))
	defer sync.Close()

	sync.OnRoom(func(room types.RoomState) {
		fmt.Printf("room %s  host=%s\n", room.RoomID, room.Host)
		for _, p := range room.Players {
			line := fmt.Sprintf("  %s ready=%v", p, room.IsReady(p))
			if room.IsHost(p) {
				line += " (host)"
			}
			if user != nil && p == user.ID {
				line += " (you)"
			}
			fmt.Println(line)
		}
		if user != nil {
			fmt.Printf("you: host=%v ready=%v\n", sync.IsHost(user.ID), sync.IsReady(user.ID))
		}
	})
	sync.OnDeleted(func() {
		fmt.Println("room deleted")
		sync.Close()
	})

	return sync.Start(ctx)
}
