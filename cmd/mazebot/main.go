// Command mazebot is a headless participant for manual testing. It creates a
// room (or joins one with -room), logs every message it receives, and keeps
// the session alive across coordinator restarts.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"mazecoord/internal/client"
	"mazecoord/internal/protocol"
)

func main() {
	_ = godotenv.Load()

	url := flag.String("url", envOr("MAZEBOT_URL", "ws://localhost:8000/ws"), "coordinator WebSocket URL")
	room := flag.String("room", "", "room code to join; empty creates a new room")
	mazeFile := flag.String("maze", "", "maze payload to send when this bot is host and the room is ready")
	activity := flag.Duration("activity", 20*time.Second, "interval between activity updates")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	var maze []byte
	if *mazeFile != "" {
		data, err := os.ReadFile(*mazeFile)
		if err != nil {
			logger.Error("reading maze", "file", *mazeFile, "error", err)
			os.Exit(1)
		}
		maze = data
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(client.Options{URL: *url, Logger: logger})
	if *room == "" {
		c.CreateRoom()
	} else {
		c.JoinRoom(*room)
	}

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	ticker := time.NewTicker(*activity)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-c.Events():
			if !ok {
				err := <-done
				if err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("session ended", "error", err)
					os.Exit(1)
				}
				logger.Info("session ended")
				return
			}
			handle(logger, c, ev, maze)
		case <-ticker.C:
			if c.State() == client.Connected {
				c.Activity()
			}
		}
	}
}

func handle(logger *slog.Logger, c *client.Client, ev client.Event, maze []byte) {
	switch {
	case ev.Err != nil:
		logger.Warn("client error", "state", ev.State, "error", ev.Err)
	case ev.Message == nil:
		logger.Info("state changed", "state", ev.State)
	default:
		msg := ev.Message
		logger.Info("received", "type", msg.Type, "room", msg.RoomCode, "role", msg.Role, "player", msg.PlayerID, "message", msg.Message, "error", msg.Error)
		if msg.Type == protocol.KindGameReady && maze != nil {
			if st, ok := c.Session(); ok && st.WasHost {
				logger.Info("sending maze", "bytes", len(maze))
				c.SendMaze(maze)
			}
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
