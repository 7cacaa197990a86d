package wshub

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
)

const writeTimeout = 10 * time.Second

// Conn is the part of *websocket.Conn a Client needs.
type Conn interface {
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	Ping(ctx context.Context) error
	Close(code websocket.StatusCode, reason string) error
}

// Client is one participant connection. Outbound frames go through a bounded
// queue drained by WritePump, so senders never block on the network.
type Client struct {
	ID   string
	Conn Conn

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	closeCode websocket.StatusCode
	closeMsg  string

	alive    atomic.Bool
	lastSeen atomic.Int64

	mu       sync.Mutex
	roomCode string
	playerID string
}

func NewClient(id string, conn Conn, buffer int) *Client {
	c := &Client{
		ID:   id,
		Conn: conn,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
	c.Touch(time.Now())
	return c
}

// Send queues a frame. It returns false when the queue is full or the client
// is closing; the frame is dropped in that case.
func (c *Client) Send(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Outbox exposes the queue for the write pump and for tests.
func (c *Client) Outbox() <-chan []byte {
	return c.send
}

// Touch records inbound traffic. Any frame counts as proof of life.
func (c *Client) Touch(now time.Time) {
	c.lastSeen.Store(now.UnixNano())
	c.alive.Store(true)
}

func (c *Client) LastSeen() time.Time {
	return time.Unix(0, c.lastSeen.Load())
}

// CheckAlive reports whether the client answered since the previous check and
// clears the flag for the next interval.
func (c *Client) CheckAlive() bool {
	return c.alive.Swap(false)
}

// Alive reports whether the client has shown signs of life since the last
// CheckAlive, without clearing the flag.
func (c *Client) Alive() bool {
	return c.alive.Load()
}

// Heartbeat pings the peer without blocking the caller. A pong sets the
// liveness flag again.
func (c *Client) Heartbeat(ctx context.Context, timeout time.Duration) {
	go func() {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := c.Conn.Ping(ctx); err == nil {
			c.alive.Store(true)
		}
	}()
}

func (c *Client) Bind(roomCode, playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomCode = roomCode
	c.playerID = playerID
}

func (c *Client) Unbind() {
	c.Bind("", "")
}

// Binding returns the room and participant id this connection currently
// speaks for. Both are empty before create/join/restore.
func (c *Client) Binding() (roomCode, playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomCode, c.playerID
}

// Close asks the write pump to flush what is queued and then close the
// connection with the given status. Safe to call more than once.
func (c *Client) Close(code websocket.StatusCode, reason string) {
	c.closeOnce.Do(func() {
		c.closeCode = code
		c.closeMsg = reason
		close(c.done)
	})
}

func (c *Client) Done() <-chan struct{} {
	return c.done
}

// WritePump writes queued frames to the connection until the client is
// closed or ctx ends.
func (c *Client) WritePump(ctx context.Context, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			c.Conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case <-c.done:
			c.flush(ctx, logger)
			c.Conn.Close(c.closeCode, c.closeMsg)
			return
		case msg := <-c.send:
			if err := c.write(ctx, msg); err != nil {
				logger.Debug("write failed", "conn", c.ID, "error", err)
				c.Conn.Close(websocket.StatusInternalError, "write failed")
				return
			}
		}
	}
}

func (c *Client) flush(ctx context.Context, logger *slog.Logger) {
	for {
		select {
		case msg := <-c.send:
			if err := c.write(ctx, msg); err != nil {
				logger.Debug("flush failed", "conn", c.ID, "error", err)
				return
			}
		default:
			return
		}
	}
}

func (c *Client) write(ctx context.Context, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.Conn.Write(ctx, websocket.MessageText, msg)
}
