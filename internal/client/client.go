// Package client speaks the coordinator protocol from the player side. It
// keeps one logical session alive across dropped connections: outbound
// messages wait in a queue until the socket is up, and a reconnect into a
// room the client was part of is announced with restore_session.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"mazecoord/internal/protocol"
)

const (
	baseDelay   = time.Second
	maxDelay    = 30 * time.Second
	maxAttempts = 10
)

var (
	ErrRoomGone = errors.New("room no longer exists")
	ErrGaveUp   = errors.New("reconnect attempts exhausted")

	// errRestoreRefused ends a connection whose restore found the room full,
	// usually because the server has not reaped the previous socket yet.
	errRestoreRefused = errors.New("restore refused: room full")
)

type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "CONNECTING"
	case Connected:
		return "CONNECTED"
	default:
		return "DISCONNECTED"
	}
}

// Event is one item on the client's event stream. Exactly one of Message and
// Err is set, or neither for a plain state change.
type Event struct {
	State   State
	Message *protocol.ServerMessage
	Err     error
}

// Delay is the wait before reconnect attempt n, counting from zero.
func Delay(attempt int) time.Duration {
	if attempt >= 5 {
		return maxDelay
	}
	return min(baseDelay<<attempt, maxDelay)
}

type Options struct {
	URL    string
	Logger *slog.Logger
	// Backoff defaults to Delay.
	Backoff     func(attempt int) time.Duration
	MaxAttempts int
}

type Client struct {
	url         string
	log         *slog.Logger
	backoff     func(int) time.Duration
	maxAttempts int
	sessionID   string

	events chan Event
	wake   chan struct{}

	mu        sync.Mutex
	state     State
	pending   [][]byte
	session   *protocol.SessionState
	restoring bool
}

func New(opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Backoff == nil {
		opts.Backoff = Delay
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = maxAttempts
	}
	return &Client{
		url:         opts.URL,
		log:         opts.Logger.With("component", "client"),
		backoff:     opts.Backoff,
		maxAttempts: opts.MaxAttempts,
		sessionID:   uuid.NewString(),
		events:      make(chan Event, 64),
		wake:        make(chan struct{}, 1),
	}
}

// Events delivers server messages, state changes and the terminal error. It
// is closed when Run returns.
func (c *Client) Events() <-chan Event {
	return c.events
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns the room this client would restore into after a drop.
func (c *Client) Session() (protocol.SessionState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return protocol.SessionState{}, false
	}
	return *c.session, true
}

// Send queues msg for delivery. It never blocks; queued messages go out in
// order once the connection is up.
func (c *Client) Send(msg protocol.ClientMessage) error {
	if msg.SessionID == "" {
		msg.SessionID = c.sessionID
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", msg.Type, err)
	}
	c.mu.Lock()
	c.pending = append(c.pending, data)
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
	return nil
}

// Run connects and keeps reconnecting with exponential backoff until ctx
// ends, the server reports the room gone, or the attempts run out. It
// returns nil when the server closed the session and there is nothing left
// to resume. Run must be called once.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.events)
	defer func() {
		c.mu.Lock()
		c.state = Disconnected
		c.mu.Unlock()
	}()

	attempt := 0
	for {
		c.setState(ctx, Connecting)
		conn, _, err := websocket.Dial(ctx, c.url, nil)
		dialed := err == nil
		if dialed {
			c.setState(ctx, Connected)
			var received bool
			received, err = c.serve(ctx, conn)
			// A refused restore does not reset the attempt count.
			if received && !errors.Is(err, errRestoreRefused) {
				attempt = 0
			}
			if errors.Is(err, ErrRoomGone) {
				c.emit(ctx, Event{State: Disconnected, Err: err})
				return err
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if dialed && !c.resumable() {
			c.log.Info("session ended by server")
			return nil
		}

		if attempt >= c.maxAttempts {
			c.emit(ctx, Event{State: Disconnected, Err: ErrGaveUp})
			return ErrGaveUp
		}
		wait := c.backoff(attempt)
		attempt++
		c.log.Info("connection lost, retrying", "attempt", attempt, "wait", wait, "error", err)
		c.setState(ctx, Disconnected)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// resumable reports whether a reconnect has anything to do: a room to
// restore into or messages still queued.
func (c *Client) resumable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil || len(c.pending) > 0
}

func (c *Client) serve(ctx context.Context, conn *websocket.Conn) (bool, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer conn.CloseNow()

	st, ok := c.Session()
	c.mu.Lock()
	c.restoring = ok
	c.mu.Unlock()
	if ok {
		restore := protocol.ClientMessage{Type: protocol.KindRestoreSession, SessionID: c.sessionID, State: &st}
		if err := wsjson.Write(ctx, conn, restore); err != nil {
			return false, err
		}
		c.log.Info("restoring session", "room", st.RoomCode, "role", st.Role, "host", st.WasHost)
	}

	var received atomic.Bool
	readErr := make(chan error, 1)
	go func() { readErr <- c.readLoop(ctx, conn, &received) }()

	for {
		if err := c.flush(ctx, conn); err != nil {
			return received.Load(), err
		}
		select {
		case <-ctx.Done():
			return received.Load(), ctx.Err()
		case err := <-readErr:
			return received.Load(), err
		case <-c.wake:
		}
	}
}

// flush writes queued messages in order. A message leaves the queue only
// after it was written.
func (c *Client) flush(ctx context.Context, conn *websocket.Conn) error {
	for {
		c.mu.Lock()
		if len(c.pending) == 0 {
			c.mu.Unlock()
			return nil
		}
		next := c.pending[0]
		c.mu.Unlock()

		if err := conn.Write(ctx, websocket.MessageText, next); err != nil {
			return err
		}

		c.mu.Lock()
		c.pending = c.pending[1:]
		c.mu.Unlock()
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, received *atomic.Bool) error {
	for {
		var msg protocol.ServerMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return err
		}
		received.Store(true)
		err := c.observe(msg)
		c.emit(ctx, Event{State: Connected, Message: &msg})
		if err != nil {
			return err
		}
	}
}

// observe tracks what a restore needs to know. It returns ErrRoomGone when
// the session is over and errRestoreRefused when the restore should be
// retried on a fresh connection.
func (c *Client) observe(msg protocol.ServerMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch msg.Type {
	case protocol.KindRoomCreated, protocol.KindRoomJoined, protocol.KindSessionRestored:
		c.restoring = false
		c.session = &protocol.SessionState{
			RoomCode: msg.RoomCode,
			Role:     msg.Role,
			WasHost:  msg.Type == protocol.KindRoomCreated,
		}
	case protocol.KindRoleAssigned:
		if c.session != nil {
			c.session.Role = msg.Role
		}
	case protocol.KindHostAssigned:
		if c.session != nil {
			c.session.WasHost = true
		}
	case protocol.KindGameTerminated:
		// A reason means the room itself was closed.
		if msg.Reason != "" {
			c.session = nil
		}
	case protocol.KindError:
		switch {
		case msg.Code == protocol.CodeRoomGone:
			c.session = nil
			return ErrRoomGone
		case msg.Code == protocol.CodeRoomFull && c.restoring:
			c.restoring = false
			return errRestoreRefused
		}
	}
	return nil
}

func (c *Client) setState(ctx context.Context, s State) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	c.mu.Unlock()
	if changed {
		c.emit(ctx, Event{State: s})
	}
}

func (c *Client) emit(ctx context.Context, ev Event) {
	select {
	case c.events <- ev:
	case <-ctx.Done():
	}
}
