// Package coordinator is the session coordinator: it routes every inbound
// message to its room, applies the role visibility rules on fan-out, keeps
// the shared maze consistent under live edits, and runs the supervisor that
// expires dead connections and abandoned rooms.
//
// Every handler that touches a room holds that room's Mu for its whole run.
// Sends only queue frames, so nothing blocks on the network under the lock.
package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"mazecoord/internal/events"
	"mazecoord/internal/maze"
	"mazecoord/internal/metrics"
	"mazecoord/internal/protocol"
	"mazecoord/internal/rooms"
	"mazecoord/internal/wshub"
)

// Options configures a Coordinator. Zero durations disable the matching
// supervisor check, except HeartbeatInterval which defaults to 30s.
type Options struct {
	Registry rooms.Registry
	Oracle   maze.Oracle
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Bus      *events.Bus

	HeartbeatInterval time.Duration
	InactivityWarning time.Duration
	RoomTimeout       time.Duration
	EndedGrace        time.Duration

	Now   func() time.Time
	NewID func() string
}

type handlerFunc func(ctx context.Context, c *wshub.Client, msg protocol.ClientMessage)

// Coordinator routes messages for every room and supervises them.
type Coordinator struct {
	rooms   rooms.Registry
	oracle  maze.Oracle
	log     *slog.Logger
	supLog  *slog.Logger
	metrics *metrics.Metrics
	bus     *events.Bus

	heartbeat         time.Duration
	inactivityWarning time.Duration
	roomTimeout       time.Duration
	endedGrace        time.Duration

	handlers map[string]handlerFunc
	now      func() time.Time
	newID    func() string

	// conns holds every open connection, in a room or not, so the
	// supervisor can heartbeat the ones no room owns.
	connMu sync.Mutex
	conns  map[*wshub.Client]struct{}
}

// New builds a Coordinator. Registry is required; everything else has a
// default.
func New(opts Options) *Coordinator {
	if opts.Oracle == nil {
		opts.Oracle = maze.BFS{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(prometheus.NewRegistry())
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	co := &Coordinator{
		rooms:             opts.Registry,
		oracle:            opts.Oracle,
		log:               opts.Logger.With("component", "coordinator"),
		supLog:            opts.Logger.With("component", "supervisor"),
		metrics:           opts.Metrics,
		bus:               opts.Bus,
		heartbeat:         opts.HeartbeatInterval,
		inactivityWarning: opts.InactivityWarning,
		roomTimeout:       opts.RoomTimeout,
		endedGrace:        opts.EndedGrace,
		now:               opts.Now,
		newID:             opts.NewID,
		conns:             make(map[*wshub.Client]struct{}),
	}
	co.handlers = map[string]handlerFunc{
		protocol.KindCreateRoom:          co.handleCreateRoom,
		protocol.KindJoinRoom:            co.handleJoinRoom,
		protocol.KindRestoreSession:      co.handleRestoreSession,
		protocol.KindActivityUpdate:      co.handleActivity,
		protocol.KindPing:                co.handlePing,
		protocol.KindPlayerPosition:      co.handlePosition,
		protocol.KindMonsterPosition:     co.handlePosition,
		protocol.KindMazeData:            co.handleMazeData,
		protocol.KindArchitectWallChange: co.handleArchitectEdit,
		protocol.KindArchitectUpdate:     co.handleArchitectEdit,
		protocol.KindGameOver:            co.handleGameOver,
		protocol.KindPlayAgain:           co.handlePlayAgain,
	}
	return co
}

// Register starts tracking a connection as soon as it opens.
func (co *Coordinator) Register(c *wshub.Client) {
	co.connMu.Lock()
	defer co.connMu.Unlock()
	co.conns[c] = struct{}{}
}

// Unregister stops tracking c. Call it after Disconnect.
func (co *Coordinator) Unregister(c *wshub.Client) {
	co.connMu.Lock()
	defer co.connMu.Unlock()
	delete(co.conns, c)
}

func (co *Coordinator) connections() []*wshub.Client {
	co.connMu.Lock()
	defer co.connMu.Unlock()
	out := make([]*wshub.Client, 0, len(co.conns))
	for c := range co.conns {
		out = append(out, c)
	}
	return out
}

// Handle processes one inbound frame from c. It never returns data; all
// effects are frames queued to this or other connections.
func (co *Coordinator) Handle(ctx context.Context, c *wshub.Client, data []byte) {
	c.Touch(co.now())

	msg, err := protocol.Decode(data)
	switch {
	case errors.Is(err, protocol.ErrUnknownType):
		co.metrics.Messages.WithLabelValues("unknown").Inc()
		co.log.Debug("dropping unknown message kind", "conn", c.ID, "kind", msg.Type)
		return
	case err != nil:
		co.metrics.Messages.WithLabelValues("invalid").Inc()
		co.log.Debug("invalid message", "conn", c.ID, "error", err)
		co.replyError(c, err)
		return
	}

	co.metrics.Messages.WithLabelValues(msg.Type).Inc()
	co.handlers[msg.Type](ctx, c, msg)
}

// withRoom runs fn with the client's room locked. It reports false, without
// calling fn, when the client is not bound to a live room.
func (co *Coordinator) withRoom(c *wshub.Client, fn func(r *rooms.Room, playerID string)) bool {
	code, playerID := c.Binding()
	if code == "" {
		return false
	}
	r, err := co.rooms.Get(code)
	if err != nil {
		return false
	}

	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.Closed() || r.Hub.Get(playerID) != c {
		return false
	}
	r.Touch(playerID, co.now())
	fn(r, playerID)
	return true
}

func (co *Coordinator) reply(c *wshub.Client, msg protocol.ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		co.log.Error("marshal failed", "kind", msg.Type, "error", err)
		return
	}
	if !c.Send(data) {
		co.metrics.Dropped.Inc()
		co.log.Warn("dropped reply", "conn", c.ID, "kind", msg.Type)
	}
}

func (co *Coordinator) replyError(c *wshub.Client, err error) {
	co.reply(c, protocol.Error(errorCode(err), errorText(err)))
}

func (co *Coordinator) publish(ev events.Event) {
	if co.bus == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = co.now()
	}
	if !co.bus.Publish(ev) {
		co.metrics.LifecycleDrops.Inc()
		co.log.Warn("lifecycle bus full, event dropped", "kind", ev.Kind, "room", ev.RoomCode)
	}
}

func (co *Coordinator) handlePing(_ context.Context, c *wshub.Client, _ protocol.ClientMessage) {
	co.withRoom(c, func(*rooms.Room, string) {})
	co.reply(c, protocol.Pong())
}

func (co *Coordinator) handleActivity(_ context.Context, c *wshub.Client, _ protocol.ClientMessage) {
	co.withRoom(c, func(*rooms.Room, string) {})
}
