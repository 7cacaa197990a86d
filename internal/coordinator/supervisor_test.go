package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mazecoord/internal/protocol"
	"mazecoord/internal/rooms"
	"mazecoord/internal/wshub"
)

func closed(c *wshub.Client) bool {
	select {
	case <-c.Done():
		return true
	default:
		return false
	}
}

func TestSweep_DropsConnectionsThatMissHeartbeat(t *testing.T) {
	h := newHarness(t, 3)
	a, _ := h.connect()
	h.send(a, map[string]any{"type": protocol.KindCreateRoom})
	b, bConn := h.connect()
	h.send(b, map[string]any{"type": protocol.KindJoinRoom, "roomCode": "ABC123"})
	drain(t, a)
	drain(t, b)

	bConn.pingErr = errors.New("no pong")
	h.co.Sweep(context.Background(), h.now)
	assert.False(t, closed(a))
	assert.False(t, closed(b))

	// Only a produces traffic before the next tick.
	h.send(a, map[string]any{"type": protocol.KindActivityUpdate})
	h.co.Sweep(context.Background(), h.now)

	assert.True(t, closed(b))
	code, _ := b.Binding()
	assert.Empty(t, code)
	assert.False(t, closed(a))

	got := drain(t, a)
	assert.Equal(t, []string{protocol.KindPlayerLeft, protocol.KindWaitingForPlayers}, kinds(got))
	assert.Equal(t, "p2", got[0].PlayerID)
	assert.Equal(t, 1.0, h.counter("maze_disconnects_total", "heartbeat"))
}

func TestSweep_ClosesUnboundConnectionsThatMissHeartbeat(t *testing.T) {
	h := newHarness(t, 2)
	silent, silentConn := h.connect()
	silentConn.pingErr = errors.New("no pong")
	h.co.Register(silent)

	// An error reply leaves this one open but outside any room.
	lobby, _ := h.connect()
	h.co.Register(lobby)
	h.send(lobby, map[string]any{"type": protocol.KindJoinRoom, "roomCode": "ZZZZZZ"})
	drain(t, lobby)

	h.co.Sweep(context.Background(), h.now)
	assert.False(t, closed(silent))
	require.Eventually(t, lobby.Alive, time.Second, 5*time.Millisecond, "pong should mark the connection alive")

	h.co.Sweep(context.Background(), h.now)
	assert.True(t, closed(silent))
	assert.False(t, closed(lobby))
	assert.NotContains(t, h.co.connections(), silent)
	assert.Contains(t, h.co.connections(), lobby)

	h.co.Unregister(lobby)
	assert.Empty(t, h.co.connections())
}

func TestSweep_WarnsIdleParticipantsOnce(t *testing.T) {
	h := newHarness(t, 2)
	clients := h.room(2)

	h.now = h.now.Add(61 * time.Second)
	h.co.Sweep(context.Background(), h.now)
	for _, c := range clients {
		got := drain(t, c)
		require.Len(t, got, 1)
		assert.Equal(t, protocol.KindWarning, got[0].Type)
		assert.NotEmpty(t, got[0].Message)
		assert.False(t, closed(c))
	}

	h.send(clients[0], map[string]any{"type": protocol.KindActivityUpdate})
	clients[1].Touch(h.now)
	h.now = h.now.Add(30 * time.Second)
	h.co.Sweep(context.Background(), h.now)
	for _, c := range clients {
		assert.Empty(t, drain(t, c))
	}
}

func TestSweep_TerminatesInactiveRoom(t *testing.T) {
	h := newHarness(t, 2)
	clients := h.room(2)
	h.events()

	h.now = h.now.Add(11 * time.Minute)
	h.co.Sweep(context.Background(), h.now)

	for _, c := range clients {
		got := drain(t, c)
		require.Len(t, got, 1)
		assert.Equal(t, protocol.KindGameTerminated, got[0].Type)
		assert.Equal(t, "inactivity", got[0].Reason)
		assert.True(t, closed(c))
		code, _ := c.Binding()
		assert.Empty(t, code)
	}
	_, err := h.store.Get("ABC123")
	assert.ErrorIs(t, err, rooms.ErrRoomNotFound)
	assert.Equal(t, 1.0, h.counter("maze_room_terminations_total", "inactivity"))

	evs := h.events()
	require.Len(t, evs, 1)
	assert.Equal(t, "inactivity", evs[0].Reason)

	// A late reconnect finds nothing.
	late, _ := h.connect()
	h.send(late, restore("ABC123", "explorer", false))
	got := drain(t, late)
	require.Len(t, got, 1)
	assert.Equal(t, protocol.CodeRoomGone, got[0].Code)
}

func TestSweep_EndedRoomExpiresAfterGrace(t *testing.T) {
	h := newHarness(t, 2)
	clients := h.room(2)
	h.start(clients)
	h.send(clients[0], map[string]any{"type": protocol.KindGameOver, "winner": "guide"})
	for _, c := range clients {
		drain(t, c)
	}

	h.now = h.now.Add(time.Minute)
	clients[0].Touch(h.now)
	clients[1].Touch(h.now)
	h.co.Sweep(context.Background(), h.now)
	_, err := h.store.Get("ABC123")
	require.NoError(t, err)

	h.now = h.now.Add(90 * time.Second)
	h.co.Sweep(context.Background(), h.now)
	for _, c := range clients {
		got := drain(t, c)
		require.NotEmpty(t, got)
		last := got[len(got)-1]
		assert.Equal(t, protocol.KindGameTerminated, last.Type)
		assert.Equal(t, "guide", last.Winner)
		assert.Equal(t, "ended", last.Reason)
		assert.True(t, closed(c))
	}
	_, err = h.store.Get("ABC123")
	assert.ErrorIs(t, err, rooms.ErrRoomNotFound)
}

func TestRun_StopsOnCancel(t *testing.T) {
	h := newHarness(t, 2)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.co.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
