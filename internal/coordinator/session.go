package coordinator

import (
	"context"
	"fmt"

	"github.com/coder/websocket"

	"mazecoord/internal/events"
	"mazecoord/internal/gamedata"
	"mazecoord/internal/protocol"
	"mazecoord/internal/rooms"
	"mazecoord/internal/wshub"
)

// handleRestoreSession re-admits a reconnecting client under a new
// participant id. A missing room is terminal for the session: the reply is
// RoomGone and the client is expected to start over.
func (co *Coordinator) handleRestoreSession(_ context.Context, c *wshub.Client, msg protocol.ClientMessage) {
	if code, _ := c.Binding(); code != "" {
		co.replyError(c, ErrAlreadyInRoom)
		return
	}
	st := *msg.State

	r, err := co.rooms.Get(st.RoomCode)
	if err != nil {
		co.log.Info("restore into missing room", "room", st.RoomCode, "session", msg.SessionID)
		co.replyError(c, fmt.Errorf("%w: %s", rooms.ErrRoomGone, st.RoomCode))
		return
	}

	r.Mu.Lock()
	defer r.Mu.Unlock()

	declared, err := gamedata.ParseRole(st.Role)
	if err != nil {
		declared = gamedata.RoleWaiting
	}
	playerID := co.newID()
	res, err := r.Restore(playerID, c, declared, st.Host(), co.now())
	if err != nil {
		co.log.Info("restore rejected", "room", r.Code, "session", msg.SessionID, "error", err)
		co.replyError(c, err)
		return
	}
	c.Bind(r.Code, playerID)

	if res.Replaced != "" {
		co.log.Info("stale connection replaced", "room", r.Code, "player", res.Replaced, "by", playerID)
		co.metrics.Disconnects.WithLabelValues("replaced").Inc()
		if old := res.ReplacedClient; old != nil {
			old.Unbind()
			old.Close(websocket.StatusGoingAway, "session restored on another connection")
		}
		r.Hub.BroadcastExcept(playerID, protocol.PlayerLeft(res.Replaced))
	}

	co.log.Info("session restored", "room", r.Code, "player", playerID, "role", res.Role, "host", st.Host())
	r.Hub.SendTo(playerID, protocol.SessionRestored(r.Code, string(res.Role), r.Seed()))
	if r.HostID() == playerID {
		r.Hub.SendTo(playerID, protocol.HostAssigned())
	}
	r.Hub.BroadcastExcept(playerID, protocol.PlayerRejoined(playerID, string(res.Role)))

	switch {
	case res.Assigned != nil:
		co.announceRoles(r, res.Assigned)
		r.Hub.Broadcast(protocol.GameReady(true), nil)
	case r.Phase() == gamedata.PhaseWaiting:
		r.Hub.Broadcast(co.waitingMessage(r), nil)
	}
	co.sendSnapshot(r, playerID, res.Role)
}

// sendSnapshot brings a restored participant up to date: the current maze
// and the last pose of everyone it is allowed to see.
func (co *Coordinator) sendSnapshot(r *rooms.Room, playerID string, role gamedata.Role) {
	if m := r.Maze(); m != nil {
		r.Hub.SendTo(playerID, protocol.MazeData(m.Raw()))
	}
	for _, p := range r.Players.List() {
		if p.ID == playerID || p.Pose == nil || !gamedata.CanSee(role, p.Role) {
			continue
		}
		r.Hub.SendTo(playerID, protocol.Pose(p.Pose.Kind, p.ID, p.Pose.Position, p.Pose.Rotation, string(p.Role)))
	}
}

// Disconnect runs when a connection goes away for any reason. It is a no-op
// for connections that never joined a room or were already removed.
func (co *Coordinator) Disconnect(c *wshub.Client, reason string) {
	code, playerID := c.Binding()
	c.Unbind()
	if code == "" {
		return
	}
	r, err := co.rooms.Get(code)
	if err != nil {
		return
	}

	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.Closed() || r.Hub.Get(playerID) != c {
		return
	}
	co.removeLocked(r, playerID, reason)
}

// removeLocked takes a participant out of a room and tells the others. The
// room is closed when it empties.
func (co *Coordinator) removeLocked(r *rooms.Room, playerID, reason string) {
	res, ok := r.Leave(playerID)
	if !ok {
		return
	}
	co.metrics.Disconnects.WithLabelValues(reason).Inc()
	co.log.Info("player left", "room", r.Code, "player", playerID, "role", res.Role, "reason", reason, "remaining", res.Remaining)

	if res.Remaining == 0 {
		co.closeRoomLocked(r, "", "empty", false)
		return
	}

	r.Hub.Broadcast(protocol.PlayerLeft(playerID), nil)
	if res.NewHost != "" {
		co.log.Info("host reassigned", "room", r.Code, "player", res.NewHost)
		r.Hub.SendTo(res.NewHost, protocol.HostAssigned())
	}
	r.Hub.Broadcast(co.waitingMessage(r), nil)
}

// closeRoomLocked ends a room. With notify set, members first get
// game_terminated; every connection is then unbound and closed once its
// queue has flushed.
func (co *Coordinator) closeRoomLocked(r *rooms.Room, winner, reason string, notify bool) {
	if r.Closed() {
		return
	}
	if notify {
		r.Hub.Broadcast(protocol.GameTerminated(winner, reason), nil)
	}
	for _, c := range r.Close() {
		c.Unbind()
		c.Close(websocket.StatusNormalClosure, "room closed")
	}
	co.rooms.Delete(r.Code)

	co.metrics.Rooms.Dec()
	co.metrics.Terminations.WithLabelValues(reason).Inc()
	co.log.Info("room closed", "room", r.Code, "reason", reason)
	co.publish(events.Event{Kind: events.RoomClosed, RoomCode: r.Code, Reason: reason, Winner: winner})
}
