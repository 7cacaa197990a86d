package coordinator

import (
	"context"
	"time"

	"github.com/coder/websocket"

	"mazecoord/internal/gamedata"
	"mazecoord/internal/protocol"
	"mazecoord/internal/rooms"
	"mazecoord/internal/wshub"
)

const inactivityWarningText = "You have been inactive. Move or you may be disconnected."

// Run drives the supervisor until ctx is cancelled. Each tick heartbeats
// every connection and expires idle rooms.
func (co *Coordinator) Run(ctx context.Context) error {
	ticker := time.NewTicker(co.heartbeat)
	defer ticker.Stop()

	co.supLog.Info("supervisor started", "interval", co.heartbeat)
	for {
		select {
		case <-ctx.Done():
			co.supLog.Info("supervisor stopped")
			return nil
		case <-ticker.C:
			co.Sweep(ctx, co.now())
		}
	}
}

// Sweep runs one supervisor pass over every room, then over the connections
// that are not in one.
func (co *Coordinator) Sweep(ctx context.Context, now time.Time) {
	for _, r := range co.rooms.List() {
		r.Mu.Lock()
		co.sweepRoom(ctx, r, now)
		r.Mu.Unlock()
	}
	co.sweepUnbound(ctx)
}

// sweepUnbound heartbeats connections outside any room and closes those that
// missed the previous ping. Room members are left to sweepRoom.
func (co *Coordinator) sweepUnbound(ctx context.Context) {
	for _, c := range co.connections() {
		if code, _ := c.Binding(); code != "" || closing(c) {
			continue
		}
		if !c.CheckAlive() {
			co.supLog.Info("heartbeat missed", "conn", c.ID, "lastSeen", c.LastSeen())
			c.Close(websocket.StatusGoingAway, "heartbeat timeout")
			co.Unregister(c)
			continue
		}
		c.Heartbeat(ctx, co.heartbeat)
	}
}

func closing(c *wshub.Client) bool {
	select {
	case <-c.Done():
		return true
	default:
		return false
	}
}

func (co *Coordinator) sweepRoom(ctx context.Context, r *rooms.Room, now time.Time) {
	if r.Closed() {
		return
	}
	if r.Players.Count() == 0 {
		co.closeRoomLocked(r, "", "empty", false)
		return
	}
	if r.Phase() == gamedata.PhaseEnded && co.endedGrace > 0 && now.Sub(r.Game.EndedAt()) > co.endedGrace {
		co.supLog.Info("restart window expired", "room", r.Code)
		co.closeRoomLocked(r, r.Game.Winner(), "ended", true)
		return
	}
	if co.roomTimeout > 0 && now.Sub(r.LastActivity()) > co.roomTimeout {
		co.supLog.Info("room inactive", "room", r.Code, "idle", now.Sub(r.LastActivity()))
		co.closeRoomLocked(r, "", "inactivity", true)
		return
	}

	var dead []string
	for _, id := range r.Hub.IDs() {
		c := r.Hub.Get(id)
		if !c.CheckAlive() {
			dead = append(dead, id)
			continue
		}
		c.Heartbeat(ctx, co.heartbeat)
	}
	for _, id := range dead {
		c := r.Hub.Get(id)
		co.supLog.Info("heartbeat missed", "room", r.Code, "player", id, "lastSeen", c.LastSeen())
		c.Unbind()
		c.Close(websocket.StatusGoingAway, "heartbeat timeout")
		co.removeLocked(r, id, "heartbeat")
		if r.Closed() {
			return
		}
	}

	if co.inactivityWarning > 0 {
		for _, id := range r.Players.Idle(now, co.inactivityWarning) {
			co.supLog.Debug("inactivity warning", "room", r.Code, "player", id)
			r.Hub.SendTo(id, protocol.Warning(inactivityWarningText))
		}
	}
}
