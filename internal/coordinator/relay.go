package coordinator

import (
	"context"
	"errors"

	"mazecoord/internal/events"
	"mazecoord/internal/gamedata"
	"mazecoord/internal/maze"
	"mazecoord/internal/players"
	"mazecoord/internal/protocol"
	"mazecoord/internal/rooms"
	"mazecoord/internal/wshub"
)

// handlePosition records the sender's pose and forwards it to every other
// member allowed to see the sender's role.
func (co *Coordinator) handlePosition(_ context.Context, c *wshub.Client, msg protocol.ClientMessage) {
	co.withRoom(c, func(r *rooms.Room, playerID string) {
		p, ok := r.Players.Get(playerID)
		if !ok || p.Role == gamedata.RoleWaiting {
			return
		}
		r.Players.SetPose(playerID, players.Pose{Kind: msg.Type, Position: *msg.Position, Rotation: msg.Rotation})

		roles := r.Players.Roles()
		out := protocol.Pose(msg.Type, playerID, *msg.Position, msg.Rotation, string(p.Role))
		r.Hub.Broadcast(out, func(id string) bool {
			return id != playerID && gamedata.CanSee(roles[id], p.Role)
		})
	})
}

// handleMazeData accepts a maze from the host and hands the same bytes to
// every member, the host included. The first maze of a READY room starts
// the game.
func (co *Coordinator) handleMazeData(_ context.Context, c *wshub.Client, msg protocol.ClientMessage) {
	co.withRoom(c, func(r *rooms.Room, playerID string) {
		if playerID != r.HostID() {
			co.log.Debug("maze from non-host ignored", "room", r.Code, "player", playerID)
			return
		}
		p, err := maze.Parse(msg.Maze)
		if err != nil {
			co.log.Info("rejected maze", "room", r.Code, "player", playerID, "error", err)
			co.replyError(c, err)
			return
		}

		now := co.now()
		started, err := r.SetMaze(playerID, p, now)
		if err != nil {
			if !errors.Is(err, rooms.ErrNotHost) {
				co.log.Error("storing maze", "room", r.Code, "error", err)
			}
			return
		}
		r.Hub.Broadcast(protocol.MazeData(p.Raw()), nil)

		if started {
			co.log.Info("game started", "room", r.Code, "seed", r.Seed(), "size", p.Width()*p.Height())
			roles := make(map[string]string)
			for id, role := range r.Players.Roles() {
				roles[id] = string(role)
			}
			co.publish(events.Event{Kind: events.GameStarted, RoomCode: r.Code, Seed: r.Seed(), Roles: roles, At: now})
		}
	})
}
