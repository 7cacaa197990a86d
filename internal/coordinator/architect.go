package coordinator

import (
	"context"
	"errors"
	"fmt"

	"mazecoord/internal/gamedata"
	"mazecoord/internal/maze"
	"mazecoord/internal/protocol"
	"mazecoord/internal/rooms"
	"mazecoord/internal/wshub"
)

// applyWallEdit validates one architect edit against the room's maze and
// commits it. The stored grid is untouched unless every check passes.
func (co *Coordinator) applyWallEdit(r *rooms.Room, x, z float64, action string) (maze.Cell, error) {
	current := r.Maze()
	if current == nil {
		return maze.Cell{}, ErrNoMaze
	}
	cell, ok := current.CellAt(x, z)
	if !ok {
		return maze.Cell{}, fmt.Errorf("%w: (%g, %g)", ErrOutOfBounds, x, z)
	}

	v := maze.Open
	if action == protocol.ActionAdd {
		v = maze.Wall
	}
	next, err := current.WithCell(cell, v)
	if err != nil {
		return maze.Cell{}, err
	}
	if !co.oracle.IsReachable(next.Grid, next.StartCell(), next.EndCell()) {
		return cell, ErrUnreachable
	}
	r.ReplaceMaze(next)
	return cell, nil
}

// handleArchitectEdit applies a wall edit from the architect. Rejections go
// back to the architect alone; accepted edits reach every member.
func (co *Coordinator) handleArchitectEdit(_ context.Context, c *wshub.Client, msg protocol.ClientMessage) {
	co.withRoom(c, func(r *rooms.Room, playerID string) {
		p, ok := r.Players.Get(playerID)
		if !ok || p.Role != gamedata.RoleArchitect {
			co.log.Debug("wall edit from non-architect ignored", "room", r.Code, "player", playerID)
			return
		}

		cell, err := co.applyWallEdit(r, *msg.X, *msg.Z, msg.Action)
		if err != nil {
			result := "rejected"
			switch {
			case errors.Is(err, ErrOutOfBounds):
				result = "out_of_bounds"
			case errors.Is(err, ErrNoMaze):
				result = "no_maze"
			}
			co.metrics.ArchitectEdits.WithLabelValues(result).Inc()
			co.log.Info("wall edit rejected", "room", r.Code, "player", playerID, "action", msg.Action, "error", err)
			r.Hub.SendTo(playerID, protocol.ArchitectError(err.Error()))
			return
		}

		co.metrics.ArchitectEdits.WithLabelValues("applied").Inc()
		co.log.Debug("wall edit applied", "room", r.Code, "action", msg.Action, "gridX", cell.X, "gridZ", cell.Z)
		r.Hub.Broadcast(protocol.ArchitectUpdate(*msg.X, *msg.Z, cell.X, cell.Z, msg.Action), nil)
	})
}
