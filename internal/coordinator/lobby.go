package coordinator

import (
	"context"
	"errors"
	"fmt"

	"mazecoord/internal/events"
	"mazecoord/internal/gamedata"
	"mazecoord/internal/protocol"
	"mazecoord/internal/rooms"
	"mazecoord/internal/wshub"
)

func (co *Coordinator) handleCreateRoom(_ context.Context, c *wshub.Client, _ protocol.ClientMessage) {
	if code, _ := c.Binding(); code != "" {
		co.replyError(c, ErrAlreadyInRoom)
		return
	}

	now := co.now()
	r, err := co.rooms.Create(now)
	if err != nil {
		co.log.Error("create room failed", "conn", c.ID, "error", err)
		co.replyError(c, err)
		return
	}
	defer r.Mu.Unlock()
	co.metrics.Rooms.Inc()

	playerID := co.newID()
	res, err := r.Join(playerID, c, now)
	if err != nil {
		co.log.Error("host join failed", "room", r.Code, "error", err)
		co.closeRoomLocked(r, "", "create_failed", false)
		co.replyError(c, err)
		return
	}
	c.Bind(r.Code, playerID)

	co.log.Info("room created", "room", r.Code, "player", playerID)
	co.publish(events.Event{Kind: events.RoomCreated, RoomCode: r.Code, Seed: r.Seed(), At: now})

	r.Hub.SendTo(playerID, protocol.RoomCreated(r.Code, string(res.Role), r.Seed()))
	co.afterAdmission(r, playerID, res)
}

func (co *Coordinator) handleJoinRoom(_ context.Context, c *wshub.Client, msg protocol.ClientMessage) {
	if code, _ := c.Binding(); code != "" {
		co.replyError(c, ErrAlreadyInRoom)
		return
	}

	r, err := co.rooms.Get(msg.RoomCode)
	if err != nil {
		co.log.Debug("join of unknown room", "room", msg.RoomCode, "conn", c.ID)
		co.replyError(c, err)
		return
	}

	r.Mu.Lock()
	defer r.Mu.Unlock()

	playerID := co.newID()
	res, err := r.Join(playerID, c, co.now())
	if err != nil {
		if errors.Is(err, rooms.ErrRoomGone) {
			err = fmt.Errorf("%w: %s", rooms.ErrRoomNotFound, msg.RoomCode)
		}
		co.log.Debug("join rejected", "room", r.Code, "conn", c.ID, "error", err)
		co.replyError(c, err)
		return
	}
	c.Bind(r.Code, playerID)

	co.log.Info("player joined", "room", r.Code, "player", playerID, "role", res.Role)
	r.Hub.SendTo(playerID, protocol.RoomJoined(r.Code, string(res.Role), r.Seed()))
	r.Hub.BroadcastExcept(playerID, protocol.PlayerJoined(playerID, string(res.Role)))
	co.afterAdmission(r, playerID, res)
}

// afterAdmission sends what follows any successful create, join or restore:
// the role deal when the roster just filled, the waiting count while the
// room is still gathering, or the current game to a participant filling a
// vacancy.
func (co *Coordinator) afterAdmission(r *rooms.Room, playerID string, res rooms.JoinResult) {
	switch {
	case res.Assigned != nil:
		co.announceRoles(r, res.Assigned)
		r.Hub.Broadcast(protocol.GameReady(true), nil)
	case r.Phase() == gamedata.PhaseWaiting:
		r.Hub.Broadcast(co.waitingMessage(r), nil)
	default:
		r.Hub.SendTo(playerID, protocol.RoleAssigned(string(res.Role), gamedata.RoleMessage(res.Role)))
		if m := r.Maze(); m != nil {
			r.Hub.SendTo(playerID, protocol.MazeData(m.Raw()))
		}
	}
}

// announceRoles tells every member its own role, one message each.
func (co *Coordinator) announceRoles(r *rooms.Room, assigned map[string]gamedata.Role) {
	for _, id := range r.Hub.IDs() {
		role := assigned[id]
		r.Hub.SendTo(id, protocol.RoleAssigned(string(role), gamedata.RoleMessage(role)))
	}
	co.log.Info("roles assigned", "room", r.Code, "roles", assigned)
}

func (co *Coordinator) waitingMessage(r *rooms.Room) protocol.ServerMessage {
	n := r.Players.Count()
	return protocol.WaitingForPlayers(fmt.Sprintf("Waiting for players (%d/%d)", n, r.Required()), n)
}

func (co *Coordinator) handleGameOver(_ context.Context, c *wshub.Client, msg protocol.ClientMessage) {
	co.withRoom(c, func(r *rooms.Room, playerID string) {
		if r.Phase() != gamedata.PhaseInProgress {
			co.log.Debug("game_over outside a running game", "room", r.Code, "player", playerID, "phase", r.Phase())
			return
		}
		now := co.now()
		if err := r.Game.End(msg.Winner, now); err != nil {
			co.log.Error("ending game", "room", r.Code, "error", err)
			return
		}
		co.log.Info("game over", "room", r.Code, "player", playerID, "winner", msg.Winner)
		r.Hub.Broadcast(protocol.GameTerminated(msg.Winner, ""), nil)
		co.publish(events.Event{Kind: events.GameEnded, RoomCode: r.Code, Winner: msg.Winner, At: now})
	})
}

func (co *Coordinator) handlePlayAgain(_ context.Context, c *wshub.Client, _ protocol.ClientMessage) {
	co.withRoom(c, func(r *rooms.Room, playerID string) {
		if r.Phase() != gamedata.PhaseEnded {
			co.log.Debug("play_again outside an ended game", "room", r.Code, "player", playerID, "phase", r.Phase())
			return
		}
		r.Game.Vote(playerID)

		if !r.VotesComplete() {
			votes := 0
			for _, id := range r.Hub.IDs() {
				if r.Game.HasVoted(id) {
					votes++
				}
			}
			msg := fmt.Sprintf("%d/%d players want to play again", votes, r.Required())
			r.Hub.Broadcast(protocol.WaitingForPlayers(msg, r.Players.Count()), nil)
			return
		}

		assigned, err := r.Restart(co.now())
		if err != nil {
			co.log.Error("restart failed", "room", r.Code, "error", err)
			return
		}
		co.log.Info("room restarted", "room", r.Code, "seed", r.Seed())
		co.announceRoles(r, assigned)
		r.Hub.Broadcast(protocol.PlayAgainRestart(r.Code, r.Seed()), nil)
		r.Hub.Broadcast(protocol.GameReady(true), nil)
	})
}
