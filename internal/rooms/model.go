package rooms

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"mazecoord/internal/gamedata"
	"mazecoord/internal/maze"
	"mazecoord/internal/players"
	"mazecoord/internal/wshub"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomFull     = errors.New("room is full")
	ErrRoomGone     = errors.New("room no longer exists")
	ErrNotHost      = errors.New("only the host may send the maze")
)

// Room is the unit of shared session state. Every method below requires Mu to
// be held by the caller; a handler takes Mu once and keeps it until all of
// its fan-out has been queued.
type Room struct {
	Code      string
	CreatedAt time.Time

	Mu sync.Mutex

	Hub     *wshub.Hub
	Players *players.Store
	Game    *gamedata.Game

	seed         int64
	hostID       string
	roleSet      []gamedata.Role
	maze         *maze.Payload
	lastActivity time.Time
	closed       bool

	intn    func(n int) int
	newSeed func() int64
}

// JoinResult describes what a join or restore did to the room.
type JoinResult struct {
	Role gamedata.Role
	// Assigned is set when this admission filled the roster and triggered
	// role assignment. It holds every member's new role.
	Assigned map[string]gamedata.Role
	// Replaced is set when a restore took over the seat of a participant
	// whose connection had stopped answering heartbeats. ReplacedClient is
	// that connection; it is no longer in the room.
	Replaced       string
	ReplacedClient *wshub.Client
}

// LeaveResult describes what removing a participant did to the room.
type LeaveResult struct {
	Client    *wshub.Client
	Role      gamedata.Role
	WasHost   bool
	NewHost   string
	Remaining int
}

func (r *Room) Seed() int64              { return r.seed }
func (r *Room) HostID() string           { return r.hostID }
func (r *Room) Required() int            { return len(r.roleSet) }
func (r *Room) Maze() *maze.Payload      { return r.maze }
func (r *Room) Closed() bool             { return r.closed }
func (r *Room) LastActivity() time.Time  { return r.lastActivity }
func (r *Room) Phase() gamedata.Phase    { return r.Game.Phase() }
func (r *Room) RoleSet() []gamedata.Role { return slices.Clone(r.roleSet) }

func (r *Room) Full() bool {
	return r.Players.Count() >= len(r.roleSet)
}

// Touch bumps the room activity clock and the participant's own.
func (r *Room) Touch(playerID string, now time.Time) {
	r.lastActivity = now
	if playerID != "" {
		r.Players.Touch(playerID, now)
	}
}

// Join admits a new participant. Before the first assignment everyone waits;
// the admission that fills the roster deals every role. A join into a room
// that is already past WAITING takes whichever role is vacant.
func (r *Room) Join(playerID string, c *wshub.Client, now time.Time) (JoinResult, error) {
	if err := r.admissible(); err != nil {
		return JoinResult{}, err
	}

	role := gamedata.RoleWaiting
	if r.Phase() != gamedata.PhaseWaiting {
		role = r.VacantRole()
	}
	r.admit(playerID, c, role, now)

	res := JoinResult{Role: role}
	if r.Phase() == gamedata.PhaseWaiting && r.Full() {
		assigned, err := r.assign()
		if err != nil {
			return res, err
		}
		if err := r.Game.Transition(gamedata.PhaseReady, now); err != nil {
			return res, err
		}
		res.Role = assigned[playerID]
		res.Assigned = assigned
	}
	return res, nil
}

// Restore re-admits a reconnecting participant under a fresh id. Its declared
// role is honoured when it belongs to this room and nobody else holds it;
// otherwise the vacant role is given. Before assignment it behaves like Join.
//
// A full room still takes the restore when the declared role is held by a
// connection that missed its last heartbeat: that is usually the same player
// on a socket that has not been reaped yet. The stale participant is removed
// and the newcomer inherits its seat, hostship included.
func (r *Room) Restore(playerID string, c *wshub.Client, declared gamedata.Role, wasHost bool, now time.Time) (JoinResult, error) {
	if r.Phase() == gamedata.PhaseWaiting {
		res, err := r.Join(playerID, c, now)
		if err == nil && wasHost {
			r.hostID = playerID
		}
		return res, err
	}

	var res JoinResult
	if !r.closed && r.Full() {
		if stale := r.staleHolder(declared); stale != "" {
			if r.hostID == stale {
				wasHost = true
			}
			r.Players.Remove(stale)
			res.Replaced = stale
			res.ReplacedClient = r.Hub.Unregister(stale)
		}
	}
	if err := r.admissible(); err != nil {
		return JoinResult{}, err
	}

	role := declared
	if !slices.Contains(r.roleSet, role) || r.Players.HolderOf(role) != "" {
		role = r.VacantRole()
	}
	r.admit(playerID, c, role, now)
	if wasHost {
		r.hostID = playerID
	}
	res.Role = role
	return res, nil
}

// staleHolder returns who holds role if its connection has not answered
// since the last heartbeat, or "".
func (r *Room) staleHolder(role gamedata.Role) string {
	if role == gamedata.RoleWaiting {
		return ""
	}
	id := r.Players.HolderOf(role)
	if id == "" {
		return ""
	}
	if c := r.Hub.Get(id); c != nil && !c.Alive() {
		return id
	}
	return ""
}

func (r *Room) admissible() error {
	if r.closed {
		return ErrRoomGone
	}
	if r.Full() {
		return fmt.Errorf("%w: %d/%d", ErrRoomFull, r.Players.Count(), len(r.roleSet))
	}
	return nil
}

func (r *Room) admit(playerID string, c *wshub.Client, role gamedata.Role, now time.Time) {
	r.Players.Add(playerID, role, now)
	r.Hub.Register(playerID, c)
	if r.hostID == "" {
		r.hostID = playerID
	}
	r.lastActivity = now
}

// VacantRole returns the first role of the role set nobody holds, or waiting
// when every role is taken.
func (r *Room) VacantRole() gamedata.Role {
	held := r.Players.Roles()
	taken := make(map[gamedata.Role]bool, len(held))
	for _, role := range held {
		taken[role] = true
	}
	for _, role := range r.roleSet {
		if !taken[role] {
			return role
		}
	}
	return gamedata.RoleWaiting
}

func (r *Room) assign() (map[string]gamedata.Role, error) {
	ids := r.Hub.IDs()
	assigned, err := gamedata.Assign(ids, r.roleSet, r.intn)
	if err != nil {
		return nil, err
	}
	for id, role := range assigned {
		r.Players.SetRole(id, role)
	}
	return assigned, nil
}

// Leave removes a participant. If it was the host, the earliest-joined
// remaining participant becomes host and the maze is dropped so the new host
// regenerates it.
func (r *Room) Leave(playerID string) (LeaveResult, bool) {
	p, ok := r.Players.Get(playerID)
	if !ok {
		return LeaveResult{}, false
	}
	r.Players.Remove(playerID)
	res := LeaveResult{
		Client:    r.Hub.Unregister(playerID),
		Role:      p.Role,
		Remaining: r.Players.Count(),
	}
	if r.hostID == playerID {
		res.WasHost = true
		r.hostID = ""
		r.maze = nil
		if rest := r.Players.List(); len(rest) > 0 {
			r.hostID = rest[0].ID
			res.NewHost = r.hostID
		}
	}
	return res, true
}

// SetMaze stores a maze sent by the host. Poses reported against the previous
// layout are dropped. A maze arriving while READY starts the game.
func (r *Room) SetMaze(senderID string, p *maze.Payload, now time.Time) (started bool, err error) {
	if senderID != r.hostID {
		return false, ErrNotHost
	}
	r.maze = p
	r.Players.ClearPoses()
	if r.Phase() == gamedata.PhaseReady {
		if err := r.Game.Transition(gamedata.PhaseInProgress, now); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// ReplaceMaze swaps in an edited maze. The caller has already validated it.
func (r *Room) ReplaceMaze(p *maze.Payload) {
	r.maze = p
}

// Restart clears roles, poses, maze and votes, draws a new seed, deals roles
// again and moves the room back to READY.
func (r *Room) Restart(now time.Time) (map[string]gamedata.Role, error) {
	if r.Phase() != gamedata.PhaseEnded {
		return nil, fmt.Errorf("%w: restart from %s", gamedata.ErrBadTransition, r.Phase())
	}
	if !r.Full() {
		return nil, fmt.Errorf("%w: restart needs a full roster", gamedata.ErrRoleSetSize)
	}
	r.Players.ResetAll()
	r.maze = nil
	r.seed = r.newSeed()
	assigned, err := r.assign()
	if err != nil {
		return nil, err
	}
	if err := r.Game.Transition(gamedata.PhaseReady, now); err != nil {
		return nil, err
	}
	r.lastActivity = now
	return assigned, nil
}

// VotesComplete reports whether every current member has voted to play again
// and the roster is full.
func (r *Room) VotesComplete() bool {
	if !r.Full() {
		return false
	}
	for _, id := range r.Hub.IDs() {
		if !r.Game.HasVoted(id) {
			return false
		}
	}
	return true
}

// Close marks the room dead and returns the clients that were in it. The
// room keeps no members afterwards.
func (r *Room) Close() []*wshub.Client {
	if r.closed {
		return nil
	}
	r.closed = true
	clients := r.Hub.Clients()
	for _, id := range r.Hub.IDs() {
		r.Hub.Unregister(id)
		r.Players.Remove(id)
	}
	r.maze = nil
	return clients
}
