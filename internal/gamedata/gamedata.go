package gamedata

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleWaiting    = Role("waiting")
	RoleExplorer   = Role("explorer")
	RoleGuide      = Role("guide")
	RoleAntagonist = Role("antagonist")
	RoleArchitect  = Role("architect")
)

// roleOrder is the order in which roles are added as the roster grows.
var roleOrder = []Role{RoleExplorer, RoleGuide, RoleAntagonist, RoleArchitect}

var (
	ErrUnknownRole    = errors.New("unknown role")
	ErrDuplicateRole  = errors.New("duplicate role")
	ErrBadTransition  = errors.New("phase transition not allowed")
	ErrRoleSetSize    = errors.New("role set size does not match roster size")
	ErrRosterTooSmall = errors.New("roster size out of range")
)

// ParseRole accepts any assignable role. Waiting is not assignable.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range roleOrder {
		if r == known {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// RoleSetFor returns the default role set for a roster of n participants.
func RoleSetFor(n int) ([]Role, error) {
	if n < 2 || n > len(roleOrder) {
		return nil, fmt.Errorf("%w: %d", ErrRosterTooSmall, n)
	}
	set := make([]Role, n)
	copy(set, roleOrder[:n])
	return set, nil
}

// ParseRoleSet validates an explicitly configured role set against the
// roster size. An empty list falls back to RoleSetFor.
func ParseRoleSet(names []string, n int) ([]Role, error) {
	if len(names) == 0 {
		return RoleSetFor(n)
	}
	if len(names) != n {
		return nil, fmt.Errorf("%w: %d roles for %d participants", ErrRoleSetSize, len(names), n)
	}
	seen := make(map[Role]bool, len(names))
	set := make([]Role, 0, len(names))
	for _, name := range names {
		r, err := ParseRole(name)
		if err != nil {
			return nil, err
		}
		if seen[r] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRole, r)
		}
		seen[r] = true
		set = append(set, r)
	}
	return set, nil
}

// CanSee reports whether a participant holding viewer receives position
// updates sent by a participant holding sender. Guides and architects see
// everyone; the explorer and the antagonist only see each other.
func CanSee(viewer, sender Role) bool {
	switch viewer {
	case RoleGuide, RoleArchitect:
		return sender != RoleWaiting
	case RoleAntagonist:
		return sender == RoleExplorer
	case RoleExplorer:
		return sender == RoleAntagonist
	default:
		return false
	}
}

// Assign deals roleSet to ids with a Fisher-Yates shuffle. intn must return a
// uniform value in [0, n). Every permutation of roleSet is equally likely and
// each role is dealt exactly once.
func Assign(ids []string, roleSet []Role, intn func(n int) int) (map[string]Role, error) {
	if len(ids) != len(roleSet) {
		return nil, fmt.Errorf("%w: %d participants, %d roles", ErrRoleSetSize, len(ids), len(roleSet))
	}
	deck := make([]Role, len(roleSet))
	copy(deck, roleSet)
	for i := len(deck) - 1; i > 0; i-- {
		j := intn(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}

	out := make(map[string]Role, len(ids))
	for i, id := range ids {
		out[id] = deck[i]
	}
	return out, nil
}

// RoleMessage is the human-readable briefing sent with role_assigned.
func RoleMessage(r Role) string {
	switch r {
	case RoleExplorer:
		return "You are the explorer. Find the exit before the antagonist finds you."
	case RoleGuide:
		return "You are the guide. You can see everyone; talk the explorer through the maze."
	case RoleAntagonist:
		return "You are the antagonist. Hunt down the explorer."
	case RoleArchitect:
		return "You are the architect. Reshape the maze walls while the game runs."
	default:
		return "Waiting for players."
	}
}

type Phase string

const (
	PhaseWaiting    = Phase("WAITING")
	PhaseReady      = Phase("READY")
	PhaseInProgress = Phase("IN_PROGRESS")
	PhaseEnded      = Phase("ENDED")
)

var transitions = map[Phase][]Phase{
	PhaseWaiting:    {PhaseReady},
	PhaseReady:      {PhaseInProgress},
	PhaseInProgress: {PhaseEnded},
	PhaseEnded:      {PhaseReady},
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to Phase) bool {
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

// Game is the per-room phase machine plus the state that only lives for one
// round. It is not synchronized; the owning room serializes access.
type Game struct {
	phase   Phase
	votes   map[string]bool
	winner  string
	endedAt time.Time
}

func NewGame() *Game {
	return &Game{
		phase: PhaseWaiting,
		votes: make(map[string]bool),
	}
}

func (g *Game) Phase() Phase {
	return g.phase
}

// Transition moves the game to the next phase, rejecting anything not in the
// transition table.
func (g *Game) Transition(to Phase, now time.Time) error {
	if !CanTransition(g.phase, to) {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, g.phase, to)
	}
	g.phase = to
	switch to {
	case PhaseEnded:
		g.endedAt = now
	case PhaseReady:
		g.winner = ""
		g.endedAt = time.Time{}
		g.ClearVotes()
	}
	return nil
}

// End records the winner and moves the game to ENDED.
func (g *Game) End(winner string, now time.Time) error {
	if err := g.Transition(PhaseEnded, now); err != nil {
		return err
	}
	g.winner = winner
	return nil
}

func (g *Game) Winner() string {
	return g.winner
}

func (g *Game) EndedAt() time.Time {
	return g.endedAt
}

// Vote records a play-again vote and returns the number of votes so far.
func (g *Game) Vote(id string) int {
	g.votes[id] = true
	return len(g.votes)
}

func (g *Game) Votes() int {
	return len(g.votes)
}

func (g *Game) HasVoted(id string) bool {
	return g.votes[id]
}

func (g *Game) ClearVotes() {
	clear(g.votes)
}
