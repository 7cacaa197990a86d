package gamedata

import (
	"errors"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleSetFor(t *testing.T) {
	tests := []struct {
		n    int
		want []Role
	}{
		{2, []Role{RoleExplorer, RoleGuide}},
		{3, []Role{RoleExplorer, RoleGuide, RoleAntagonist}},
		{4, []Role{RoleExplorer, RoleGuide, RoleAntagonist, RoleArchitect}},
	}
	for _, tt := range tests {
		got, err := RoleSetFor(tt.n)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := RoleSetFor(1)
	assert.ErrorIs(t, err, ErrRosterTooSmall)
	_, err = RoleSetFor(5)
	assert.ErrorIs(t, err, ErrRosterTooSmall)
}

func TestParseRoleSet(t *testing.T) {
	set, err := ParseRoleSet([]string{"Guide", "explorer"}, 2)
	require.NoError(t, err)
	assert.Equal(t, []Role{RoleGuide, RoleExplorer}, set)

	_, err = ParseRoleSet([]string{"guide", "guide"}, 2)
	assert.ErrorIs(t, err, ErrDuplicateRole)

	_, err = ParseRoleSet([]string{"guide", "waiting"}, 2)
	assert.ErrorIs(t, err, ErrUnknownRole)

	_, err = ParseRoleSet([]string{"guide"}, 2)
	assert.ErrorIs(t, err, ErrRoleSetSize)

	set, err = ParseRoleSet(nil, 3)
	require.NoError(t, err)
	assert.Len(t, set, 3)
}

func TestCanSee(t *testing.T) {
	tests := []struct {
		viewer, sender Role
		want           bool
	}{
		{RoleGuide, RoleExplorer, true},
		{RoleGuide, RoleAntagonist, true},
		{RoleGuide, RoleArchitect, true},
		{RoleArchitect, RoleExplorer, true},
		{RoleArchitect, RoleAntagonist, true},
		{RoleAntagonist, RoleExplorer, true},
		{RoleAntagonist, RoleGuide, false},
		{RoleExplorer, RoleAntagonist, true},
		{RoleExplorer, RoleExplorer, false},
		{RoleExplorer, RoleGuide, false},
		{RoleWaiting, RoleExplorer, false},
		{RoleGuide, RoleWaiting, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanSee(tt.viewer, tt.sender), "%s sees %s", tt.viewer, tt.sender)
	}
}

func TestAssign_EveryRoleExactlyOnce(t *testing.T) {
	roles, _ := RoleSetFor(4)
	ids := []string{"a", "b", "c", "d"}
	rng := rand.New(rand.NewPCG(1, 2))

	for i := 0; i < 200; i++ {
		got, err := Assign(ids, roles, rng.IntN)
		require.NoError(t, err)
		require.Len(t, got, 4)

		seen := make(map[Role]int)
		for _, r := range got {
			seen[r]++
		}
		for _, r := range roles {
			assert.Equal(t, 1, seen[r], "role %s dealt %d times", r, seen[r])
		}
	}
}

func TestAssign_AllPermutationsReachable(t *testing.T) {
	roles, _ := RoleSetFor(3)
	ids := []string{"a", "b", "c"}
	rng := rand.New(rand.NewPCG(7, 11))

	counts := make(map[string]int)
	const rounds = 6000
	for i := 0; i < rounds; i++ {
		got, err := Assign(ids, roles, rng.IntN)
		require.NoError(t, err)
		key := strings.Join([]string{string(got["a"]), string(got["b"]), string(got["c"])}, ",")
		counts[key]++
	}

	// 3! permutations, each expected ~1000 times.
	require.Len(t, counts, 6)
	for perm, n := range counts {
		assert.InDelta(t, rounds/6, n, 200, "permutation %s drawn %d times", perm, n)
	}
}

func TestAssign_DoesNotMutateRoleSet(t *testing.T) {
	roles, _ := RoleSetFor(4)
	before := append([]Role(nil), roles...)
	_, err := Assign([]string{"a", "b", "c", "d"}, roles, func(n int) int { return 0 })
	require.NoError(t, err)
	assert.Equal(t, before, roles)
}

func TestAssign_SizeMismatch(t *testing.T) {
	roles, _ := RoleSetFor(2)
	_, err := Assign([]string{"a", "b", "c"}, roles, func(n int) int { return 0 })
	assert.ErrorIs(t, err, ErrRoleSetSize)
}

func TestGame_TransitionTable(t *testing.T) {
	now := time.Now()
	g := NewGame()
	assert.Equal(t, PhaseWaiting, g.Phase())

	assert.ErrorIs(t, g.Transition(PhaseInProgress, now), ErrBadTransition)
	assert.ErrorIs(t, g.Transition(PhaseEnded, now), ErrBadTransition)

	require.NoError(t, g.Transition(PhaseReady, now))
	assert.ErrorIs(t, g.Transition(PhaseWaiting, now), ErrBadTransition)
	require.NoError(t, g.Transition(PhaseInProgress, now))
	require.NoError(t, g.End("explorer", now))
	assert.Equal(t, "explorer", g.Winner())
	assert.Equal(t, now, g.EndedAt())

	assert.ErrorIs(t, g.Transition(PhaseInProgress, now), ErrBadTransition)
	require.NoError(t, g.Transition(PhaseReady, now))
	assert.Empty(t, g.Winner())
	assert.True(t, g.EndedAt().IsZero())
}

func TestGame_VotesClearedOnRestart(t *testing.T) {
	now := time.Now()
	g := NewGame()
	require.NoError(t, g.Transition(PhaseReady, now))
	require.NoError(t, g.Transition(PhaseInProgress, now))
	require.NoError(t, g.End("antagonist", now))

	assert.Equal(t, 1, g.Vote("a"))
	assert.Equal(t, 1, g.Vote("a"))
	assert.Equal(t, 2, g.Vote("b"))
	assert.True(t, g.HasVoted("b"))

	require.NoError(t, g.Transition(PhaseReady, now))
	assert.Equal(t, 0, g.Votes())
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Architect ")
	require.NoError(t, err)
	assert.Equal(t, RoleArchitect, r)

	_, err = ParseRole("waiting")
	assert.True(t, errors.Is(err, ErrUnknownRole))
}
