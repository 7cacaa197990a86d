package analytics

import (
	"fmt"
	"sort"

	"mazecoord/internal/db"
)

const recentLimit = 20

type Queries struct {
	DB *db.DB
}

func NewQueries(database *db.DB) *Queries {
	return &Queries{DB: database}
}

func (q *Queries) GetStats() (*Stats, error) {
	stats := &Stats{}

	err := q.DB.QueryRow(`
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE winner IS NOT NULL AND winner <> '')
		FROM games
	`).Scan(&stats.TotalGames, &stats.FinishedGames)
	if err != nil {
		return nil, fmt.Errorf("counting games: %w", err)
	}

	if stats.OpenRooms, err = q.DB.OpenRooms(); err != nil {
		return nil, err
	}
	if stats.RoleWinRates, err = q.GetRoleWinRates(); err != nil {
		return nil, err
	}
	if stats.Recent, err = q.GetRecentGames(recentLimit); err != nil {
		return nil, err
	}
	return stats, nil
}

// GetRoleWinRates counts, for every role, the finished games it took part in
// and how many of those it won.
func (q *Queries) GetRoleWinRates() ([]RoleWinRate, error) {
	rows, err := q.DB.Query(`
		SELECT
			gr.role,
			COUNT(*) as games,
			COUNT(*) FILTER (WHERE g.winner = gr.role) as wins
		FROM game_roles gr
		JOIN games g ON g.id = gr.game_id
		WHERE g.winner IS NOT NULL AND g.winner <> ''
		GROUP BY gr.role
	`)
	if err != nil {
		return nil, fmt.Errorf("getting role win rates: %w", err)
	}
	defer rows.Close()

	var rates []RoleWinRate
	for rows.Next() {
		var r RoleWinRate
		if err := rows.Scan(&r.Role, &r.Games, &r.Wins); err != nil {
			return nil, err
		}
		rates = append(rates, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rankRates(rates), nil
}

func (q *Queries) GetRecentGames(limit int) ([]RecentGame, error) {
	rows, err := q.DB.Query(`
		SELECT
			g.id, g.room_code, g.seed, g.started_at, g.ended_at, COALESCE(g.winner, ''),
			(SELECT COUNT(*) FROM game_roles gr WHERE gr.game_id = g.id)
		FROM games g
		ORDER BY g.started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("getting recent games: %w", err)
	}
	defer rows.Close()

	games := []RecentGame{}
	for rows.Next() {
		var g RecentGame
		if err := rows.Scan(&g.ID, &g.RoomCode, &g.Seed, &g.StartedAt, &g.EndedAt, &g.Winner, &g.Players); err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

// rankRates fills in Rate and orders roles by it, best first.
func rankRates(rates []RoleWinRate) []RoleWinRate {
	out := make([]RoleWinRate, len(rates))
	copy(out, rates)
	for i := range out {
		if out[i].Games > 0 {
			out[i].Rate = float64(out[i].Wins) / float64(out[i].Games) * 100
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Rate != out[j].Rate {
			return out[i].Rate > out[j].Rate
		}
		return out[i].Role < out[j].Role
	})
	return out
}
